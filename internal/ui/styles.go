package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#A78BFA") // CouchSync violet accent
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	NameStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	TypingStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

func PrintError(msg string) {
	fmt.Printf("%s\n", ErrorStyle.Render("✗ "+msg))
}

func PrintInfo(msg string) {
	fmt.Printf("%s\n", MutedStyle.Render(msg))
}
