package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nabeelqr/couchsync/internal/ui"
	"github.com/nabeelqr/couchsync/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "couchsync",
	Short:   "Watch videos together over a direct peer-to-peer channel",
	Long:    `CouchSync pairs two participants in a named room, negotiates a direct WebRTC data channel between them, and keeps their playback in sync while they chat. The relay only brokers the handshake; chat and sync traffic never touch a server.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
