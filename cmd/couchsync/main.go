package main

import (
	"github.com/nabeelqr/couchsync/internal/cli"
	"github.com/nabeelqr/couchsync/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
