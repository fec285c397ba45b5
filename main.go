package main

import (
	"fmt"
	"os"

	"github.com/cromulus/reminders-cli-sub001/internal/cli"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", version, commit, date)); err != nil {
		os.Exit(1)
	}
}
