package main

import (
	"fmt"
	"os"

	"github.com/3leaps/gobiome/internal/cmd"
	"github.com/3leaps/gobiome/internal/observability"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	err := cmd.Execute()
	observability.Sync()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
