// The longmap CLI talks to a running API server; see internal/interfaces/cli.
package main

import (
	"os"

	"github.com/openlongevity/longmap/internal/interfaces/cli"
)

// Injected via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
