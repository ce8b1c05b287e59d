// Package main provides the entry point for the apkfix CLI.
package main

import (
	"context"
	"os"

	"github.com/serkac1000/apk-needfix/internal/cli"
	"github.com/serkac1000/apk-needfix/internal/signal"
)

// Set via ldflags.
//
//nolint:gochecknoglobals // build metadata
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	h := signal.NewHandler(context.Background())
	code := cli.Execute(h.Context(), cli.BuildInfo{Version: version, Commit: commit, Date: date})
	h.Stop()
	os.Exit(code)
}
