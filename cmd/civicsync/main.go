// Package main provides the entry point for the civicsync CLI.
package main

import (
	"context"
	"os"

	"github.com/civicsync/civicsync/cmd/civicsync/app"
	"github.com/civicsync/civicsync/cmd/civicsync/cmd"
)

// Version information populated by the release build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	application, err := app.New(version, commit, date)
	if err != nil {
		cmd.ExitOnError(err)
	}

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	if err := cmd.Execute(ctx, application, os.Args[1:]); err != nil {
		cmd.ExitOnError(err)
	}
}
