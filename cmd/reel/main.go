// Package main provides the reel CLI entrypoint.
//
// All commands except `transcode` are read-only.
//
// Usage:
//
//	reel <command> [options]
//
// Exit codes for `transcode`:
//   - 0: artifact written (and notification delivered, if configured)
//   - 1: invalid arguments or configuration
//   - 2: malformed capture
//   - 3: diff, emit or storage failure
//   - 4: completion notification failed (the artifact is written)
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/reel/cli/cmd"
	"github.com/pithecene-io/reel/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "reel",
		Usage:          "Transcode ttyrec captures into playback artifacts",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.TranscodeCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit prints the message carried by err and returns its exit code.
// cli.Exit("", N).Error() returns "exit status N"; those are not printed.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	// Unexpected error - print and exit with code 1
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
