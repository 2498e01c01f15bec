package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/docgraphgo/internal/app"
	"github.com/vk/docgraphgo/internal/cli"
	"github.com/vk/docgraphgo/internal/engine"
)

// main is the entrypoint for the docgraphgo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors, so we recover here to provide
	// a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	docgraphApp := app.NewApp(outW, appConfig)

	result, err := docgraphApp.Run(context.Background(), appConfig)
	if err != nil {
		return err
	}
	if result.Status == engine.StatusDegraded {
		fmt.Fprintf(outW, "run %s finished degraded: global retry budget exhausted (%d warnings)\n",
			result.RunID, len(result.Warnings))
	}
	return nil
}
