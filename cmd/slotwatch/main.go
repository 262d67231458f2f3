package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"slotwatch/internal/app"
	"slotwatch/internal/config"
	logx "slotwatch/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv)
	cancel()
	os.Exit(code)
}

// run returns the process exit code: 0 on a signal, 1 on a configuration
// or runtime failure, 2 on bad flags.
func run(ctx context.Context, args []string, getenv func(string) string) int {
	fs := flag.NewFlagSet("slotwatch", flag.ContinueOnError)
	cfgPath := fs.String("config", getenv("SLOTWATCH_CONFIG"), "optional path to a JSON or YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// the configured logger does not exist until the config is loaded
	boot := logx.NewConsole("info").With(logx.String("comp", "main"))

	a, err := app.New(config.NewManager(*cfgPath))
	if err != nil {
		boot.Error("fatal: configuration", logx.Err(err))
		return 1
	}

	if err := a.Run(ctx); err != nil {
		// interrupted while resolving cities
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return 0
		}
		boot.Error("fatal", logx.Err(err))
		return 1
	}
	return 0
}
