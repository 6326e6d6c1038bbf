package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"drv_adapter/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always executes.
func run(args []string) int {
	fs := flag.NewFlagSet("drv-adapter", flag.ContinueOnError)
	configPath := fs.String("config", "configs/config.yaml", "path to the YAML config")
	once := fs.Bool("once", false, "run a single sync and probe pass, then exit")
	export := fs.String("export", "", "write stored accounts to this YAML file and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		bootstrap.Close()
		return 1
	}
	defer bootstrap.Close()

	if *export != "" {
		if err := bootstrap.ExportFixtures(*export); err != nil {
			slog.Error("❌ Export failed", slog.Any("error", err))
			return 1
		}
		return 0
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Track configured pairs
	tracked := bootstrap.TrackMarkets(ctx)
	slog.InfoContext(ctx, "✅ Markets tracked", slog.Int("count", tracked), slog.Int("configured", len(bootstrap.Config.Markets)))

	if *once {
		bootstrap.RunOnce(ctx)
		return 0
	}

	// 4. Poll loop
	slog.InfoContext(ctx, "✨ Adapter operational. Press Ctrl+C to exit.")
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Poll loop failed", slog.Any("error", err))
		return 1
	}

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	return 0
}
