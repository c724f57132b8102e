package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pdfbuilder/internal/build"
	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/daemon"
	"git.home.luguber.info/inful/pdfbuilder/internal/task"
	"git.home.luguber.info/inful/pdfbuilder/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"pdfbuilder.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct{} `cmd:"" help:"Run the full pipeline: sync assets, transform, render, deploy, link"`

	Sync struct{} `cmd:"" help:"Synchronize declared assets without building"`

	Clean struct{} `cmd:"" help:"Remove synchronized asset directories"`

	Watch struct{} `cmd:"" help:"Build, then rebuild whenever generator output changes"`

	Daemon struct{} `cmd:"" help:"Run scheduled builds on the configured interval"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "build":
		err = withConfig(runBuild)
	case "sync":
		err = withConfig(runSync)
	case "clean":
		err = withConfig(runClean)
	case "watch":
		err = withConfig(runWatch)
	case "daemon":
		err = withConfig(runDaemon)
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "version":
		fmt.Printf("pdfbuilder %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// withConfig loads configuration and hands it to the command runner.
func withConfig(run func(cfg *config.Config) error) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return run(cfg)
}

func runBuild(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting build",
		slog.String("project", cfg.Project.Name),
		slog.String("branch", cfg.Git.Branch),
		slog.Int("pdfs", len(cfg.PDFs)),
		slog.Int("assets", len(cfg.Assets)))

	report, err := build.NewService(cfg).Run(ctx)
	if err != nil {
		return err
	}
	return reportErr(report)
}

func runSync(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := build.NewService(cfg).Sync(ctx)
	if err != nil {
		return err
	}
	return reportErr(report)
}

func runClean(cfg *config.Config) error {
	report, err := build.NewService(cfg).Clean(context.Background())
	if err != nil {
		return err
	}
	return reportErr(report)
}

func runWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := daemon.NewWatcher(cfg)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func runDaemon(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() { errChan <- d.Start(ctx) }()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

// reportErr maps a run report onto the process exit status: unit failures are
// already logged individually, the command just fails overall.
func reportErr(report *task.Report) error {
	return report.Err()
}
