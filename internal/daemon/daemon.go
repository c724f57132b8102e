// Package daemon provides the long-running modes: interval-scheduled builds
// and filesystem-watch rebuilds, with an optional Prometheus endpoint.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pdfbuilder/internal/build"
	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/metrics"
)

// Daemon runs sync+build passes on a fixed schedule.
type Daemon struct {
	cfg       *config.Config
	service   *build.Service
	scheduler gocron.Scheduler
	metricsrv *http.Server
}

// New creates a daemon for the given configuration. When metrics are enabled
// the service is wired to a Prometheus recorder served on the configured
// listen address.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg.Build.Schedule.Std() <= 0 {
		return nil, fmt.Errorf("daemon: build.schedule must be set")
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("daemon: create scheduler: %w", err)
	}

	d := &Daemon{cfg: cfg, service: build.NewService(cfg), scheduler: scheduler}

	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		d.service = d.service.WithRecorder(metrics.NewPrometheusRecorder(reg))
		listen := cfg.Metrics.Listen
		if listen == "" {
			listen = ":9090"
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		d.metricsrv = &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return d, nil
}

// Start schedules periodic builds and blocks until the context is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	interval := d.cfg.Build.Schedule.Std()
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.runScheduledBuild, ctx),
		gocron.WithName("scheduled-build"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("daemon: create build job: %w", err)
	}
	slog.Info("Scheduled periodic builds", slog.String("job_id", job.ID().String()), slog.Duration("interval", interval))

	if d.metricsrv != nil {
		go func() {
			slog.Info("Serving metrics", slog.String("listen", d.metricsrv.Addr))
			if err := d.metricsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	d.scheduler.Start()
	<-ctx.Done()
	return nil
}

// Stop shuts the scheduler and metrics server down gracefully.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon")
	if err := d.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("daemon: scheduler shutdown: %w", err)
	}
	if d.metricsrv != nil {
		if err := d.metricsrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("daemon: metrics server shutdown: %w", err)
		}
	}
	return nil
}

// runScheduledBuild is invoked by gocron per tick.
func (d *Daemon) runScheduledBuild(ctx context.Context) {
	slog.Info("Executing scheduled build")
	report, err := d.service.Run(ctx)
	if err != nil {
		slog.Error("Scheduled build failed", logfields.Error(err))
		return
	}
	if rerr := report.Err(); rerr != nil {
		slog.Warn("Scheduled build finished with failures", logfields.RunID(report.RunID), logfields.Error(rerr))
	}
}
