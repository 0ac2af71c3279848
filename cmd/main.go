package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/bankrank/internal/app"
	"github.com/okian/bankrank/internal/config"
	"github.com/okian/bankrank/pkg/logger"
	"github.com/okian/bankrank/pkg/metrics"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one pipeline pass. Query results go to stdout, structured
// logs to stderr.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		return exitFailure
	}

	// Re-initialize with the configured format, then apply the level.
	if err := logger.Init(logger.WithOutput(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFailure
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBucketsMS),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)

	svc := app.New(cfg,
		app.WithLogger(log.Named("pipeline")),
		app.WithOutput(stdout),
	)
	if err := svc.Run(ctx); err != nil {
		log.Error(ctx, "pipeline failed", logger.Error(err))
		return exitFailure
	}
	return exitOK
}
