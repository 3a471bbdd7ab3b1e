package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/finance-notifier/internal/api"
	"github.com/shaharia-lab/finance-notifier/internal/build"
	"github.com/shaharia-lab/finance-notifier/internal/config"
	"github.com/shaharia-lab/finance-notifier/internal/consumer"
	"github.com/shaharia-lab/finance-notifier/internal/dispatch"
	"github.com/shaharia-lab/finance-notifier/internal/logger"
	"github.com/shaharia-lab/finance-notifier/internal/notification"
	"github.com/shaharia-lab/finance-notifier/internal/scheduler"
	"github.com/shaharia-lab/finance-notifier/internal/server"
	"github.com/shaharia-lab/finance-notifier/internal/storage"
	"github.com/shaharia-lab/finance-notifier/internal/telemetry"
)

// NewConsumeCmd returns the "consume" subcommand that runs the service.
func NewConsumeCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		rabbitURL string
		port      int
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume transaction events and send notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("rabbitmq-url") {
				cfg.RabbitMQURL = rabbitURL
			}
			if cmd.Flags().Changed("metrics-port") {
				cfg.MetricsPort = port
			}
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 {
					return fmt.Errorf("--threshold must not be negative, got %v", threshold)
				}
				cfg.HighAmountThreshold = threshold
			}
			return runConsume(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&rabbitURL, "rabbitmq-url", cfg.RabbitMQURL, "AMQP URL (overrides RABBITMQ_URL)")
	cmd.Flags().IntVar(&port, "metrics-port", cfg.MetricsPort, "HTTP port for /health and /metrics (overrides METRICS_PORT)")
	cmd.Flags().Float64Var(&threshold, "threshold", cfg.HighAmountThreshold, "High-value transaction threshold (overrides HIGH_AMOUNT_THRESHOLD)")
	return cmd
}

func runConsume(parent context.Context, cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exportLogs, shutdownLogs, err := telemetry.NewLogHandler(ctx, cfg.OTLPEndpoint, build.Version)
	if err != nil {
		return fmt.Errorf("initializing log export: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdownLogs(flushCtx)
	}()

	log, closer, err := logger.New(logger.Options{
		Service: telemetry.ServiceName,
		Level:   cfg.SlogLevel(),
		File:    cfg.LogFile,
		Export:  exportLogs,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = closer.Close() }()

	log.Info("notification service starting",
		slog.String("environment", cfg.Environment),
		slog.Int("metrics_port", cfg.MetricsPort),
		slog.Float64("high_amount_threshold", cfg.HighAmountThreshold),
		slog.Bool("smtp_configured", cfg.SMTPConfigured()),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
	)

	tp, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, build.Version)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("error shutting down tracer provider", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	recorder := telemetry.NewRecorder(telemetry.NewMetrics(reg), tp)

	var (
		channelOpts []notification.ChannelOption
		apiSrv      *api.Server
	)
	if cfg.DeliveryLogEnabled() {
		db, err := storage.NewSQLiteDB(cfg.DeliveryLogPath)
		if err != nil {
			return fmt.Errorf("opening delivery log: %w", err)
		}
		defer func() { _ = db.Close() }()

		store := storage.NewSQLiteDeliveryStore(db)
		channelOpts = append(channelOpts, notification.WithDeliveryStore(store))
		apiSrv = api.New(store, log)

		pruner, err := scheduler.NewPruner(scheduler.PrunerConfig{
			Store:     store,
			Retention: cfg.DeliveryLogRetention,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating delivery log pruner: %w", err)
		}
		if err := pruner.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := pruner.Stop(); err != nil {
				log.Warn("error stopping pruner", "error", err)
			}
		}()
	} else {
		apiSrv = api.New(nil, log)
	}

	channel := notification.NewEmailChannel(cfg.SMTP(), log, channelOpts...)
	router := dispatch.NewRouter(dispatch.NewHandlers(channel, cfg.HighAmountThreshold, log), log)
	pipeline := consumer.New(consumer.DefaultConfig(cfg.RabbitMQURL), router, recorder, log)

	srv := server.New(server.Options{
		Addr:           cfg.MetricsAddr(),
		Service:        telemetry.ServiceName,
		Gatherer:       reg,
		API:            apiSrv,
		TracerProvider: tp,
	}, log)

	srvCtx, stopServer := context.WithCancel(context.Background())
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run(srvCtx) }()
	defer func() {
		stopServer()
		if srvErr == nil {
			return
		}
		if err := <-srvErr; err != nil {
			log.Warn("http server stopped with error", "error", err)
		}
	}()

	if err := consumer.ConnectWithRetry(ctx, pipeline, cfg.BrokerConnectAttempts); err != nil {
		log.Error("failed to start notification service", "error", err)
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- pipeline.Run(ctx) }()

	var exitErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case exitErr = <-runErr:
		runErr = nil
	case err := <-srvErr:
		srvErr = nil
		exitErr = fmt.Errorf("http server: %w", err)
	}
	cancel()

	if err := pipeline.Shutdown(); err != nil {
		log.Warn("error closing broker connection", "error", err)
	}
	if runErr != nil {
		if err := <-runErr; err != nil && exitErr == nil {
			exitErr = err
		}
	}
	if errors.Is(exitErr, consumer.ErrDeliveryStreamClosed) {
		log.Error("broker connection lost", "error", exitErr)
	}
	return exitErr
}
