package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valinor-ai/snsgate/internal/events"
	"github.com/valinor-ai/snsgate/internal/platform/config"
	"github.com/valinor-ai/snsgate/internal/platform/server"
	"github.com/valinor-ai/snsgate/internal/platform/telemetry"
	"github.com/valinor-ai/snsgate/internal/sns"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logging
	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("snsgate starting",
		"port", cfg.Server.Port,
		"topics", len(cfg.SNS.TopicArns),
	)
	if len(cfg.SNS.TopicArns) == 0 {
		slog.Warn("no topic ARNs configured, every delivery will be rejected")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Event dispatch
	sink, closeSink, err := newEventSink(ctx, cfg.Events)
	if err != nil {
		return fmt.Errorf("configuring event sink: %w", err)
	}
	defer closeSink()

	emitter := events.NewAsyncEmitter(sink, events.EmitterConfig{
		BufferSize:    cfg.Events.BufferSize,
		BatchSize:     cfg.Events.BatchSize,
		FlushInterval: cfg.Events.FlushInterval,
	})
	defer emitter.Close()

	// Verification engine
	httpClient := &http.Client{Timeout: cfg.SNS.Cert.FetchTimeout}
	cache := sns.NewCertCache(cfg.SNS.Cert.CacheSize, cfg.SNS.Cert.CacheTTL)
	fetcher := sns.NewHTTPCertFetcher(httpClient, sns.FetcherConfig{
		Attempts:   cfg.SNS.Cert.FetchAttempts,
		RetryDelay: cfg.SNS.Cert.RetryDelay,
	})
	verifier := sns.NewVerifier(cache, fetcher, sns.VerifierConfig{
		FetchTimeout: cfg.SNS.Cert.FetchTimeout,
	})

	snsHandler := sns.NewHandler(
		sns.NewAuthenticator(verifier),
		sns.NewTopicAllowList(cfg.SNS.TopicArns),
		sns.NewHTTPConfirmer(httpClient, cfg.SNS.Confirm.Timeout),
		emitter,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		SNSHandler:     snsHandler,
		MetricsEnabled: cfg.Metrics.Enabled,
		Logger:         logger,
	})

	slog.Info("server ready", "addr", addr, "event_sink", cfg.Events.Sink)
	return srv.Start(ctx)
}

func newEventSink(ctx context.Context, cfg config.EventsConfig) (events.Sink, func(), error) {
	switch cfg.Sink {
	case "", "log":
		return events.NewLogSink(slog.Default()), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		slog.Info("publishing events to redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
		return events.NewRedisSink(client, cfg.Redis.Channel), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.Sink)
	}
}
