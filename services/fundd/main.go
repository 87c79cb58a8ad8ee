package fundd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fundflow/config"
	"fundflow/core/events"
	"fundflow/gateway/middleware"
	"fundflow/native/common"
	"fundflow/native/crowdfund"
	"fundflow/observability"
	"fundflow/observability/logging"
	telemetry "fundflow/observability/otel"
)

// Main runs fundd until SIGINT or SIGTERM.
func Main(args []string) error {
	fs := flag.NewFlagSet("fundd", flag.ContinueOnError)
	cfgPath := fs.String("config", "fundd.toml", "path to fundd configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, logCloser := logging.Setup("fundd", cfg.Environment, logging.Options{
		File:  cfg.LogFile,
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	defer logCloser.Close()

	// OTLP metrics ride along with tracing; Prometheus stays on /metrics.
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "fundd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		Headers:     telemetry.ParseHeaders(cfg.Observability.OTLPHeaders),
		Metrics:     cfg.Observability.Tracing,
		Traces:      cfg.Observability.Tracing,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	handler, err := buildHandler(cfg, logger)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  seconds(cfg.HTTP.ReadTimeoutSeconds),
		WriteTimeout: seconds(cfg.HTTP.WriteTimeoutSeconds),
		IdleTimeout:  seconds(cfg.HTTP.IdleTimeoutSeconds),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("fundd listening", slog.String("addr", cfg.ListenAddress))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownTimeoutSeconds))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildHandler assembles the registry, middleware and router described by cfg.
func buildHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	policy, err := crowdfund.ParsePolicy(cfg.Crowdfund.DefaultPolicy)
	if err != nil {
		return nil, err
	}
	var metrics *observability.FunddMetrics
	var metricsHandler http.Handler
	if cfg.Observability.Metrics {
		metrics = observability.Fundd()
		metricsHandler = promhttp.Handler()
	}
	broadcaster := events.NewBroadcaster(cfg.Events.HistoryLimit)
	registry := NewRegistry(
		WithEmitter(broadcaster),
		WithPauses(common.NewPauses(cfg.Paused...)),
		WithMetrics(metrics),
		WithLogger(logger),
		WithDefaultPolicy(policy),
		WithDisplayPlaces(cfg.Crowdfund.PayoutPlaces),
	)

	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		rateLimitKeyWrite: {
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
	}, logger)
	limiter.OnThrottle(metrics.RecordThrottle)

	server, err := NewServer(ServerConfig{
		Registry: registry,
		Events:   broadcaster,
		Logger:   logger,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		}, logger),
		RateLimiter: limiter,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: "fundd",
			LogRequests: cfg.Observability.LogRequests,
			Enabled:     cfg.Observability.Metrics || cfg.Observability.LogRequests || cfg.Observability.Tracing,
		}, logger),
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.HTTP.AllowedOrigins},
		WriteScope:     cfg.Auth.WriteScope,
		Compress:       cfg.HTTP.Compress,
		PayoutPlaces:   cfg.Crowdfund.PayoutPlaces,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Observability.Tracing {
		return otelhttp.NewHandler(server.Handler(), "fundd"), nil
	}
	return server.Handler(), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Run is the entry point used by cmd/fundd.
func Run() {
	if err := Main(os.Args[1:]); err != nil {
		slog.Error("fundd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
