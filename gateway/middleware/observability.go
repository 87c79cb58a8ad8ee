package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservabilityConfig struct {
	ServiceName   string
	MetricsPrefix string
	LogRequests   bool
	Enabled       bool
	// Registerer receives the HTTP collectors. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Observability records a span, request metrics and an optional access log
// line for every request.
type Observability struct {
	cfg       ObservabilityConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "fundd"
	}
	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "fundd"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.MetricsPrefix,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests segmented by route, method and status.",
	}, []string{"route", "method", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.MetricsPrefix,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	requests = registerOrReuse(cfg.Registerer, requests).(*prometheus.CounterVec)
	durations = registerOrReuse(cfg.Registerer, durations).(*prometheus.HistogramVec)
	return &Observability{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "http")),
		tracer:    otel.Tracer(cfg.ServiceName),
		requests:  requests,
		durations: durations,
	}
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return existing.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Middleware instruments next. The route label is the chi route pattern once
// routing has resolved, so ids never leak into label values.
func (o *Observability) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !o.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ctx, span := o.tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithAttributes(
			attribute.String("http.method", r.Method),
		))
		defer span.End()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := routePattern(r)
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", recorder.status),
		)
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
		elapsed := time.Since(start)
		o.requests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		o.durations.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		if o.cfg.LogRequests {
			o.logger.Info("request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", recorder.status),
				slog.Duration("duration", elapsed))
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and websocket upgrades reach the
// underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
