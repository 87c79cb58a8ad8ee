package fundd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"fundflow/core/events"
	"fundflow/gateway/middleware"
	"fundflow/observability"
)

const (
	maxRequestBody    = 1 << 20 // 1 MiB
	rateLimitKeyWrite = "write"
)

// ServerConfig wires the HTTP front-end of fundd.
type ServerConfig struct {
	Registry       *Registry
	Events         *events.Broadcaster
	Logger         *slog.Logger
	Authenticator  *middleware.Authenticator
	RateLimiter    *middleware.RateLimiter
	Observability  *middleware.Observability
	Metrics        *observability.FunddMetrics
	MetricsHandler http.Handler
	CORS           middleware.CORSConfig
	WriteScope     string
	Compress       bool
	PayoutPlaces   int32
}

// Server is the HTTP API over a Registry.
type Server struct {
	registry  *Registry
	events    *events.Broadcaster
	logger    *slog.Logger
	metrics   *observability.FunddMetrics
	validator *validator
	places    int32
	origins   []string
	router    http.Handler
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry required")
	}
	if cfg.Events == nil {
		cfg.Events = events.NewBroadcaster(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		registry:  cfg.Registry,
		events:    cfg.Events,
		logger:    cfg.Logger.With(slog.String("component", "api")),
		metrics:   cfg.Metrics,
		validator: v,
		places:    cfg.PayoutPlaces,
		origins:   cfg.CORS.AllowedOrigins,
	}
	s.router = s.buildRouter(cfg)
	return s, nil
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(cfg ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	writeGuards := func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware(rateLimitKeyWrite))
		}
		if cfg.Authenticator != nil {
			if cfg.WriteScope != "" {
				api.Use(cfg.Authenticator.Middleware(cfg.WriteScope))
			} else {
				api.Use(cfg.Authenticator.Middleware())
			}
		}
	}

	r.Route("/v1", func(v1 chi.Router) {
		// Hijacked websocket connections cannot sit behind the gzip writer.
		v1.Get("/events", s.handleEvents)

		v1.Group(func(api chi.Router) {
			if cfg.Compress {
				api.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
			}
			api.Get("/ledgers", s.handleListLedgers)
			api.Get("/ledgers/{id}", s.handleGetLedger)
			api.Get("/streams", s.handleListStreams)
			api.Get("/streams/{id}", s.handleGetStream)

			api.Group(func(write chi.Router) {
				writeGuards(write)
				write.Post("/ledgers", s.handleCreateLedger)
				write.Post("/ledgers/{id}/contributions", s.handleContribute)
				write.Post("/ledgers/{id}/distributions", s.handleDistribute)
				write.Post("/streams", s.handleCreateStream)
				write.Post("/streams/{id}/withdrawals", s.handleWithdraw)
				write.Post("/streams/{id}/topups", s.handleTopUp)
			})
		})
	})
	return r
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	return body, nil
}

// decode reads the request body and validates it against schema.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	return s.validator.decode(schema, body, dst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", slog.String("error", err.Error()))
	}
}

// writeSnapshot serves v with an ETag and honours If-None-Match.
func (s *Server) writeSnapshot(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	etag := etagFor(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := toStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())))
		message = http.StatusText(status)
	}
	s.writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}
