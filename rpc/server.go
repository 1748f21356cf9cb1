package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fusionswap/core/events"
	"fusionswap/indexer"
	"fusionswap/native/escrow"
	"fusionswap/rpc/auth"
	"fusionswap/rpc/middleware"
)

const shutdownGrace = 10 * time.Second

// Config holds the listener and HTTP policy settings.
type Config struct {
	ListenAddress  string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogRequests    bool
}

// EventIndex is the read side the indexer provides.
type EventIndex interface {
	Status(ctx context.Context, id string) (*indexer.Object, error)
	ListEvents(ctx context.Context, q indexer.Query) ([]indexer.Event, error)
	Escrows(ctx context.Context, source string) ([]indexer.Object, error)
}

// Deps are the components the server exposes. Index and Verifier are
// optional: without an index the indexer methods report unavailable, and
// without a verifier every mutating method is refused.
type Deps struct {
	Engine   *escrow.Engine
	Bus      *events.Bus
	Index    EventIndex
	Verifier *auth.Verifier
	Logger   *slog.Logger
}

type Server struct {
	cfg      Config
	engine   *escrow.Engine
	bus      *events.Bus
	index    EventIndex
	verifier *auth.Verifier
	logger   *slog.Logger
	obs      *middleware.Observability
	limiter  *middleware.RateLimiter
	methods  map[string]method
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("rpc: engine required")
	}
	if deps.Bus == nil {
		return nil, errors.New("rpc: event bus required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rpc")
	s := &Server{
		cfg:      cfg,
		engine:   deps.Engine,
		bus:      deps.Bus,
		index:    deps.Index,
		verifier: deps.Verifier,
		logger:   logger,
		obs:      middleware.NewObservability(middleware.ObservabilityConfig{LogRequests: cfg.LogRequests}, logger),
		limiter: middleware.NewRateLimiter(middleware.RateLimit{
			RatePerSecond: cfg.RateLimitRPS,
			Burst:         cfg.RateLimitBurst,
		}, logger),
	}
	s.methods = s.methodTable()
	return s, nil
}

// Handler returns the full HTTP surface: JSON-RPC on POST /, the event
// stream, health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDs)
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, s.obs.Registry()},
		promhttp.HandlerOpts{},
	))
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.With(s.obs.Middleware("rpc")).Post("/", s.handleRPC)
		r.With(s.obs.Middleware("ws_events")).Get("/ws/events", s.handleEventsWS)
	})
	return otelhttp.NewHandler(r, "fusion-rpc")
}

// Serve answers on ln until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("json-rpc server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc: shutdown: %w", err)
	}
	return nil
}

// ListenAndServe binds cfg.ListenAddress and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}
