package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"appointments/pkg/config"
	"appointments/pkg/contracts"
	apperrors "appointments/pkg/errors"
	httputil "appointments/pkg/http"
	"appointments/pkg/metrics"
	"appointments/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const (
	PathMetrics = "/metrics"
	PathEvents  = "/api/events"
)

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

type Application struct {
	cfg         *config.Config
	server      *http.Server
	rateLimiter *middleware.ClientRateLimiter
	metrics     *metrics.Metrics
	events      http.Handler
	routes      []string
	hooks       []shutdownHook

	healthHandler  http.Handler
	appHttpHandler http.Handler
}

type Option func(*Application)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Application) {
		a.metrics = m
	}
}

// WithEvents mounts a long-lived streaming handler (the websocket hub) at
// PathEvents, outside the request/response middleware stack.
func WithEvents(h http.Handler) Option {
	return func(a *Application) {
		a.events = h
	}
}

// WithRoutes names the application paths used as metric labels.
func WithRoutes(paths ...string) Option {
	return func(a *Application) {
		a.routes = append(a.routes, paths...)
	}
}

func NewApplication(cfg *config.Config, opts ...Option) *Application {
	a := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnShutdown registers fn to run after the HTTP server stops. Hooks run in
// registration order.
func (a *Application) OnShutdown(name string, fn func(ctx context.Context) error) {
	a.hooks = append(a.hooks, shutdownHook{name: name, fn: fn})
}

func (a *Application) SetApp(appHandler contracts.Handler, healthHandler contracts.Handler) {
	a.setHealthHandler(healthHandler)
	a.setAppHandler(appHandler)
	a.setAppServer()
}

func (a *Application) setHealthHandler(healthHandler contracts.Handler) {
	healthRouter := httprouter.New()
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appRouter.HandleOPTIONS = false
	appRouter.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteError(w, apperrors.NotFound("Route "+r.URL.Path))
	})
	appHandler.RegisterRoutes(appRouter)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	if a.cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewClientRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, a.cfg.Log)
		appHttpHandler = middleware.RateLimit(a.rateLimiter)(appHttpHandler)
		a.cfg.Log.Info("Per-client rate limiting enabled", "rps", a.cfg.RateLimitRPS, "burst", a.cfg.RateLimitBurst)
	}
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.CORS(a.cfg.CORSAllowOrigin)(appHttpHandler)
	if a.metrics != nil {
		appHttpHandler = middleware.HTTPMetrics(a.metrics, a.routes...)(appHttpHandler)
	}
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the root handler serving every endpoint.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.metrics != nil {
		mux.Handle(PathMetrics, a.metrics.Handler())
	}
	if a.events != nil {
		var events http.Handler = a.events
		events = middleware.CORS(a.cfg.CORSAllowOrigin)(events)
		events = middleware.Recovery(a.cfg.Log)(events)
		mux.Handle(PathEvents, events)
	}
	mux.Handle("/", a.appHttpHandler)
	return mux
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			a.cfg.Log.Error("Graceful shutdown finished with errors", "error", err)
		}
	}
}

// Shutdown stops accepting requests, waits for in-flight ones, then runs the
// shutdown hooks. Every hook runs even if an earlier one fails.
func (a *Application) Shutdown(ctx context.Context) error {
	a.cfg.Log.Info("Starting graceful shutdown...")

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.cfg.Log.Error("Server shutdown failed", "error", err)
			errs = append(errs, err)
			if err := a.server.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	a.cfg.Log.Info("Server stopped")

	for _, hook := range a.hooks {
		if err := hook.fn(ctx); err != nil {
			a.cfg.Log.Error("Shutdown step failed", "step", hook.name, "error", err)
			errs = append(errs, err)
			continue
		}
		a.cfg.Log.Info("Shutdown step completed", "step", hook.name)
	}

	return errors.Join(errs...)
}
