package http

import (
	"context"
	"crypto/tls"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volview-xnat/volviewd/internal/domain/ratelimit"
	"github.com/volview-xnat/volviewd/internal/service"
)

// HTTPTransport is the inbound adapter that serves the viewer configuration
// API, the shell pages and the operational endpoints.
type HTTPTransport struct {
	configService     *service.ViewerConfigService
	settingsService   *service.SettingsService
	server            *http.Server
	addr              string
	certFile          string
	keyFile           string
	contextPath       string
	readHeaderTimeout time.Duration
	authenticator     Authenticator
	resources         fs.FS
	logger            *slog.Logger
	registry          *prometheus.Registry
	metrics           *Metrics       // Prometheus metrics
	healthChecker     *HealthChecker // Health check handler
	auditor           Auditor
	limiter           ratelimit.Limiter
	limitConfig       ratelimit.Config
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithContextPath mounts the application routes under path, e.g. "/xnat".
// The same value is the context path seen by the origin resolver.
func WithContextPath(path string) Option {
	return func(t *HTTPTransport) {
		t.contextPath = strings.TrimSuffix(path, "/")
	}
}

// WithReadHeaderTimeout sets http.Server.ReadHeaderTimeout.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		t.readHeaderTimeout = d
	}
}

// WithAuthenticator sets the API key authenticator. Without one every
// request is unauthenticated.
func WithAuthenticator(a Authenticator) Option {
	return func(t *HTTPTransport) {
		t.authenticator = a
	}
}

// WithResources sets the bundle the shell and test pages are read from.
func WithResources(fsys fs.FS) Option {
	return func(t *HTTPTransport) {
		t.resources = fsys
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithRegistry sets the Prometheus registry served on /metrics. The caller
// owns collector registration on a registry it provides.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(t *HTTPTransport) {
		t.registry = reg
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// WithAuditor records session config decisions and settings changes and
// enables GET /xapi/volview/audit.
func WithAuditor(a Auditor) Option {
	return func(t *HTTPTransport) {
		t.auditor = a
	}
}

// WithRateLimit throttles application routes per caller. A nil limiter
// disables throttling.
func WithRateLimit(limiter ratelimit.Limiter, cfg ratelimit.Config) Option {
	return func(t *HTTPTransport) {
		t.limiter = limiter
		t.limitConfig = cfg
	}
}

// NewHTTPTransport creates an HTTP transport serving the given services.
func NewHTTPTransport(configService *service.ViewerConfigService, settingsService *service.SettingsService, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		configService:     configService,
		settingsService:   settingsService,
		addr:              "127.0.0.1:8080",
		readHeaderTimeout: 10 * time.Second,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.registry == nil {
		t.registry = prometheus.NewRegistry()
		t.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	t.metrics = NewMetrics(t.registry)

	return t
}

// Metrics returns the transport's Prometheus metrics.
func (t *HTTPTransport) Metrics() *Metrics {
	return t.metrics
}

// Handler builds the complete request handler.
//
// Middleware order (outermost first):
//  1. MetricsMiddleware - MUST be outermost to capture full duration
//  2. RequestID - extract/generate request ID and enrich logger
//  3. Tracing - server span (application routes)
//  4. Identity - resolve the Bearer key (application routes)
//  5. RateLimit - per caller, after identity is known (application routes)
func (t *HTTPTransport) Handler() http.Handler {
	app := &handler{
		configService:   t.configService,
		settingsService: t.settingsService,
		resources:       t.resources,
		contextPath:     t.contextPath,
		auditor:         t.auditor,
		metrics:         t.metrics,
		logger:          t.logger,
	}
	var appHandler http.Handler = app.routes()
	if t.limiter != nil {
		appHandler = RateLimitMiddleware(t.limiter, t.limitConfig, t.metrics)(appHandler)
	}
	appHandler = IdentityMiddleware(t.authenticator)(appHandler)
	appHandler = TracingMiddleware(appHandler)

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", healthHandler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{
		Registry: t.registry,
	}))
	if t.contextPath == "" {
		mux.Handle("/", appHandler)
	} else {
		mux.Handle(t.contextPath+"/", http.StripPrefix(t.contextPath, appHandler))
	}

	var h http.Handler = mux
	h = RequestIDMiddleware(t.logger)(h)
	h = MetricsMiddleware(t.metrics)(h)
	return h
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: t.readHeaderTimeout,
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr, "context_path", t.contextPath)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr, "context_path", t.contextPath)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
