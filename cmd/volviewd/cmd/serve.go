package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/volview-xnat/volviewd/internal/adapter/inbound/http"
	auditstore "github.com/volview-xnat/volviewd/internal/adapter/outbound/audit"
	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/adapter/outbound/sqlite"
	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/config"
	"github.com/volview-xnat/volviewd/internal/domain/audit"
	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
	"github.com/volview-xnat/volviewd/internal/domain/ratelimit"
	"github.com/volview-xnat/volviewd/internal/resources"
	"github.com/volview-xnat/volviewd/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the volviewd HTTP server.

The server answers viewer configuration requests for XNAT projects and
imaging sessions, serves the VolView shell page and exposes /health and
/metrics.

Examples:
  # Start with config file settings
  volviewd serve

  # Start in development mode (debug logging, dev API key "dev-api-key")
  volviewd serve --dev

  # Start with a specific config file
  volviewd --config /path/to/volviewd.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, dev identity)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(devMode)
	if err != nil {
		return err
	}

	statePath := resolveStatePath(cfg)

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, statePath, logger); err != nil {
		return err
	}

	logger.Info("volviewd stopped")
	return nil
}

// resolveStatePath picks the state file: CLI flag > env var > config.
func resolveStatePath(cfg *config.AppConfig) string {
	if stateFilePath != "" {
		return stateFilePath
	}
	if p := os.Getenv("VOLVIEWD_STATE_PATH"); p != "" {
		return p
	}
	return cfg.State.Path
}

// run wires all components together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.AppConfig, statePath string, logger *slog.Logger) error {
	if cfg.Server.Trace {
		shutdown, err := setupTracing(os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("trace provider shutdown failed", "error", err)
			}
		}()
		logger.Info("request tracing enabled", "exporter", "stdout")
	}

	stateStore := state.NewFileStateStore(statePath, logger)
	appState, err := stateStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	authStore := memory.NewAuthStore()
	seedAuth(cfg, appState, authStore, logger)

	sessions, closeSessions, err := openSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	prune := cfg.Sessions.Backend != config.SessionBackendSQLite
	if err := seedSessions(ctx, appState, sessions, prune, logger); err != nil {
		return err
	}

	settingsService := service.NewSettingsService(cfg.VolView.Defaults(), stateStore, logger)
	if err := settingsService.Reload(); err != nil {
		return err
	}
	configService := service.NewViewerConfigService(settingsService, sessions, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []http.Option{
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithContextPath(cfg.Server.ContextPath),
		http.WithReadHeaderTimeout(cfg.ReadHeaderTimeoutDuration()),
		http.WithTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile),
		http.WithAuthenticator(auth.NewAPIKeyService(authStore)),
		http.WithResources(resources.FS()),
		http.WithLogger(logger),
		http.WithRegistry(reg),
		http.WithHealthChecker(http.NewHealthChecker(stateStore, authStore, sessions, Version)),
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limiter := memory.NewRateLimiter(5*time.Minute, time.Hour, logger)
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
		opts = append(opts, http.WithRateLimit(limiter, ratelimit.Config{
			Rate:   rl.Rate,
			Burst:  rl.Burst,
			Period: rl.PeriodDuration(),
		}))
		logger.Info("rate limiting enabled", "rate", rl.Rate, "burst", rl.Burst, "period", rl.PeriodDuration())
	}
	if cfg.Audit.Enabled {
		auditor, closeAudit, err := openAuditTrail(cfg.Audit, logger)
		if err != nil {
			return err
		}
		defer closeAudit()
		opts = append(opts, http.WithAuditor(auditor))
	}
	transport := http.NewHTTPTransport(configService, settingsService, opts...)

	if cfg.State.Watch {
		watcher, err := state.NewWatcher(statePath, state.DefaultDebounceInterval, logger)
		if err != nil {
			return fmt.Errorf("failed to watch state file: %w", err)
		}
		reloader := &stateReloader{
			cfg:        cfg,
			stateStore: stateStore,
			authStore:  authStore,
			sessions:   sessions,
			prune:      prune,
			settings:   settingsService,
			metrics:    transport.Metrics(),
			logger:     logger,
		}
		go func() {
			if err := watcher.Watch(ctx, func() error { return reloader.reload(ctx) }); err != nil {
				logger.Error("state watcher stopped", "error", err)
			}
		}()
	}

	identities, keys := authStore.Counts()
	printBanner(os.Stderr, Version, cfg.Server.HTTPAddr, cfg.Server.ContextPath, cfg.DevMode, identities, keys, len(appState.ImagingSessions))

	return transport.Start(ctx)
}

// openAuditTrail starts the audit service on a file store, or on stdout
// when no directory is configured. The returned function flushes and
// closes it.
func openAuditTrail(cfg config.AuditConfig, logger *slog.Logger) (*service.AuditService, func(), error) {
	var store audit.Store
	if cfg.Dir != "" {
		fileStore, err := auditstore.NewFileStore(auditstore.Config{
			Dir:           cfg.Dir,
			RetentionDays: cfg.RetentionDays,
			MaxFileSizeMB: cfg.MaxFileSizeMB,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit directory: %w", err)
		}
		store = fileStore
	} else {
		store = memory.NewAuditStore(os.Stdout, 0)
	}

	svc := service.NewAuditService(store, logger)
	// Not tied to the serve context: requests finishing during shutdown
	// still record, and Stop drains the queue.
	svc.Start(context.Background())
	logger.Info("access audit enabled", "dir", cfg.Dir)
	return svc, func() {
		svc.Stop()
		if err := store.Close(); err != nil {
			logger.Warn("failed to close audit store", "error", err)
		}
		if drops := svc.DroppedRecords(); drops > 0 {
			logger.Warn("audit records dropped", "count", drops)
		}
	}, nil
}

// openSessionStore opens the configured imaging session backend. The
// returned function releases it.
func openSessionStore(cfg *config.AppConfig, logger *slog.Logger) (sessionBackend, func(), error) {
	switch cfg.Sessions.Backend {
	case config.SessionBackendSQLite:
		store, err := sqlite.Open(cfg.Sessions.SQLitePath, sqlite.DefaultBusyTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		logger.Info("imaging sessions: sqlite", "path", store.Path())
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close session database", "error", err)
			}
		}, nil
	default:
		logger.Debug("imaging sessions: memory")
		return memory.NewImagingStore(), func() {}, nil
	}
}

// sessionBackend is a session store that can also be seeded.
type sessionBackend interface {
	imaging.SessionStore
	imaging.SessionWriter
}

// stateReloader applies an externally changed state.json to the running
// server.
type stateReloader struct {
	cfg        *config.AppConfig
	stateStore *state.FileStateStore
	authStore  *memory.AuthStore
	sessions   imaging.SessionWriter
	prune      bool
	settings   *service.SettingsService
	metrics    *http.Metrics
	logger     *slog.Logger
}

func (r *stateReloader) reload(ctx context.Context) error {
	appState, err := r.stateStore.Load()
	if err != nil {
		r.metrics.SettingsReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("reload state: %w", err)
	}
	if err := r.settings.Reload(); err != nil {
		r.metrics.SettingsReloads.WithLabelValues("error").Inc()
		return err
	}
	seedAuth(r.cfg, appState, r.authStore, r.logger)
	if err := seedSessions(ctx, appState, r.sessions, r.prune, r.logger); err != nil {
		r.metrics.SettingsReloads.WithLabelValues("error").Inc()
		return err
	}
	r.metrics.SettingsReloads.WithLabelValues("ok").Inc()
	r.logger.Info("state reloaded", "path", r.stateStore.Path())
	return nil
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner prints a short startup summary.
func printBanner(w io.Writer, version, httpAddr, contextPath string, devMode bool, identities, keys, sessions int) {
	const (
		reset = "\033[0m"
		bold  = "\033[1m"
		dim   = "\033[2m"
	)
	mode := "production"
	if devMode {
		mode = "development (API key: " + config.DevAPIKey + ")"
	}
	mount := contextPath
	if mount == "" {
		mount = "/"
	}
	fmt.Fprintf(w, "\n%svolviewd %s%s\n", bold, version, reset)
	fmt.Fprintf(w, "  %sListen:%s     http://%s\n", dim, reset, httpAddr)
	fmt.Fprintf(w, "  %sMounted at:%s %s\n", dim, reset, mount)
	fmt.Fprintf(w, "  %sMode:%s       %s\n", dim, reset, mode)
	fmt.Fprintf(w, "  %sAuth:%s       %d identities, %d keys\n", dim, reset, identities, keys)
	fmt.Fprintf(w, "  %sSessions:%s   %d from state.json\n\n", dim, reset, sessions)
}
