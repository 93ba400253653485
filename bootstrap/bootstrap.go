// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/registrar/adapters/clock"
	"github.com/artpar/registrar/adapters/hasher"
	apihttp "github.com/artpar/registrar/adapters/http"
	"github.com/artpar/registrar/adapters/idgen"
	"github.com/artpar/registrar/adapters/memory"
	"github.com/artpar/registrar/adapters/metrics"
	"github.com/artpar/registrar/adapters/postgres"
	"github.com/artpar/registrar/adapters/sqlite"
	"github.com/artpar/registrar/adapters/tracing"
	"github.com/artpar/registrar/app"
	"github.com/artpar/registrar/config"
	"github.com/artpar/registrar/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Users      ports.UserStore
	Signup     *app.Signup
	Metrics    *metrics.Collector
	Tracing    *tracing.Provider
	HTTPServer *http.Server

	holder    *config.Holder
	closeDB   func() error
	registry  *prometheus.Registry
	handler   http.Handler
	startedAt time.Time
}

// Options controls application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration comes from REGISTRAR_* environment variables.
	ConfigPath string

	// HotReload watches the config file and SIGHUP for changes.
	// Requires ConfigPath to exist.
	HotReload bool

	// Version is reported by the /version endpoint.
	Version string

	// LogOutput receives log lines. Defaults to os.Stdout.
	LogOutput io.Writer
}

// New loads configuration and creates the application.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.HotReload {
		holder, err := config.NewHolder(opts.ConfigPath, zerolog.Nop())
		if err != nil {
			return nil, err
		}
		a, err := NewWithConfig(ctx, holder.Get(), opts)
		if err != nil {
			holder.Stop()
			return nil, err
		}
		a.attachHolder(holder)
		return a, nil
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg, opts)
}

// NewWithConfig creates the application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)

	logger.Info().
		Str("driver", cfg.Database.Driver).
		Int("hash_cost", cfg.Hashing.Cost).
		Msg("initializing registrar")

	a := &App{
		Config:    cfg,
		Logger:    logger,
		startedAt: time.Now(),
	}

	users, closeDB, err := OpenUserStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.Users = users
	a.closeDB = closeDB

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.Tracing = tp

	// A private registry keeps several App instances in one process apart.
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.registry)
	if cfg.Metrics.Enabled {
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.Signup = NewSignup(SignupDeps{
		Users:   users,
		Cost:    cfg.Hashing.Cost,
		Logger:  logger,
		Metrics: a.Metrics,
		Tracer:  tp.Tracer(),
	})

	a.initHTTPServer(opts.Version)
	return a, nil
}

// SignupDeps contains the dependencies for NewSignup.
type SignupDeps struct {
	Users   ports.UserStore
	Cost    int
	IDGen   ports.IDGenerator // Default UUID
	Clock   ports.Clock       // Default real time
	Logger  zerolog.Logger
	Metrics app.Metrics
	Tracer  trace.Tracer // Optional
}

// NewSignup assembles the validation engine and registration service over
// a user store.
func NewSignup(deps SignupDeps) *app.Signup {
	ids := deps.IDGen
	if ids == nil {
		ids = idgen.UUID{}
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	engine := app.NewValidationEngine(app.ValidationDeps{
		Checker: app.NewUniquenessChecker(deps.Users),
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
		Tracer:  deps.Tracer,
	})
	service := app.NewRegistrationService(app.RegistrationDeps{
		Users:   deps.Users,
		Hasher:  hasher.NewBcrypt(deps.Cost),
		IDGen:   ids,
		Clock:   clk,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
		Tracer:  deps.Tracer,
	})
	return app.NewSignup(engine, service, deps.Logger, deps.Metrics)
}

// OpenUserStore opens the store selected by cfg.Driver, applies migrations
// and returns it with its close function.
func OpenUserStore(ctx context.Context, cfg config.DatabaseConfig) (ports.UserStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewUserStore(), func() error { return nil }, nil

	case config.DriverSQLite, "":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return sqlite.NewUserStore(db), db.Close, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewUserStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func (a *App) initHTTPServer(version string) {
	routerCfg := apihttp.RouterConfig{
		RequestTimeout: a.Config.Server.RequestTimeout,
		Version:        version,
		EnableOpenAPI:  a.Config.OpenAPI.Enabled,
	}
	if a.Config.Metrics.Enabled {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsPath = a.Config.Metrics.Path
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	a.handler = apihttp.NewRouter(
		apihttp.NewUsersHandler(a.Signup, a.Logger),
		apihttp.NewHealthHandler(a.Users),
		a.Logger,
		routerCfg,
	)

	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Handler returns the application's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) attachHolder(h *config.Holder) {
	a.holder = h

	h.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
		a.Logger.Info().Str("level", cfg.Logging.Level).Msg("configuration applied")
	})
	h.OnError(func(err error) {
		a.Metrics.ConfigReloadErrors.Inc()
		a.Logger.Error().Err(err).Msg("configuration reload rejected")
	})

	if err := h.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	h.WatchSignals()
}

// Run starts the HTTP server and blocks until ctx is done, a termination
// signal arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Tracing != nil {
		if err := a.Tracing.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.closeDB = nil
	}

	a.Logger.Info().Dur("uptime", time.Since(a.startedAt)).Msg("shutdown complete")
	return nil
}

// NewLogger builds a logger from the logging configuration and sets the
// global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
