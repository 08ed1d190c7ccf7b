package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookshelf/internal/bot"
	"bookshelf/internal/collection"
	"bookshelf/internal/config"
	"bookshelf/internal/logger"
	"bookshelf/internal/models"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/cache"
	"bookshelf/internal/storage/ch"
	"bookshelf/internal/storage/pg"
	"bookshelf/internal/storage/stubs"
)

const (
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 5 * time.Second
)

// App represents the application
type App struct {
	config   *config.Config
	logger   *zap.Logger
	cache    *cache.Cache
	remote   storage.Remote
	store    *collection.Store
	registry *prometheus.Registry
	bot      *bot.Bot
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		log.Info("No .env file found, using system environment variables")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:   cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
	log.Info("Starting Bookshelf...")

	if err := a.initStorage(); err != nil {
		cancel()
		return nil, err
	}
	a.initStore()

	if err := a.initBot(); err != nil {
		a.closeStorage()
		cancel()
		return nil, err
	}

	a.initHTTPServer()
	return a, nil
}

// initStorage opens the local cache and the remote store
func (a *App) initStorage() error {
	if err := a.initCache(); err != nil {
		return err
	}
	if err := a.initRemote(a.ctx); err != nil {
		a.closeStorage()
		return err
	}
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.store, a.config.AllowedUserIDs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))
	a.bot = telegramBot
	return nil
}

// initCache opens the local cache, or a disabled one when configured so
func (a *App) initCache() error {
	if a.config.CacheDisabled {
		a.logger.Info("Local cache disabled")
		a.cache = cache.Disabled()
		return nil
	}

	c, err := cache.Open(a.config.CachePath, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open local cache at %s: %w", a.config.CachePath, err)
	}
	a.logger.Info("Local cache opened", zap.String("path", a.config.CachePath))
	a.cache = c
	return nil
}

// initRemote connects the configured remote store. No driver leaves the store local-only.
// An unreachable server is not fatal: hydration then falls back to the local cache.
func (a *App) initRemote(ctx context.Context) error {
	if !a.config.RemoteEnabled() {
		a.logger.Info("No remote store configured, running local-only")
		return nil
	}

	switch a.config.RemoteDriver {
	case config.DriverMemory:
		a.logger.Info("Using in-memory remote store")
		a.remote = stubs.NewMockDB()
		return nil
	case config.DriverClickHouse:
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		a.remote = db
		a.checkRemote(ctx, db)
	case config.DriverPostgres:
		a.logger.Info("Connecting to PostgreSQL")
		db, err := pg.NewPostgresDB(ctx, a.config.PostgresDSN, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		a.remote = db
		a.checkRemote(ctx, db)
	default:
		return fmt.Errorf("unknown remote driver %q", a.config.RemoteDriver)
	}
	return nil
}

// checkRemote pings the remote store and only warns when it does not answer
func (a *App) checkRemote(ctx context.Context, p interface{ Ping(context.Context) error }) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		a.logger.Warn("Remote store is unreachable, hydration will fall back to the local cache", zap.Error(err))
		return
	}
	a.logger.Info("Remote store connected", zap.String("driver", a.config.RemoteDriver))
}

func (a *App) initStore() {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.store = collection.New(a.cache, a.remote, a.logger,
		collection.WithTimeouts(a.config.HydrationFallbackTimeout, a.config.HydrationRaceTimeout),
		collection.WithMetrics(collection.NewMetrics(a.registry)),
	)
	a.store.Subscribe(func(c models.Collection) {
		a.logger.Debug("Collection changed",
			zap.Int("owned", len(c.Owned)),
			zap.Int("passed_along", len(c.PassedAlong)),
			zap.Int("ebook", len(c.Ebook)),
		)
	})
}

// initHTTPServer builds the HTTP server for health checks, metrics, the webhook and the API
func (a *App) initHTTPServer() {
	api := bot.NewHTTPServer(a.bot, a.config.WebhookMode)
	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(a.config.Port),
		Handler:      a.routes(api.Routes(), a.bot.WebhookHandler(a.ctx)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (a *App) routes(api http.Handler, webhook http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Bookshelf is running (mode: %s, store: %s, hydrated: %t)",
			mode, a.store.Mode(), a.store.Hydrated())
	})

	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Post(bot.WebhookPath, webhook)
	r.Mount("/api", api)
	return r
}

// requestLogger logs each HTTP request at debug level
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Run hydrates the store, serves HTTP and runs the bot until SIGINT or SIGTERM
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := a.store.Hydrate(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("hydration failed: %w", err)
		}
		a.logger.Info("Collection hydrated", zap.String("source", string(out.Source)))
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if a.config.WebhookMode {
			a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			a.logger.Info("Webhook configured", zap.String("path", bot.WebhookPath))
			return nil
		}
		a.logger.Info("Starting bot in POLLING mode")
		return a.bot.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if shutdownErr := a.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown releases the remote store and the local cache
func (a *App) Shutdown() error {
	a.cancel()
	err := a.closeStorage()
	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return err
}

func (a *App) closeStorage() error {
	var errs []error
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Error("Error closing remote store", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("Error closing local cache", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
