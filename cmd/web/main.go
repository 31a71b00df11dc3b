package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/cms"
	"leftmove.org/leftmove-web/internal/config"
	"leftmove.org/leftmove-web/internal/handlers"
	"leftmove.org/leftmove-web/internal/i18n"
	mw "leftmove.org/leftmove-web/internal/middleware"
	"leftmove.org/leftmove-web/internal/observability"
	"leftmove.org/leftmove-web/internal/secrets"
	"leftmove.org/leftmove-web/internal/submission"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	// devMode reparses templates on every request and disables the content cache.
	devMode bool

	siteCfg        config.Config
	i18nBundle     *i18n.Bundle
	contentClient  *cms.Client
	submissionSink submission.Sink = submission.NewFanout()
	messageBuilder                 = submission.NewBuilder(nil)
	analytics      handlers.Analytics
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := secrets.NewFetcher(secrets.WithDefaultProject(firstNonEmpty(
		os.Getenv("LEFTMOVE_WEB_GCP_PROJECT_ID"),
		os.Getenv("GOOGLE_CLOUD_PROJECT"),
	)))
	defer fetcher.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var (
		addr     string
		tmplPath string
		pubPath  string
	)
	flag.StringVar(&addr, "addr", ":"+cfg.Server.Port, "HTTP listen address")
	flag.StringVar(&tmplPath, "templates", cfg.Paths.Templates, "templates directory")
	flag.StringVar(&pubPath, "public", cfg.Paths.Public, "public assets directory")
	flag.Parse()
	templatesDir = tmplPath
	publicDir = pubPath
	devMode = cfg.Dev

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := setup(ctx, cfg, logger); err != nil {
		return err
	}

	sink, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open submission sinks: %w", err)
	}
	defer closeSinks()
	submissionSink = sink

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(logger, cfg.Server.RequestTimeout),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", addr),
			zap.Bool("dev", devMode),
			zap.Strings("submission_sinks", cfg.Submission.Sinks),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setup loads every shared resource the handlers read.
func setup(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	siteCfg = cfg
	analytics = handlers.AnalyticsFromConfig(cfg.Analytics)

	mw.ConfigureSession(mw.SessionOptions{
		SigningKey: []byte(cfg.Session.SigningKey),
		Secure:     cfg.Session.Secure || cfg.Production(),
	})
	if cfg.Session.SigningKey == "" {
		logger.Warn("session signing key not set; using a process-local key")
	}

	bundle, err := i18n.Load(cfg.Paths.Locales, cfg.Locale.Default, cfg.Locale.Supported)
	if err != nil {
		return fmt.Errorf("load i18n: %w", err)
	}
	i18nBundle = bundle

	ttl := 5 * time.Minute
	if cfg.Dev {
		ttl = 0
	}
	contentClient = cms.NewClient(cfg.Paths.Content,
		cms.WithFallbackLang(cfg.Locale.Default),
		cms.WithCacheTTL(ttl),
	)

	if !cfg.Dev {
		// parse once in production
		if err := loadTemplates(); err != nil {
			return fmt.Errorf("parse templates: %w", err)
		}
	}
	return ctx.Err()
}

// newRouter wires middleware and routes. Shared by main and tests.
func newRouter(logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLogger(logger))
	r.Use(observability.TraceMiddleware)
	r.Use(mw.Logger)
	r.Use(observability.Recovery)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(publicDir+"/assets", 24*time.Hour))
	r.Handle("/assets/*", assets)

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(mw.Session)
		r.Use(mw.Locale(i18nBundle))
		r.Use(mw.CSRF)
		r.Use(mw.VaryLocale)

		r.Get("/", ContentPageHandler)
		r.Get("/problem", ContentPageHandler)
		r.Get("/solution", ContentPageHandler)
		r.Get("/contact", ContactPageHandler)
		r.Post("/contact", ContactSubmitHandler)
		r.Post("/contact/field", ContactFieldHandler)
		r.Post("/nav/toggle", NavToggleHandler)
		r.NotFound(NotFoundHandler)
	})
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
