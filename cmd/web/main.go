package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/cms"
	"kabaranime.id/portal/internal/config"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/inbox"
	"kabaranime.id/portal/internal/markup"
	"kabaranime.id/portal/internal/observability"
	"kabaranime.id/portal/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "web:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// flags override the environment for local runs
	flag.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP listen address")
	flag.StringVar(&cfg.Paths.Templates, "templates", cfg.Paths.Templates, "templates directory")
	flag.StringVar(&cfg.Paths.Public, "public", cfg.Paths.Public, "public assets directory")
	flag.StringVar(&cfg.Paths.Content, "content", cfg.Paths.Content, "content directory")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	d, err := loadDeps(cfg, store, logger)
	if err != nil {
		return err
	}
	a, err := newApp(d)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Dev {
		go func() {
			if err := a.views.Watch(ctx); err != nil {
				logger.Warn("template watcher stopped", zap.Error(err))
			}
		}()
	}
	go a.registry.Run(ctx, cfg.Portal.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("dev", cfg.Dev),
			zap.Int("articles", d.Catalog.Len()),
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Path == "" {
		return storage.NewMemoryStore(), nil
	}
	s, err := storage.OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return s, nil
}

// loadDeps reads locales and bundled content from the configured directories.
func loadDeps(cfg config.Config, store storage.Store, logger *zap.Logger) (deps, error) {
	bundle, err := i18n.Load(cfg.Paths.Locales, cfg.Portal.Language())
	if err != nil {
		return deps{}, fmt.Errorf("load locales: %w", err)
	}
	renderer := markup.New()
	cat, err := catalog.LoadFile(filepath.Join(cfg.Paths.Content, "articles.yaml"), renderer)
	if err != nil {
		return deps{}, fmt.Errorf("load articles: %w", err)
	}
	feed, err := inbox.LoadFeed(filepath.Join(cfg.Paths.Content, "inbox.yaml"))
	if err != nil {
		return deps{}, fmt.Errorf("load inbox: %w", err)
	}
	return deps{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Bundle:   bundle,
		Catalog:  cat,
		Feed:     feed,
		Pages:    cms.NewStore(cfg.Paths.Content, renderer, cfg.Portal.ContentCacheTTL),
		Renderer: renderer,
	}, nil
}
