// Package app assembles the service from its subsystems.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/api"
	"github.com/quillworks/novelforge/internal/archive"
	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/events"
	"github.com/quillworks/novelforge/internal/fetch"
	"github.com/quillworks/novelforge/internal/ingest"
	"github.com/quillworks/novelforge/internal/logging"
	"github.com/quillworks/novelforge/internal/novel"
	"github.com/quillworks/novelforge/internal/policy/ratelimit"
	"github.com/quillworks/novelforge/internal/sites"
	"github.com/quillworks/novelforge/internal/storage/memory"
	"github.com/quillworks/novelforge/internal/storage/postgres"
)

// App owns the wired subsystems and their lifecycles.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     novel.Store
	renderer  novel.Renderer
	publisher novel.Publisher
	orch      *ingest.Orchestrator
	server    *api.Server
}

// New wires the full service: store, fetch stack, site registry,
// orchestrator and HTTP API. An empty db.dsn selects the in-memory
// store.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using in-memory store")
		a.store = memory.NewStore()
	} else {
		store, err := postgres.NewStore(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = store
	}

	fetcher, err := a.buildFetcher()
	if err != nil {
		a.store.Close()
		return nil, err
	}

	blobs, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}
	publisher, err := events.New(ctx, cfg.Events)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open publisher: %w", err)
	}
	a.publisher = publisher

	registry := sites.NewRegistry(sites.Options{
		Fetcher:          fetcher,
		Logger:           logger,
		MinContentLength: cfg.Ingest.MinContentLength,
	})

	orch, err := ingest.New(ingest.Options{
		Store:     a.store,
		Registry:  registry,
		Fetcher:   fetcher,
		Blobs:     blobs,
		Publisher: publisher,
		Logger:    logger,
		Config:    cfg.Ingest,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orch = orch
	a.server = api.NewServer(a.store, orch, novel.SystemClock{}, logger, cfg)
	return a, nil
}

// buildFetcher stacks per-domain pacing and optional headless promotion
// on top of the base colly fetcher.
func (a *App) buildFetcher() (novel.Fetcher, error) {
	logger := logging.Component(a.logger, "fetch")
	base, err := fetch.NewCollyFetcher(a.cfg.Fetch, logger)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	var fetcher novel.Fetcher = base
	if a.cfg.Headless.Enabled {
		renderer, err := fetch.NewChromedpRenderer(a.cfg.Headless, a.cfg.Fetch.UserAgent, a.logger)
		if err != nil {
			return nil, fmt.Errorf("build renderer: %w", err)
		}
		a.renderer = renderer
		detector := fetch.NewShellDetector(
			a.cfg.Headless.MinHTMLBytes,
			a.cfg.Headless.ContentMustSel,
			a.cfg.Headless.ShellKeywords,
		)
		fetcher = fetch.NewPromotingFetcher(fetcher, renderer, detector, a.logger)
	}

	limiter := ratelimit.New(ratelimit.Config{
		DomainRPS:   a.cfg.Fetch.DomainRPS,
		DomainBurst: a.cfg.Fetch.DomainBurst,
		MinDelay:    a.cfg.Fetch.ChapterDelay,
	})
	return fetch.NewPacedFetcher(fetcher, limiter), nil
}

// Orchestrator exposes the ingest pipeline for one-shot commands.
func (a *App) Orchestrator() *ingest.Orchestrator {
	return a.orch
}

// Run serves HTTP and polls for pending requests until a signal or ctx
// cancellation.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("ingest poller started",
			zap.Duration("interval", a.cfg.Ingest.PollInterval))
		if err := a.orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("ingest poller stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()
	a.logger.Info("shutdown complete")
	return nil
}

// Close releases the app's resources. Safe to call more than once.
func (a *App) Close() {
	if a.renderer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.renderer.Close(ctx); err != nil {
			a.logger.Warn("renderer close failed", zap.Error(err))
		}
		cancel()
		a.renderer = nil
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
		a.publisher = nil
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}
