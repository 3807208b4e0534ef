// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lumen/internal/api"
	"github.com/starford/lumen/internal/index"
	"github.com/starford/lumen/internal/mcpserver"
	"github.com/starford/lumen/internal/noteservice"
	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/sse"
	"github.com/starford/lumen/internal/storage"
)

// engine is the wired core shared by every entry point.
type engine struct {
	cfg    *Config
	logger *slog.Logger
	vault  *storage.FS
	db     *index.DB
	store  *notestore.Store
	svc    *noteservice.Service
}

func (e *engine) Close() error {
	return e.db.Close()
}

// open applies opts, installs the JSON logger and loads the note collection:
// the store is restored from the SQLite cache, then reconciled with the vault.
func open(opts ...Option) (*engine, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Float64("search_threshold", cfg.Search.Threshold),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	store := notestore.New(notestore.WithThresholds(cfg.Search.Threshold, cfg.Search.TagThreshold))
	start := time.Now()
	n, err := index.Restore(db, store)
	if err != nil {
		logger.Warn("cache restore failed", slog.String("error", err.Error()))
	}
	if err := index.Sync(db, vault, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	logger.Info("Notes loaded",
		slog.Int("cached", n),
		slog.Int("notes", store.Snapshot().Len()),
		slog.Duration("took", time.Since(start)))

	svc := noteservice.NewService(store, vault, db, noteservice.WithLimit(cfg.Search.Limit))
	return &engine{cfg: cfg, logger: logger, vault: vault, db: db, store: store, svc: svc}, nil
}

// Run starts the HTTP server and the vault watcher and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	e, err := open(opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg, logger := e.cfg, e.logger

	broker := sse.NewBroker(cfg.Watch.EventThrottle)
	defer broker.Close()
	unfollow := broker.Follow(e.store)
	defer unfollow()

	apiRouter := api.NewRouter(e.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","notes":%d,"version":%d}`, e.store.Snapshot().Len(), e.store.Version())
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			if err := index.Watch(gCtx, e.db, e.vault, e.store, e.vault.Root(), logger); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// ServeMCP runs the MCP server on stdin/stdout, keeping the store in step
// with the vault while the session lasts. Logs go to stderr unless another
// output is configured.
func ServeMCP(ctx context.Context, opts ...Option) error {
	e, err := open(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Watch.Enabled {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := index.Watch(wctx, e.db, e.vault, e.store, e.vault.Root(), e.logger); err != nil {
				e.logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}
	return mcpserver.New(e.svc).ServeStdio()
}

// Query prints the notes matching q as tab-separated id and title lines.
func Query(ctx context.Context, w io.Writer, q string, limit int, opts ...Option) error {
	e, err := open(opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	for _, n := range e.svc.Search(ctx, q, limit) {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", n.ID, n.Title); err != nil {
			return err
		}
	}
	return nil
}

// Tags prints every tag with the number of notes using it.
func Tags(ctx context.Context, w io.Writer, opts ...Option) error {
	e, err := open(opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	for _, t := range e.svc.Tags(ctx) {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", t.Name, len(t.NoteIDs)); err != nil {
			return err
		}
	}
	return nil
}
