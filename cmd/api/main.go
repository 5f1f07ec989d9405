package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/concierge/backend/internal/analysis/recommend"
	"github.com/zhouzirui/concierge/backend/internal/config"
	"github.com/zhouzirui/concierge/backend/internal/handler"
	assistanthandler "github.com/zhouzirui/concierge/backend/internal/handler/assistant"
	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
	"github.com/zhouzirui/concierge/backend/internal/service/assistant"
	"github.com/zhouzirui/concierge/backend/internal/service/interaction"
	"github.com/zhouzirui/concierge/backend/internal/service/resolver"
)

const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	log := logging.Init()
	defer logging.Sync()

	if envErr != nil {
		log.Infow("no .env file loaded, continuing with system environment variables only", "error", envErr)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	// Service catalog: embedded seed, optionally overridden by a hot-reloaded file
	store := catalog.NewMemoryStore(catalog.Seed())
	if cfg.Catalog.Path != "" {
		if err := catalog.Watch(ctx, cfg.Catalog.Path, store); err != nil {
			log.Fatalw("failed to load catalog override", "path", cfg.Catalog.Path, "error", err)
		}
		log.Infow("catalog override loaded", "path", cfg.Catalog.Path, "services", len(store.Services()))
	}

	res, err := resolver.New(ctx, recommend.New(store), store, resolver.Config{NavigationDelay: cfg.Assistant.NavigationDelay})
	if err != nil {
		log.Fatalw("failed to build resolver", "error", err)
	}

	// Interaction logging: SQLite when configured, structured log otherwise
	var (
		sink    interaction.Sink = interaction.LogSink{}
		history assistanthandler.History
		closeDB = func() error { return nil }
	)
	if cfg.Interaction.DBPath != "" {
		db, err := interaction.OpenSQLite(cfg.Interaction.DBPath)
		if err != nil {
			log.Fatalw("failed to open interaction database", "path", cfg.Interaction.DBPath, "error", err)
		}
		sink, history, closeDB = db, db, db.Close
		log.Infow("interaction log persisted to sqlite", "path", cfg.Interaction.DBPath)
	} else {
		log.Infow("INTERACTION_DB_PATH not set, interactions are only logged")
	}
	interactions := interaction.New(sink, interaction.Options{QueueSize: cfg.Interaction.QueueSize})

	sessions := assistant.NewManager(assistant.ManagerConfig{
		Resolver:    res,
		Logger:      interactions,
		Settings:    cfg.Assistant.Voice,
		IdleTimeout: cfg.Assistant.IdleTimeout,
	})

	router := handler.NewRouter(handler.Deps{
		Sessions:       sessions,
		Resolver:       res,
		Catalog:        store,
		History:        history,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("detailing concierge backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sessions.RunSweeper(gctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// websocket connections are hijacked, so Shutdown does not wait for them
		err := srv.Shutdown(shutdownCtx)
		sessions.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Errorw("server error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := interactions.Close(drainCtx); err != nil {
		log.Warnw("interaction log not fully drained", "error", err, "dropped", interactions.Dropped())
	}
	if err := closeDB(); err != nil {
		log.Warnw("failed to close interaction database", "error", err)
	}
	log.Infow("shutdown complete", "interactions", interactions.Written())
}
