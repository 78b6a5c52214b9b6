package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/api"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/provision"
	"hostel-allocation-backend/internal/session"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/upload"
)

const limiterIdleTimeout = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the provisioning loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// core is the state shared by every command that touches allocations.
type core struct {
	db     *gorm.DB
	store  store.Store
	cache  *cache.Store
	engine *allocation.Engine
}

func (c *core) Close() {
	if err := c.cache.Close(); err != nil {
		logging.Logger.Warn().Err(err).Msg("failed to close cache")
	}
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openCore connects the database, opens the cache and loads the engine. The
// notifier may be nil for one-shot commands.
func openCore(ctx context.Context, cfg *config.Config, notifier allocation.Notifier) (*core, error) {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)

	cacheStore, err := cache.New(cache.Options{
		DurablePath:     cfg.Cache.DurablePath,
		CleanupInterval: time.Duration(cfg.Cache.CleanupIntervalSeconds) * time.Second,
		Coalesce:        cfg.Cache.Coalesce,
	})
	if err != nil {
		if sqlDB, dbErr := gormDB.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	engine := allocation.New(appStore, allocation.Options{
		RejectDuplicates: cfg.Allocation.RejectDuplicateSubmissions,
		Cache:            cacheStore,
		Notifier:         notifier,
	})

	c := &core{db: gormDB, store: appStore, cache: cacheStore, engine: engine}
	if err := engine.Load(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// lazyNotifier forwards to the pool once it exists; the pool needs the store
// and the engine needs the notifier.
type lazyNotifier struct {
	pool *notification.WorkerPool
}

func (n *lazyNotifier) Notify(app model.Application) {
	if n.pool != nil {
		n.pool.Notify(app)
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	log := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := &lazyNotifier{}
	c, err := openCore(ctx, cfg, notifier)
	if err != nil {
		return err
	}
	defer c.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	// The pool outlives the signal so requests drained by Shutdown still queue notices.
	poolCtx, stopPool := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPool()
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, c.store)
	pool.Start(poolCtx)
	notifier.pool = pool

	sessions := session.NewManager(session.Options{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
	}, c.cache)

	handler := api.NewHandler(api.Deps{
		Engine:     c.engine,
		Notices:    c.store,
		Sessions:   sessions,
		Uploads:    upload.NewEncoder(cfg.Upload.MaxBytes, cfg.Upload.AllowedMIMEType),
		Cache:      c.cache,
		SessionTTL: cfg.Session.TTL,
	})

	limiter := mw.NewClientRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go pruneLimiter(ctx, limiter)

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins:    cfg.Server.CORSOrigins,
		Limiter:        limiter,
		RouteCacheTTL:  time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		ClientIPHeader: cfg.Server.RequestIPHeader,
	})

	provisionSvc := provision.NewService(cfg, c.store, c.engine, c.cache)
	go provisionSvc.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping services")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	stopPool()
	if err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}

func pruneLimiter(ctx context.Context, limiter *mw.ClientRateLimiter) {
	ticker := time.NewTicker(limiterIdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(limiterIdleTimeout); n > 0 {
				logging.Logger.Debug().Int("clients", n).Msg("pruned idle rate limiters")
			}
		}
	}
}
