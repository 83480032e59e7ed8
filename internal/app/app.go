package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/config"
	"go-shop-api/internal/database"
	"go-shop-api/internal/event"
	"go-shop-api/internal/handler"
	"go-shop-api/internal/middleware"
	"go-shop-api/internal/repository"
	"go-shop-api/internal/router"
	"go-shop-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	bus          *event.InMemoryBus
	workers      sync.WaitGroup
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	store := cache.NewStore(backend, logger)
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = store.Close() })

	userRepo := repository.NewUserRepository(db.Pool)
	profileRepo := repository.NewProfileRepository(db.Pool)
	productRepo := repository.NewProductRepository(db.Pool)
	orderRepo := repository.NewOrderRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)

	a.bus = event.NewBus()
	auditService := service.NewAuditService(auditRepo)
	a.startAuditTrail(auditService)
	a.startKafkaForwarder(cfg)

	authService := service.NewAuthService(userRepo, store, a.bus, service.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RevocationTTL: cfg.BlacklistTTL(),
		UserCacheTTL:  cfg.UserCacheTTL,
		BcryptCost:    bcrypt.DefaultCost,
	})
	productService := service.NewProductService(productRepo, store, cfg.ProductCacheTTL, cfg.ListCacheTTL)
	orderService := service.NewOrderService(orderRepo, store, a.bus, cfg.OrderCacheTTL, cfg.ListCacheTTL)
	userService := service.NewUserService(profileRepo, orderRepo, store, a.bus, cfg.ProfileCacheTTL, cfg.DashboardCacheTTL)

	appRouter := router.New(router.Options{
		CORSOrigins:      cfg.CORSOrigins,
		RateLimitRPM:     cfg.RateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		RequestTimeout:   cfg.RequestTimeout,
	}, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:    handler.NewAuthHandler(authService, handler.SessionCookie{Secure: cfg.SessionCookieSecure, TTL: cfg.JWTAccessTTL}),
		Product: handler.NewProductHandler(productService),
		Order:   handler.NewOrderHandler(orderService),
		User:    handler.NewUserHandler(userService),
		Audit:   handler.NewAuditHandler(auditService),
		Health:  handler.NewHealthHandler(handler.PingFunc(db.Health), store),
		Docs:    handler.NewDocsHandler(),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// the event consumers before releasing the stores.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.bus.Close()
	a.workers.Wait()
	a.cleanup()

	slog.Info("server stopped")
	return runErr
}

func (a *App) startAuditTrail(audit *service.AuditService) {
	events, _ := a.bus.Subscribe()
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		audit.Run(context.Background(), events)
	}()
}

func (a *App) startKafkaForwarder(cfg *config.Config) {
	if len(cfg.KafkaBrokers) == 0 {
		slog.Info("kafka forwarding disabled")
		return
	}

	forwarder := event.NewKafkaForwarder(event.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	events, _ := a.bus.Subscribe()
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		forwarder.Run(context.Background(), events)
	}()
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		if err := forwarder.Close(); err != nil {
			slog.Warn("kafka writer close failed", "error", err)
		}
	})

	slog.Info("kafka forwarding enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
}

// cleanup releases resources in reverse acquisition order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryBackend(time.Minute), nil
	}

	backend, err := cache.NewRedisBackend(ctx, cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		return nil, err
	}
	slog.Info("redis connected", "pool_size", cfg.RedisPoolSize)
	return backend, nil
}
