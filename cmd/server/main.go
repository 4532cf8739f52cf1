package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-console/internal/auth"
	"rental-console/internal/config"
	"rental-console/internal/gateway"
	"rental-console/internal/handlers"
	"rental-console/internal/logger"
	"rental-console/internal/storage"
	"rental-console/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const cleanupInterval = time.Hour

type sessionCounter interface {
	SessionCount(ctx context.Context) (int, error)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger) error {
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingSettings{
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		SamplingRate: cfg.Telemetry.SamplingRate,
	}, zl)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			zl.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer store.Close()

	backend, err := gateway.New(gateway.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		Registerer: reg,
	}, zl.Named("gateway"))
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	metrics, err := telemetry.NewHTTPMetrics(telemetry.HTTPMetricsOptions{Registerer: reg})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	h := handlers.NewHandlers(store, backend, handlers.Config{
		TemplateDir:     cfg.App.TemplateDir,
		SecureCookie:    cfg.App.SecureCookie,
		SessionDuration: cfg.Session.Duration,
	}, zl)

	mux := setupRouter(h, cfg.App.StaticDir)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           handlers.RequestID(handlers.AccessLog(zl)(metrics.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go cleanupSessions(ctx, store, zl)

	zl.Info("starting rental console",
		zap.String("env", cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("session_store", cfg.Session.Store),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger) (storage.SessionStore, error) {
	sealer, err := auth.NewSealer(cfg.Session.Secret)
	if err != nil {
		return nil, fmt.Errorf("init token sealer: %w", err)
	}

	if cfg.Session.Store == "redis" {
		client, err := storage.NewRedisClient(ctx, storage.RedisSettings{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, zl)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store, err := storage.NewRedisStore(client, sealer, cfg.Redis.Prefix, zl.Named("sessions"))
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	}

	db, err := storage.NewDB(cfg.Session.DBPath, sealer)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	return db, nil
}

func cleanupSessions(ctx context.Context, store storage.SessionStore, zl *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.CleanExpiredSessions(ctx); err != nil {
				zl.Warn("clean expired sessions", zap.Error(err))
				continue
			}
			if counter, ok := store.(sessionCounter); ok {
				if n, err := counter.SessionCount(ctx); err == nil {
					zl.Info("expired sessions cleaned", zap.Int("remaining", n))
				}
			}
		}
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /signup", h.SignupForm)
	mux.HandleFunc("POST /signup", h.Signup)

	protected := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(fn)
	}

	mux.Handle("GET /{$}", protected(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}))
	mux.Handle("GET /dashboard", protected(h.Dashboard))

	mux.Handle("GET /roles", protected(h.ListRoles))
	mux.Handle("GET /roles/new", protected(h.NewRoleForm))
	mux.Handle("POST /roles", protected(h.CreateRole))
	mux.Handle("GET /roles/{id}/edit", protected(h.EditRoleForm))
	mux.Handle("POST /roles/{id}", protected(h.UpdateRole))
	mux.Handle("POST /roles/{id}/delete", protected(h.DeleteRole))

	mux.Handle("GET /items", protected(h.ListItems))
	mux.Handle("GET /items/new", protected(h.NewItemForm))
	mux.Handle("POST /items", protected(h.CreateItem))
	mux.Handle("GET /items/{id}/edit", protected(h.EditItemForm))
	mux.Handle("POST /items/{id}", protected(h.UpdateItem))
	mux.Handle("POST /items/{id}/delete", protected(h.DeleteItem))
	mux.Handle("GET /users/{userId}/items", protected(h.ListUserItems))

	mux.Handle("GET /orders", protected(h.Orders))
	mux.Handle("GET /orders/quote", protected(h.Quote))
	mux.Handle("POST /orders", protected(h.CreateOrder))
	mux.Handle("GET /orders/{id}", protected(h.OrderDetail))
	mux.Handle("GET /your-orders", protected(h.YourOrders))

	return mux
}
