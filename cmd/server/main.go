package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kyclens/internal/lookup"
	lookuphandler "kyclens/internal/lookup/handler"
	lookupmetrics "kyclens/internal/lookup/metrics"
	"kyclens/internal/platform/config"
	"kyclens/internal/platform/httpserver"
	"kyclens/internal/platform/logger"
	platformredis "kyclens/internal/platform/redis"
	"kyclens/internal/reconcile"
	reconcilemetrics "kyclens/internal/reconcile/metrics"
	"kyclens/internal/source/cache"
	"kyclens/internal/source/forms"
	"kyclens/internal/source/persona"
	"kyclens/internal/source/snapshot"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg, err := config.Load(os.Getenv("KYCLENS_CONFIG_PATH"))
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	log := logger.New(parseLevel(cfg.LogLevel))

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var store cache.Store
	if redisClient != nil {
		store = cache.NewRedis(redisClient.Client)
		log.Info("snapshot cache backend", "backend", "redis")
	} else {
		store = cache.NewMemory()
		log.Info("snapshot cache backend", "backend", "memory")
	}

	provider := persona.New(cfg.Provider.BaseURL, cfg.Provider.APIKey,
		persona.WithPageSize(cfg.Provider.PageSize),
		persona.WithPageTimeout(cfg.Provider.PageTimeout),
		persona.WithMaxRetries(cfg.Provider.MaxRetries),
		persona.WithLogger(log),
	)
	snapshots := snapshot.New(cfg.Snapshot.BaseURL, cfg.Snapshot.Token, cfg.Snapshot.Owner, cfg.Snapshot.Repo)

	reconcileOpts := []reconcile.Option{
		reconcile.WithLogger(log),
		reconcile.WithMetrics(reconcilemetrics.New()),
		reconcile.WithClearedTTL(time.Duration(cfg.ClearedTTLDays) * 24 * time.Hour),
	}
	if cfg.Forms.URL != "" {
		reconcileOpts = append(reconcileOpts, reconcile.WithForms(forms.New(cfg.Forms.URL, cfg.Forms.Token)))
	}

	paths := reconcile.SnapshotPaths{
		Persons:    cfg.Snapshot.PersonsPath,
		Businesses: cfg.Snapshot.BusinessPath,
		Projects:   cfg.Snapshot.ProjectsPath,
	}
	reconciler, err := reconcile.New(provider, snapshots, paths, store, reconcileOpts...)
	if err != nil {
		log.Error("reconcile service init failed", "error", err)
		os.Exit(1)
	}

	lookupSvc, err := lookup.New(reconciler,
		lookup.WithLogger(log),
		lookup.WithMetrics(lookupmetrics.New()),
	)
	if err != nil {
		log.Error("lookup service init failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	lookuphandler.New(lookupSvc, lookupSvc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
