package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookfinder/internal/book"
	"bookfinder/internal/browse"
	"bookfinder/internal/config"
	"bookfinder/internal/discovery"
	"bookfinder/internal/httpx"
	"bookfinder/internal/platform/googlebooks"
	"bookfinder/internal/platform/openlibrary"
	"bookfinder/internal/provider"
	"bookfinder/internal/reader"
	"bookfinder/internal/shelf"
)

const maxRequestBytes = 1 << 20

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := cfg.Logger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := shelf.OpenRepository(ctx, cfg)
	if err != nil {
		log.Error("cannot open shelf store", "driver", cfg.ShelfDriver, "err", err)
		os.Exit(1)
	}
	defer closeRepo()
	log.Info("shelf store opened", "driver", cfg.ShelfDriver)

	olClient := openlibrary.NewClient(openlibrary.Config{
		BaseURL:   cfg.OpenLibraryBaseURL,
		UserAgent: cfg.UserAgent,
		RPS:       cfg.ProviderRPS,
		Timeout:   cfg.ProviderTimeout,
	})
	gbClient := googlebooks.NewClient(googlebooks.Config{
		BaseURL:   cfg.GoogleBooksBaseURL,
		APIKey:    cfg.GoogleBooksAPIKey,
		UserAgent: cfg.UserAgent,
		RPS:       cfg.ProviderRPS,
		Timeout:   cfg.ProviderTimeout,
	})

	aggregator := discovery.NewAggregator(
		discovery.Config{ProviderTimeout: cfg.ProviderTimeout},
		book.NewClassifier(),
		log,
		provider.NewLibrary(olClient),
		provider.NewCommercial(gbClient),
	)
	rewriter := discovery.NewRewriter(nil)
	resolver := reader.NewResolver(reader.Config{
		StepTimeout:    cfg.ReaderStepTimeout,
		SimilarTimeout: cfg.ProviderTimeout,
	}, olClient, aggregator, log)

	registry := browse.NewRegistry(aggregator, rewriter, cfg.SessionIdleTTL, log)
	go registry.Run(ctx, time.Minute)

	shelfService := shelf.NewService(repo)

	router := newRouter(shelfService.Ready)
	browse.NewHTTPHandler(registry, aggregator, rewriter, resolver).Register(router)
	shelf.NewHTTPHandler(shelfService, resolver).Register(router)

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	rateLimiter.TrustForwardedFor = cfg.TrustProxyHeaders
	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.RequestSizeLimitMiddleware(maxRequestBytes),
		rateLimiter.Middleware,
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("starting server", "addr", cfg.Addr, "shelf_driver", cfg.ShelfDriver)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newRouter returns a mux serving the liveness and readiness probes.
func newRouter(ready func(ctx context.Context) error) *http.ServeMux {
	router := http.NewServeMux()
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "shelf store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return router
}
