package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"smartline/internal/blobstore"
	"smartline/internal/config"
	"smartline/internal/handler"
	"smartline/internal/mw"
	"smartline/internal/service"
	"smartline/internal/storage"
)

func openGateway(cfg *config.Config) (storage.Gateway, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		return storage.NewRemote(cfg.RemoteAddress), nil
	case config.BackendSQLite:
		blobs, err := blobstore.OpenPebble(filepath.Join(cfg.DataDir, "blobs"))
		if err != nil {
			return nil, err
		}
		return storage.NewSQLite(cfg.DataDir, blobs)
	default:
		blobs, err := blobstore.OpenPebble(filepath.Join(cfg.DataDir, "blobs"))
		if err != nil {
			return nil, err
		}
		return storage.NewSnapshot(blobs), nil
	}
}

func main() {
	cfg := config.New()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}

	store, err := openGateway(cfg)
	if err != nil {
		slog.Error("failed to open storage backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Services
	parser := service.NewParserClient(cfg.ParserAddress)
	authSvc := service.NewAuthService(store, cfg.AdminUsername, cfg.AdminPassword)
	catalogSvc := service.NewCatalogService(store)
	ledgerSvc := service.NewLedgerService(store)
	messageSvc := service.NewMessageService(store)
	pipeline := service.NewPipeline(parser, catalogSvc, ledgerSvc, messageSvc, cfg.RegionHints)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/api/orders", handler.IngestOrderHandler(pipeline))
		r.Get("/api/orders", handler.ListOrdersHandler(ledgerSvc))
		r.Patch("/api/orders/{id}/status", handler.SetOrderStatusHandler(ledgerSvc))
		r.Patch("/api/orders/{id}/flag", handler.SetOrderFlagHandler(ledgerSvc))
		r.Delete("/api/orders/{id}", handler.DeleteOrderHandler(ledgerSvc))

		r.Get("/api/prices", handler.ListPricesHandler(catalogSvc))
		r.Post("/api/prices", handler.UpsertPriceHandler(catalogSvc))
		r.Post("/api/prices/parse", handler.IngestPricesHandler(catalogSvc, parser))
		r.Patch("/api/prices/{id}/availability", handler.SetPriceAvailabilityHandler(catalogSvc))
		r.Delete("/api/prices/{id}", handler.DeletePriceHandler(catalogSvc))

		r.Get("/api/messages", handler.ListMessagesHandler(messageSvc))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "backend", cfg.Backend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
