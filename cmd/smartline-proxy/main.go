package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"smartline/internal/proxy"
)

func main() {
	var (
		addr    = flag.String("a", "localhost:8091", "proxy address and port")
		dataDir = flag.String("d", "./proxy-data", "document store directory")
		dbURI   = flag.String("db", "", "postgres URI; when set, documents live in postgres instead of the local store")
	)
	flag.Parse()
	if v, ok := os.LookupEnv("PROXY_ADDRESS"); ok {
		*addr = v
	}
	if v, ok := os.LookupEnv("DATABASE_URI"); ok {
		*dbURI = v
	}

	var store proxy.DocStore
	var err error
	if *dbURI != "" {
		store, err = proxy.OpenPGStore(*dbURI)
	} else {
		store, err = proxy.OpenPebbleStore(*dataDir)
	}
	if err != nil {
		slog.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", proxy.NewServer(store).Handler())

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting storage proxy", "addr", *addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("proxy failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("proxy shutdown failed", "error", err)
	}

	slog.Info("proxy stopped")
}
