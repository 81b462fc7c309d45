// Command fakebackend serves an in-memory food-recognition backend for local
// development of the diary client.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/config"
	"github.com/baobabichh/diabetic-diary-app/internal/fakebackend"
	"github.com/baobabichh/diabetic-diary-app/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("DIARY_CONFIG"), "path to a YAML config file")
	polls := flag.Int("polls", 2, "status polls before a recognition finishes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	backend := fakebackend.New(fakebackend.WithPollsToFinish(*polls))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           corsMiddleware(backend.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Fake backend starting", "address", cfg.ListenAddr, "polls_to_finish", *polls)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Fake backend stopped")
}

// corsMiddleware lets a browser client on another origin call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
