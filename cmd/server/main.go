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

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/config"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/engine"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/logger"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/web"
)

func main() {
	cfg := config.MustLoadServerConfig()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log.Logger)

	svc := app.NewService(
		app.WithLogger(log.Logger),
		app.WithEngine(engine.New(log.Logger)),
	)
	handler := web.NewServer(svc,
		web.WithLogger(log),
		web.WithHeartbeat(cfg.SSEHeartbeat),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening on", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
		os.Exit(1)
	}
}
