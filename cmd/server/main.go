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
	"github.com/sirupsen/logrus"

	"github.com/benevolentblend/cards/internal/auth"
	"github.com/benevolentblend/cards/internal/cache"
	"github.com/benevolentblend/cards/internal/config"
	"github.com/benevolentblend/cards/internal/database"
	"github.com/benevolentblend/cards/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results *database.Store
	if cfg.DatabaseURL != "" {
		store, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("database unavailable, round persistence disabled")
		} else {
			results = store
			defer results.Close()
			log.Info("round persistence enabled")
		}
	}

	var history *cache.Publisher
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			history = cache.NewPublisher(rdb)
			defer rdb.Close()
			log.Info("action history enabled")
		}
	}

	tokens := auth.New(cfg.JWTSecret)
	if tokens.Enabled() {
		log.Info("guest tokens enabled")
	}

	srv := server.New(server.Options{
		Logger:  log,
		Auth:    tokens,
		History: history,
		Results: results,
	})
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}
}
