package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"monopoly/internal/auth"
	"monopoly/internal/config"
	"monopoly/internal/dispatch"
	"monopoly/internal/game"
	"monopoly/internal/game/monopoly"
	"monopoly/internal/janitor"
	"monopoly/internal/logging"
	"monopoly/internal/server"
	"monopoly/internal/session"
	"monopoly/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.StoreBackend,
		SQLitePath:    cfg.DBPath,
		PostgresDSN:   cfg.PostgresDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisTTL:      cfg.RedisTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	registry := game.NewRegistry()
	registry.Register(monopoly.Classic())
	registry.Register(monopoly.Jackpot())

	mgr := session.NewManager(registry, store, logger, cfg.MaxRooms)
	if err := mgr.Restore(ctx); err != nil {
		logger.Warn("restore rooms", zap.Error(err))
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set, reconnect tokens will not survive a restart")
	}
	tokens, err := auth.NewIssuer(secret, auth.DefaultTTL)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(mgr, server.NewPublisher(), mgr, tokens, logger)
	jan, err := janitor.New(janitor.Config{
		AuctionSpec:  cfg.AuctionSpec,
		AutosaveSpec: cfg.AutosaveSpec,
		CleanupSpec:  cfg.CleanupSpec,
		IdleTimeout:  cfg.RoomIdleTimeout,
		FinishedTTL:  cfg.FinishedTTL,
	}, dispatcher, mgr, logger)
	if err != nil {
		return err
	}

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(registry, mgr, dispatcher, tokens, logger, server.Options{CORSOrigins: cfg.CORSOrigins})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("store", cfg.StoreBackend))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return jan.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
		return mgr.SaveAll(shutdownCtx)
	})
	return g.Wait()
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "random secret: %v\n", err)
		os.Exit(1)
	}
	return hex.EncodeToString(b)
}
