package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/limitwatch/internal/config"
	"github.com/kailas-cloud/limitwatch/internal/db"
	dbRedis "github.com/kailas-cloud/limitwatch/internal/db/redis"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	logpkg "github.com/kailas-cloud/limitwatch/internal/logger"
	"github.com/kailas-cloud/limitwatch/internal/metrics"
	quotarepo "github.com/kailas-cloud/limitwatch/internal/repository/quota"
	chiTransport "github.com/kailas-cloud/limitwatch/internal/transport/chi"
	"github.com/kailas-cloud/limitwatch/internal/transport/telegram"
	conversationuc "github.com/kailas-cloud/limitwatch/internal/usecase/conversation"
	healthuc "github.com/kailas-cloud/limitwatch/internal/usecase/health"
	monitoruc "github.com/kailas-cloud/limitwatch/internal/usecase/monitor"
	quotauc "github.com/kailas-cloud/limitwatch/internal/usecase/quota"
	"github.com/kailas-cloud/limitwatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, logFile, err := logpkg.New(logpkg.Config{
		Env:   env,
		Level: cfg.Logging.Level,
		File: logpkg.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
		_ = logFile.Close()
	}()

	registry, err := cfg.Registry()
	if err != nil {
		logger.Fatal("Invalid project configuration", zap.Error(err))
	}

	logger.Info("Starting limitwatch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int("projects", len(registry.All())),
		zap.Int64("warning_threshold", cfg.Quota.WarningThreshold),
	)

	// Valkey speaks the Redis protocol; both drivers use the rueidis store.
	var store db.Store
	store, err = dbRedis.NewStore(dbRedis.Config{
		Addrs:     cfg.Database.Addrs,
		Username:  cfg.Database.Username,
		Password:  cfg.Database.Password,
		DB:        cfg.Database.DB,
		OpTimeout: time.Duration(cfg.Database.OpTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register quota metrics explicitly (no init())
	metrics.RegisterQuotaMetrics()

	// Use cases
	policy := domquota.NewPolicy(cfg.Quota.WarningThreshold)
	quotaStore := quotarepo.New(store, logger)
	quotaSvc := quotauc.New(registry, quotarepo.NewResolver(registry), quotaStore, policy, logger)
	convSvc := conversationuc.New(registry, quotaSvc, conversationuc.NewSessions(), logger)

	// Telegram transport
	pollTimeout := time.Duration(cfg.Telegram.PollTimeoutSec) * time.Second
	requestTimeout := time.Duration(cfg.Telegram.RequestTimeoutSec) * time.Second
	tgClient := telegram.NewClient(
		&http.Client{Timeout: pollTimeout + requestTimeout},
		cfg.Telegram.APIURL,
		cfg.Telegram.Token,
	)
	bot := telegram.NewBot(tgClient, convSvc, telegram.Options{
		PollTimeout:    pollTimeout,
		RequestTimeout: requestTimeout,
	}, logger)
	if err := bot.RegisterCommands(ctx); err != nil {
		// Not fatal: the menu is cosmetic.
		logger.Warn("Failed to register bot commands", zap.Error(err))
	}

	mon := monitoruc.New(registry, quotaStore, bot, policy,
		time.Duration(cfg.Quota.CheckIntervalSec)*time.Second, logger)

	// HTTP ops API
	healthSvc := healthuc.New(store, bot)
	server := chiTransport.NewServer(quotaSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})
	g.Go(func() error {
		return mon.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Stopped with error", zap.Error(err))
		return
	}
	logger.Info("Stopped gracefully")
}
