package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/handler"
	"accredian/referralhub/internal/mail"
	"accredian/referralhub/internal/model"
	"accredian/referralhub/internal/repository"
	"accredian/referralhub/internal/service"
	"accredian/referralhub/pkg/logger"
)

const redisKeyPrefix = "referralhub:"

func runServe(ctx context.Context, configPath string) error {
	// 1. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", zap.Error(err))
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("close postgres", zap.Error(err))
		}
	}()

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			log.Error("failed to auto-migrate", zap.Error(err))
			return err
		}
		log.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		var redisClient *redis.Client
		redisClient, err = config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			log.Error("failed to connect to redis", zap.Error(err))
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("close redis", zap.Error(err))
			}
		}()
		stateStore = repository.NewRedisStateStore(redisClient, redisKeyPrefix)
		log.Info("using Redis state store")
	default:
		stateStore = repository.NewMemoryStateStore()
		log.Info("using in-memory state store")
	}

	// 6. Initialize mail sender
	var sender mail.Sender
	if cfg.Mail.Enabled {
		// token refreshes must outlive any single request
		tokens := mail.NewTokenSource(context.Background(), cfg.Mail.OAuth, stateStore, log)
		sender, err = mail.NewSMTPSender(cfg.Mail, tokens)
		if err != nil {
			log.Error("failed to init mail sender", zap.Error(err))
			return err
		}
		log.Info("mail sender initialized",
			zap.String("smtp_host", cfg.Mail.SMTPHost),
			zap.Int("smtp_port", cfg.Mail.SMTPPort),
		)
	} else {
		sender = mail.NewNoopSender(log)
		log.Warn("mail disabled, referee notifications are dropped")
	}

	// 7. Initialize services
	referralService := service.NewReferralService(
		repository.NewPGReferralRepository(db),
		service.NewEmailHasher(cfg.Hashing),
		sender,
		service.ReferralServiceOptions{
			BrandingName: cfg.Mail.BrandingName,
			SendTimeout:  cfg.Mail.SendTimeout,
		},
		log,
	)

	// 8. Setup router
	router, err := handler.SetupRouter(cfg, log, handler.NewReferralHandler(referralService))
	if err != nil {
		return err
	}

	// 9. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 10. Start server with graceful shutdown
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 11. Wait for interrupt signal
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-sigCtx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := referralService.Drain(shutdownCtx); err != nil {
		log.Warn("in-flight notifications abandoned", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
