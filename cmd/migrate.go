package main

import (
	"fmt"

	"go.uber.org/zap"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/model"
	"accredian/referralhub/pkg/logger"
)

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Info("database migration completed", zap.String("table", model.Referral{}.TableName()))
	return nil
}
