package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/bootstrap"
)

// connectDB wires the Postgres connection used by admin commands.
func connectDB(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("db close failed", "error", err)
	}
}
