package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"luxury_hotel/internal/adapters/observability"
	"luxury_hotel/internal/shared"
	mysqlrepo "luxury_hotel/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	dsn, err := mysqlrepo.MigrationDSN(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MYSQL_DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	files, err := mysqlrepo.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.MigrationsDir).Msg("migration failed")
	}
	for _, f := range files {
		log.Info().Str("file", f).Msg("applied")
	}
	log.Info().Int("files", len(files)).Msg("migrations complete")
}
