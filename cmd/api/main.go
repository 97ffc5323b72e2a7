package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "luxury_hotel/internal/adapters/http_server"
	"luxury_hotel/internal/adapters/observability"
	redisad "luxury_hotel/internal/adapters/redis"
	"luxury_hotel/internal/app"
	"luxury_hotel/internal/catalog"
	"luxury_hotel/internal/domain"
	"luxury_hotel/internal/shared"
	mysqlrepo "luxury_hotel/internal/storage/mysql"
	"luxury_hotel/internal/storage/sqlite"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	rooms, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("room catalog failed to load")
	}

	ledger, closeLedger := openLedger(cfg)
	defer closeLedger()

	// deps
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			// the cache is optional; run straight against the ledger
			log.Warn().Err(err).Msg("redis unreachable, availability cache disabled")
			_ = rc.Close()
		} else {
			cache = rc
			defer rc.Close()
		}
		cancel()
	}

	availability := app.NewAvailabilityService(ledger, cache, cfg.CacheTTL)
	bookings := app.NewBookingService(ledger, cache, rooms).WithCacheTTL(cfg.CacheTTL)

	// http
	srv := server.New(server.WithRequestTimeout(cfg.RequestTimeout))
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog:      rooms,
		Validator:    app.NewValidator(rooms),
		Availability: availability,
		Bookings:     bookings,
		Limiter:      server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("ledger", cfg.LedgerDriver).Int("rooms", len(rooms.Rooms())).Msg("API listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	log.Info().Msg("API stopped")
}

// openLedger connects the configured booking ledger.
func openLedger(cfg shared.Config) (domain.Ledger, func()) {
	switch cfg.LedgerDriver {
	case "sqlite":
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite ledger failed to open")
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite ledger ready")
		return repo, func() { _ = repo.Close() }
	case "mysql", "":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), func() { _ = db.Close() }
	default:
		log.Fatal().Str("driver", cfg.LedgerDriver).Msg("unknown LEDGER_DRIVER, want mysql or sqlite")
		return nil, nil
	}
}
