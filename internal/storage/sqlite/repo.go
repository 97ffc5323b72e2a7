// Package sqlite is a single-file ledger for local runs and tests.
//
// Every transaction is opened with BEGIN IMMEDIATE, so writers take the
// database lock before they count. Two admissions can never both see the
// same count.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"luxury_hotel/internal/domain"
)

type Repo struct{ db *sql.DB }

// Open creates the database file (and its directory) if needed and applies the schema.
func Open(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: sqlite has one writer anyway, and this keeps
	// concurrent callers queued in the pool instead of spinning on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) CountBookings(ctx context.Context, roomType string, day time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countSlotSQL, roomType, day.Format(domain.DateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

func (r *Repo) Admit(ctx context.Context, rec domain.BookingRecord, capacity int) (domain.BookingRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.BookingRecord{}, fmt.Errorf("begin admission: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	date := rec.CheckInDate.Format(domain.DateLayout)
	var n int
	if err := tx.QueryRowContext(ctx, countSlotSQL, rec.RoomType, date).Scan(&n); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("count slot in tx: %w", err)
	}
	if n >= capacity {
		return domain.BookingRecord{}, domain.ErrSlotFull
	}

	rec.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx, insertBookingSQL,
		rec.Reference,
		rec.FullName,
		rec.Email,
		rec.Phone,
		date,
		rec.RoomType,
		rec.Guests,
		rec.CreatedAt,
	)
	if err != nil {
		return domain.BookingRecord{}, fmt.Errorf("insert booking: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("commit admission: %w", err)
	}
	return rec, nil
}

func (r *Repo) GetBooking(ctx context.Context, reference string) (domain.BookingRecord, error) {
	var (
		rec  domain.BookingRecord
		date string
	)
	err := r.db.QueryRowContext(ctx, getBookingSQL, reference).Scan(
		&rec.ID,
		&rec.Reference,
		&rec.FullName,
		&rec.Email,
		&rec.Phone,
		&date,
		&rec.RoomType,
		&rec.Guests,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BookingRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BookingRecord{}, fmt.Errorf("get booking: %w", err)
	}
	if rec.CheckInDate, err = domain.ParseDay(date); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("parse check_in_date %q: %w", date, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
