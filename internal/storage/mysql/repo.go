package mysql

import (
	"context"
	crand "crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"luxury_hotel/internal/domain"
)

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213

	admitAttempts = 5
)

// Repo is the production ledger. The DSN must carry parseTime=true.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) CountBookings(ctx context.Context, roomType string, day time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countSlotSQL, roomType, day.Format(domain.DateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

// Admit locks the slot row, counts, and inserts in one READ COMMITTED
// transaction. Admissions for the same slot queue on the row lock, so the
// count each one sees already includes every earlier winner.
func (r *Repo) Admit(ctx context.Context, rec domain.BookingRecord, capacity int) (domain.BookingRecord, error) {
	var lastErr error
	for i := 0; i < admitAttempts; i++ {
		saved, err := r.admitOnce(ctx, rec, capacity)
		if err == nil || !retryable(err) {
			return saved, err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i+1).Str("room_type", rec.RoomType).Msg("admission conflict, retrying")
		if !sleepCtx(ctx, backoff(i)) {
			return domain.BookingRecord{}, ctx.Err()
		}
	}
	return domain.BookingRecord{}, lastErr
}

func (r *Repo) admitOnce(ctx context.Context, rec domain.BookingRecord, capacity int) (domain.BookingRecord, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.BookingRecord{}, fmt.Errorf("begin admission: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	date := rec.CheckInDate.Format(domain.DateLayout)
	if _, err := tx.ExecContext(ctx, lockSlotSQL, rec.RoomType, date); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("lock slot: %w", err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, countSlotSQL, rec.RoomType, date).Scan(&n); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("count slot in tx: %w", err)
	}
	if n >= capacity {
		return domain.BookingRecord{}, domain.ErrSlotFull
	}

	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
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
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.BookingRecord{}, domain.ErrNotFound
		}
		return domain.BookingRecord{}, fmt.Errorf("get booking: %w", err)
	}
	if rec.CheckInDate, err = domain.ParseDay(date); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("parse check_in_date %q: %w", date, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func retryable(err error) bool {
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDeadlock || me.Number == errLockWaitTimeout
	}
	return false
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff doubles from 20ms with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 20 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(0.5*float64(b[0])/255.0*float64(base))
}
