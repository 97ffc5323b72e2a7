package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxury_hotel/internal/domain"
	"luxury_hotel/internal/storage/sqlite"
)

func openRepo(t *testing.T) *sqlite.Repo {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func record(roomType string, day time.Time) domain.BookingRecord {
	return domain.BookingRecord{
		Reference:   uuid.NewString(),
		FullName:    "Jane Doe",
		Email:       "jane@example.com",
		Phone:       "0412345678",
		CheckInDate: day,
		RoomType:    roomType,
		Guests:      2,
	}
}

func TestRepo_AdmitCountGet(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	d := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)

	n, err := repo.CountBookings(ctx, "Standard Twin", d)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	saved, err := repo.Admit(ctx, record("Standard Twin", d), domain.MaxRoomsPerType)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	n, err = repo.CountBookings(ctx, "Standard Twin", d)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetBooking(ctx, saved.Reference)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Standard Twin", got.RoomType)
	assert.True(t, got.CheckInDate.Equal(d))
	assert.Equal(t, 2, got.Guests)
	assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Second)

	_, err = repo.GetBooking(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_AdmitRejectsFullSlot(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	d := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)

	for i := 0; i < domain.MaxRoomsPerType; i++ {
		_, err := repo.Admit(ctx, record("Deluxe Suite", d), domain.MaxRoomsPerType)
		require.NoError(t, err)
	}
	_, err := repo.Admit(ctx, record("Deluxe Suite", d), domain.MaxRoomsPerType)
	assert.ErrorIs(t, err, domain.ErrSlotFull)

	// other slots are unaffected
	_, err = repo.Admit(ctx, record("Deluxe Suite", d.AddDate(0, 0, 1)), domain.MaxRoomsPerType)
	assert.NoError(t, err)
	_, err = repo.Admit(ctx, record("Executive Suite", d), domain.MaxRoomsPerType)
	assert.NoError(t, err)

	n, _ := repo.CountBookings(ctx, "Deluxe Suite", d)
	assert.Equal(t, domain.MaxRoomsPerType, n)
}

func TestRepo_ConcurrentAdmission(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	d := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record("Superior Suite", d)
			rec.FullName = fmt.Sprintf("Guest %d", i)
			_, err := repo.Admit(ctx, rec, domain.MaxRoomsPerType)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	booked, full := 0, 0
	for err := range results {
		switch {
		case err == nil:
			booked++
		case errors.Is(err, domain.ErrSlotFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, domain.MaxRoomsPerType, booked)
	assert.Equal(t, attempts-domain.MaxRoomsPerType, full)

	n, err := repo.CountBookings(ctx, "Superior Suite", d)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRoomsPerType, n)
}

func TestRepo_ClosedDatabaseFails(t *testing.T) {
	repo := openRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.CountBookings(context.Background(), "Standard Twin", time.Now())
	assert.Error(t, err)
	_, err = repo.Admit(context.Background(), record("Standard Twin", time.Now()), 2)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSlotFull))
}
