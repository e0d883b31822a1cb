package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

func snapshotJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(domain.PriceSnapshot{
		BasePriceCents:  4000,
		TaxesCents:      400,
		TotalPriceCents: 4400,
		DepositCents:    880,
		Currency:        "VND",
		HourlyRateCents: 2000,
		DailyRateCents:  13500,
		Hours:           2,
	})
	assert.NoError(t, err)
	return data
}

func bookingRow(t *testing.T, id int32, status domain.BookingStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "customer_id", "vehicle_id", "station_id", "start_at", "end_at", "status",
		"hold_expires_at", "price_snapshot", "insurance_option", "agreement_accepted",
		"cancel_reason", "created_on", "updated_on",
	}).AddRow(id, 42, 7, 3, now, now.Add(2*time.Hour), status, now.Add(15*time.Minute), snapshotJSON(t), false, true, "", now, now)
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()

	booking := &domain.Booking{
		CustomerID:        42,
		VehicleID:         7,
		StationID:         3,
		StartAt:           time.Now(),
		EndAt:             time.Now().Add(2 * time.Hour),
		Status:            domain.BookingStatusHeld,
		HoldExpiresAt:     time.Now().Add(15 * time.Minute),
		PriceSnapshot:     domain.PriceSnapshot{TotalPriceCents: 4400, DepositCents: 880},
		AgreementAccepted: true,
	}

	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(booking.CustomerID, booking.VehicleID, booking.StationID, booking.StartAt, booking.EndAt,
			booking.Status, booking.HoldExpiresAt, sqlmock.AnyArg(), booking.InsuranceOption,
			booking.AgreementAccepted, booking.CancelReason, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err = repo.Create(ctx, booking)
	assert.NoError(t, err)
	assert.Equal(t, int32(11), booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(int32(11)).
			WillReturnRows(bookingRow(t, 11, domain.BookingStatusHeld))

		booking, err := repo.GetByID(ctx, 11)
		assert.NoError(t, err)
		assert.Equal(t, int32(11), booking.ID)
		assert.Equal(t, domain.BookingStatusHeld, booking.Status)
		// Snapshot round-trips through the JSONB column.
		assert.Equal(t, int64(880), booking.PriceSnapshot.DepositCents)
		assert.Equal(t, int64(2000), booking.PriceSnapshot.HourlyRateCents)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(int32(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBookingRepository_HasOverlap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now()
	start := now.Add(time.Hour)
	end := now.Add(3 * time.Hour)

	t.Run("Overlap Exists", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int32(7), start, end, now).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		overlap, err := repo.HasOverlap(ctx, 7, start, end, now)
		assert.NoError(t, err)
		assert.True(t, overlap)
	})

	t.Run("No Overlap", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int32(7), start, end, now).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		overlap, err := repo.HasOverlap(ctx, 7, start, end, now)
		assert.NoError(t, err)
		assert.False(t, overlap)
	})
}

func TestBookingRepository_ExpireHeldBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()
	deadline := time.Now()

	mock.ExpectQuery("UPDATE bookings").
		WithArgs(sqlmock.AnyArg(), deadline).
		WillReturnRows(bookingRow(t, 11, domain.BookingStatusExpired))

	expired, err := repo.ExpireHeldBefore(ctx, deadline)
	assert.NoError(t, err)
	assert.Len(t, expired, 1)
	assert.Equal(t, domain.BookingStatusExpired, expired[0].Status)
}

func TestBookingRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()

	booking := &domain.Booking{ID: 11, Status: domain.BookingStatusCancelled, CancelReason: "change of plans", AgreementAccepted: true}

	mock.ExpectExec("UPDATE bookings SET").
		WithArgs(booking.Status, booking.CancelReason, booking.AgreementAccepted, sqlmock.AnyArg(), booking.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Update(ctx, booking))
	assert.NoError(t, mock.ExpectationsWereMet())
}
