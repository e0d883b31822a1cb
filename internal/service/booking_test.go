package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

// Monday 10:00 UTC, outside peak windows.
var bookingNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type bookingFixture struct {
	bookings      *MockBookingRepo
	vehicles      *MockVehicleRepo
	payments      *MockPaymentRepo
	users         *MockUserRepo
	notifications *MockNotificationRepo
	cache         *MockCache
	email         *MockEmailService
	svc           *bookingService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings:      new(MockBookingRepo),
		vehicles:      new(MockVehicleRepo),
		payments:      new(MockPaymentRepo),
		users:         new(MockUserRepo),
		notifications: new(MockNotificationRepo),
		cache:         new(MockCache),
		email:         new(MockEmailService),
	}
	svc := NewBookingService(f.bookings, f.vehicles, f.payments, f.users, f.notifications, f.cache, f.email, 15*time.Minute)
	f.svc = svc.(*bookingService)
	f.svc.now = func() time.Time { return bookingNow }
	return f
}

func testVehicle() *domain.Vehicle {
	return &domain.Vehicle{
		ID:              7,
		StationID:       3,
		Model:           "VF e34",
		HourlyRateCents: 2000,
		DailyRateCents:  13500,
		Currency:        "VND",
		Status:          domain.VehicleStatusAvailable,
	}
}

func TestBookingService_CreateHold(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: 42, Role: domain.UserRoleCustomer}
	input := CreateHoldInput{
		VehicleID:         7,
		StationID:         3,
		StartAt:           bookingNow.Add(time.Hour),
		EndAt:             bookingNow.Add(3 * time.Hour),
		AgreementAccepted: true,
	}

	t.Run("creates held booking with frozen snapshot", func(t *testing.T) {
		f := newBookingFixture(t)
		f.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		f.cache.On("AcquireVehicleHold", mock.Anything, int32(7), mock.Anything).Return(true, nil)
		f.cache.On("ReleaseVehicleHold", mock.Anything, int32(7)).Return(nil)
		f.bookings.On("HasOverlap", mock.Anything, int32(7), input.StartAt, input.EndAt, bookingNow).Return(false, nil)
		f.bookings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(nil)

		booking, err := f.svc.CreateHold(ctx, actor, input)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusHeld, booking.Status)
		assert.Equal(t, bookingNow.Add(15*time.Minute), booking.HoldExpiresAt)
		assert.Equal(t, int32(42), booking.CustomerID)

		// 2 off-peak weekday hours at 2000: base 4000, tax 400, total 4400, deposit 880.
		snap := booking.PriceSnapshot
		assert.Equal(t, int64(4000), snap.BasePriceCents)
		assert.Equal(t, int64(0), snap.InsurancePriceCents)
		assert.Equal(t, int64(400), snap.TaxesCents)
		assert.Equal(t, int64(4400), snap.TotalPriceCents)
		assert.Equal(t, int64(880), snap.DepositCents)
		assert.Equal(t, int64(2000), snap.HourlyRateCents)
		assert.Equal(t, int64(13500), snap.DailyRateCents)
	})

	t.Run("rejects overlapping interval", func(t *testing.T) {
		f := newBookingFixture(t)
		f.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		f.cache.On("AcquireVehicleHold", mock.Anything, int32(7), mock.Anything).Return(true, nil)
		f.cache.On("ReleaseVehicleHold", mock.Anything, int32(7)).Return(nil)
		f.bookings.On("HasOverlap", mock.Anything, int32(7), input.StartAt, input.EndAt, bookingNow).Return(true, nil)

		_, err := f.svc.CreateHold(ctx, actor, input)
		assert.Equal(t, KindInvalidState, KindOf(err))
		f.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects concurrent hold on same vehicle", func(t *testing.T) {
		f := newBookingFixture(t)
		f.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		f.cache.On("AcquireVehicleHold", mock.Anything, int32(7), mock.Anything).Return(false, nil)

		_, err := f.svc.CreateHold(ctx, actor, input)
		assert.Equal(t, KindInvalidState, KindOf(err))
	})

	t.Run("rejects start in the past", func(t *testing.T) {
		f := newBookingFixture(t)
		past := input
		past.StartAt = bookingNow.Add(-time.Hour)

		_, err := f.svc.CreateHold(ctx, actor, past)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("rejects missing agreement", func(t *testing.T) {
		f := newBookingFixture(t)
		noAgreement := input
		noAgreement.AgreementAccepted = false

		_, err := f.svc.CreateHold(ctx, actor, noAgreement)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("rejects vehicle under maintenance", func(t *testing.T) {
		f := newBookingFixture(t)
		v := testVehicle()
		v.Status = domain.VehicleStatusMaintenance
		f.vehicles.On("GetByID", mock.Anything, int32(7)).Return(v, nil)

		_, err := f.svc.CreateHold(ctx, actor, input)
		assert.Equal(t, KindInvalidState, KindOf(err))
	})
}

func TestBookingService_GetBooking_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: 42, Role: domain.UserRoleCustomer}

	t.Run("held booking past deadline reads as expired", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := &domain.Booking{
			ID:            11,
			CustomerID:    42,
			Status:        domain.BookingStatusHeld,
			HoldExpiresAt: bookingNow.Add(-time.Minute),
		}
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)
		f.bookings.On("Update", mock.Anything, booking).Return(nil)

		got, err := f.svc.GetBooking(ctx, actor, 11)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusExpired, got.Status)
		f.bookings.AssertCalled(t, "Update", mock.Anything, booking)
	})

	t.Run("held booking within deadline stays held", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := &domain.Booking{
			ID:            11,
			CustomerID:    42,
			Status:        domain.BookingStatusHeld,
			HoldExpiresAt: bookingNow.Add(time.Minute),
		}
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)

		got, err := f.svc.GetBooking(ctx, actor, 11)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusHeld, got.Status)
		f.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("other customers cannot see the booking", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := &domain.Booking{ID: 11, CustomerID: 99, Status: domain.BookingStatusConfirmed}
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)

		_, err := f.svc.GetBooking(ctx, actor, 11)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestBookingService_Confirm(t *testing.T) {
	ctx := context.Background()

	heldBooking := func() *domain.Booking {
		return &domain.Booking{
			ID:            11,
			CustomerID:    42,
			Status:        domain.BookingStatusHeld,
			HoldExpiresAt: bookingNow.Add(5 * time.Minute),
			PriceSnapshot: domain.PriceSnapshot{TotalPriceCents: 4400, DepositCents: 880, Currency: "VND"},
		}
	}

	t.Run("confirms with successful deposit", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := heldBooking()
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)
		f.payments.On("GetSuccessfulDeposit", mock.Anything, int32(11)).Return(&domain.Payment{ID: 1, Status: domain.PaymentStatusSuccess}, nil)
		f.bookings.On("Update", mock.Anything, booking).Return(nil)
		f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
		f.users.On("GetByID", mock.Anything, int32(42)).Return(&domain.User{ID: 42, Email: "c@example.com", Name: "Chi"}, nil)
		f.email.On("SendBookingConfirmation", mock.Anything, "c@example.com", "Chi", int32(11), int64(4400), int64(880), "VND").Return(nil)

		got, err := f.svc.Confirm(ctx, 11)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
		f.email.AssertExpectations(t)
	})

	t.Run("refuses without successful deposit", func(t *testing.T) {
		f := newBookingFixture(t)
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(heldBooking(), nil)
		f.payments.On("GetSuccessfulDeposit", mock.Anything, int32(11)).Return(nil, repository.ErrNotFound)

		_, err := f.svc.Confirm(ctx, 11)
		assert.Equal(t, KindInvalidState, KindOf(err))
	})

	t.Run("already confirmed is a no-op", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := heldBooking()
		booking.Status = domain.BookingStatusConfirmed
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)

		got, err := f.svc.Confirm(ctx, 11)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
		f.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("expired hold cannot confirm", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := heldBooking()
		booking.HoldExpiresAt = bookingNow.Add(-time.Minute)
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)
		f.bookings.On("Update", mock.Anything, booking).Return(nil)

		_, err := f.svc.Confirm(ctx, 11)
		assert.Equal(t, KindExpired, KindOf(err))
		assert.Equal(t, domain.BookingStatusExpired, booking.Status)
	})
}

func TestBookingService_Cancel(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: 42, Role: domain.UserRoleCustomer}

	t.Run("cancels a confirmed booking", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := &domain.Booking{ID: 11, CustomerID: 42, Status: domain.BookingStatusConfirmed}
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)
		f.bookings.On("Update", mock.Anything, booking).Return(nil)

		got, err := f.svc.Cancel(ctx, actor, 11, "change of plans")
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, got.Status)
		assert.Equal(t, "change of plans", got.CancelReason)
	})

	t.Run("cannot cancel a cancelled booking", func(t *testing.T) {
		f := newBookingFixture(t)
		booking := &domain.Booking{ID: 11, CustomerID: 42, Status: domain.BookingStatusCancelled}
		f.bookings.On("GetByID", mock.Anything, int32(11)).Return(booking, nil)

		_, err := f.svc.Cancel(ctx, actor, 11, "again")
		assert.Equal(t, KindInvalidState, KindOf(err))
	})
}
