package repository

import (
	"context"
	"errors"
	"time"

	"station-rental-backend/internal/domain"
)

type StationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Station, error)
	List(ctx context.Context) ([]domain.Station, error)
}

type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	List(ctx context.Context, stationID int32, availableOnly bool) ([]domain.Vehicle, error)
	UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	// HasOverlap reports whether the vehicle already has a CONFIRMED booking,
	// or an unexpired HELD one, overlapping [startAt, endAt).
	HasOverlap(ctx context.Context, vehicleID int32, startAt, endAt, now time.Time) (bool, error)
	// ExpireHeldBefore flips HELD bookings whose hold window passed the
	// deadline to EXPIRED and returns them.
	ExpireHeldBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error)
}

type RentalRepository interface {
	Create(ctx context.Context, r *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	GetByBookingID(ctx context.Context, bookingID int32) (*domain.Rental, error)
	Update(ctx context.Context, r *domain.Rental) error
	// ReplaceExtraFees swaps the rental's fee line items for the given set.
	ReplaceExtraFees(ctx context.Context, rentalID int32, fees []domain.ExtraFee) error
	ListExtraFees(ctx context.Context, rentalID int32) ([]domain.ExtraFee, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int32) (*domain.Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	// GetPendingByBooking returns the open payment of the given type for a
	// booking, if any.
	GetPendingByBooking(ctx context.Context, bookingID int32, t domain.PaymentType) (*domain.Payment, error)
	GetPendingByRental(ctx context.Context, rentalID int32, t domain.PaymentType) (*domain.Payment, error)
	// GetSuccessfulDeposit returns the SUCCESS deposit payment for a booking,
	// if one exists.
	GetSuccessfulDeposit(ctx context.Context, bookingID int32) (*domain.Payment, error)
	// ListUnapplied returns SUCCESS payments whose internal side effect has
	// not been applied yet.
	ListUnapplied(ctx context.Context) ([]domain.Payment, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

// ErrNotFound is returned by repositories when a row does not exist.
// Implementations translate their driver's sentinel so services can test
// with errors.Is without importing database/sql.
var ErrNotFound = errors.New("record not found")
