package postgres

import (
	"database/sql"

	"station-rental-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.StationRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.RentalRepository
	repository.PaymentRepository
	repository.UserRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		StationRepository:      NewStationRepository(db),
		VehicleRepository:      NewVehicleRepository(db),
		BookingRepository:      NewBookingRepository(db),
		RentalRepository:       NewRentalRepository(db),
		PaymentRepository:      NewPaymentRepository(db),
		UserRepository:         NewUserRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// translateNotFound maps the driver's no-rows sentinel to the repository one.
func translateNotFound(err error) error {
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	return err
}
