package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, booking_id, customer_id, vehicle_id, station_id, status, expected_return_at,
	pickup_at, pickup_odo_km, pickup_soc, pickup_photos, pickup_staff_id,
	return_at, return_odo_km, return_soc, return_photos, return_staff_id,
	rental_fee_cents, extra_fees_cents, total_charge_cents, has_charges, created_on, updated_on`

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (booking_id, customer_id, vehicle_id, station_id, status, expected_return_at,
	            pickup_at, pickup_odo_km, pickup_soc, pickup_photos, pickup_staff_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		rt.BookingID, rt.CustomerID, rt.VehicleID, rt.StationID, rt.Status, rt.ExpectedReturnAt,
		rt.Pickup.At, rt.Pickup.OdoKm, rt.Pickup.SocPercent, pq.Array(rt.Pickup.PhotoURLs), rt.PickupStaffID,
		time.Now(), time.Now(),
	).Scan(&rt.ID)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return r.scanRental(r.db.QueryRowContext(ctx, query, id))
}

func (r *rentalRepository) GetByBookingID(ctx context.Context, bookingID int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE booking_id = $1`
	return r.scanRental(r.db.QueryRowContext(ctx, query, bookingID))
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	var returnAt sql.NullTime
	var returnOdo, returnSoc sql.NullInt32
	var returnPhotos interface{}
	if rt.Return != nil {
		returnAt = sql.NullTime{Time: rt.Return.At, Valid: true}
		returnOdo = sql.NullInt32{Int32: rt.Return.OdoKm, Valid: true}
		returnSoc = sql.NullInt32{Int32: rt.Return.SocPercent, Valid: true}
		returnPhotos = pq.Array(rt.Return.PhotoURLs)
	}
	query := `UPDATE rentals SET status=$1,
	            return_at=$2, return_odo_km=$3, return_soc=$4, return_photos=$5, return_staff_id=$6,
	            rental_fee_cents=$7, extra_fees_cents=$8, total_charge_cents=$9, has_charges=$10, updated_on=$11
	          WHERE id=$12`
	_, err := r.db.ExecContext(ctx, query,
		rt.Status, returnAt, returnOdo, returnSoc, returnPhotos, rt.ReturnStaffID,
		rt.RentalFeeCents, rt.ExtraFeesCents, rt.TotalChargeCents, rt.HasCharges, time.Now(), rt.ID)
	return err
}

func (r *rentalRepository) ReplaceExtraFees(ctx context.Context, rentalID int32, fees []domain.ExtraFee) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM extra_fees WHERE rental_id = $1`, rentalID); err != nil {
		return err
	}
	for i := range fees {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO extra_fees (rental_id, type, amount_cents, description, created_on)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			rentalID, fees[i].Type, fees[i].AmountCents, fees[i].Description, time.Now(),
		).Scan(&fees[i].ID)
		if err != nil {
			return err
		}
		fees[i].RentalID = rentalID
	}
	return tx.Commit()
}

func (r *rentalRepository) ListExtraFees(ctx context.Context, rentalID int32) ([]domain.ExtraFee, error) {
	query := `SELECT id, rental_id, type, amount_cents, description, created_on FROM extra_fees WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.ExtraFee
	for rows.Next() {
		var f domain.ExtraFee
		if err := rows.Scan(&f.ID, &f.RentalID, &f.Type, &f.AmountCents, &f.Description, &f.CreatedOn); err != nil {
			return nil, err
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

func (r *rentalRepository) scanRental(row *sql.Row) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var returnAt sql.NullTime
	var returnOdo, returnSoc sql.NullInt32
	var pickupPhotos, returnPhotos pq.StringArray
	err := row.Scan(&rt.ID, &rt.BookingID, &rt.CustomerID, &rt.VehicleID, &rt.StationID, &rt.Status, &rt.ExpectedReturnAt,
		&rt.Pickup.At, &rt.Pickup.OdoKm, &rt.Pickup.SocPercent, &pickupPhotos, &rt.PickupStaffID,
		&returnAt, &returnOdo, &returnSoc, &returnPhotos, &rt.ReturnStaffID,
		&rt.RentalFeeCents, &rt.ExtraFeesCents, &rt.TotalChargeCents, &rt.HasCharges, &rt.CreatedOn, &rt.UpdatedOn)
	if err != nil {
		return nil, translateNotFound(err)
	}
	rt.Pickup.PhotoURLs = pickupPhotos
	if returnAt.Valid {
		rt.Return = &domain.VehicleCondition{
			At:         returnAt.Time,
			OdoKm:      returnOdo.Int32,
			SocPercent: returnSoc.Int32,
			PhotoURLs:  returnPhotos,
		}
	}
	return rt, nil
}
