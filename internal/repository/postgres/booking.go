package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, customer_id, vehicle_id, station_id, start_at, end_at, status, hold_expires_at, price_snapshot, insurance_option, agreement_accepted, cancel_reason, created_on, updated_on`

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	snapshot, err := json.Marshal(b.PriceSnapshot)
	if err != nil {
		return fmt.Errorf("marshal price snapshot: %w", err)
	}
	query := `INSERT INTO bookings (customer_id, vehicle_id, station_id, start_at, end_at, status, hold_expires_at, price_snapshot, insurance_option, agreement_accepted, cancel_reason, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		b.CustomerID, b.VehicleID, b.StationID, b.StartAt, b.EndAt, b.Status, b.HoldExpiresAt,
		snapshot, b.InsuranceOption, b.AgreementAccepted, b.CancelReason, time.Now(), time.Now(),
	).Scan(&b.ID)
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRowContext(ctx, query, id))
}

// Update persists status transitions and the cancel reason. The price
// snapshot is append-only and deliberately not part of the UPDATE.
func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `UPDATE bookings SET status=$1, cancel_reason=$2, agreement_accepted=$3, updated_on=$4 WHERE id=$5`
	_, err := r.db.ExecContext(ctx, query, b.Status, b.CancelReason, b.AgreementAccepted, time.Now(), b.ID)
	return err
}

func (r *bookingRepository) HasOverlap(ctx context.Context, vehicleID int32, startAt, endAt, now time.Time) (bool, error) {
	query := `SELECT EXISTS (
	            SELECT 1 FROM bookings
	            WHERE vehicle_id = $1
	              AND start_at < $3 AND end_at > $2
	              AND (status = 'CONFIRMED' OR (status = 'HELD' AND hold_expires_at > $4))
	          )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, vehicleID, startAt, endAt, now).Scan(&exists)
	return exists, err
}

func (r *bookingRepository) ExpireHeldBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	query := `UPDATE bookings
	          SET status = 'EXPIRED', updated_on = $1
	          WHERE status = 'HELD' AND hold_expires_at < $2
	          RETURNING ` + bookingColumns
	rows, err := r.db.QueryContext(ctx, query, time.Now(), deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := r.scanBookingRows(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1`

	args := []interface{}{customerID}
	argIdx := 2
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") as sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_on DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := r.scanBookingRows(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, count, rows.Err()
}

func (r *bookingRepository) scanBooking(row *sql.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	var snapshot []byte
	err := row.Scan(&b.ID, &b.CustomerID, &b.VehicleID, &b.StationID, &b.StartAt, &b.EndAt, &b.Status, &b.HoldExpiresAt, &snapshot, &b.InsuranceOption, &b.AgreementAccepted, &b.CancelReason, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := json.Unmarshal(snapshot, &b.PriceSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal price snapshot: %w", err)
	}
	return b, nil
}

func (r *bookingRepository) scanBookingRows(rows *sql.Rows) (*domain.Booking, error) {
	b := &domain.Booking{}
	var snapshot []byte
	err := rows.Scan(&b.ID, &b.CustomerID, &b.VehicleID, &b.StationID, &b.StartAt, &b.EndAt, &b.Status, &b.HoldExpiresAt, &snapshot, &b.InsuranceOption, &b.AgreementAccepted, &b.CancelReason, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &b.PriceSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal price snapshot: %w", err)
	}
	return b, nil
}
