package postgres

import (
	"context"
	"database/sql"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, booking_id, rental_id, type, status, amount_cents, currency, provider, transaction_ref, provider_payment_id, response_code, applied_at, created_on, updated_on`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (booking_id, rental_id, type, status, amount_cents, currency, provider, transaction_ref, provider_payment_id, response_code, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		p.BookingID, p.RentalID, p.Type, p.Status, p.AmountCents, p.Currency, p.Provider,
		p.TransactionRef, p.ProviderPaymentID, p.ResponseCode, time.Now(), time.Now(),
	).Scan(&p.ID)
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, id))
}

func (r *paymentRepository) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_ref = $1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, ref))
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments SET status=$1, provider_payment_id=$2, response_code=$3, applied_at=$4, updated_on=$5 WHERE id=$6`
	_, err := r.db.ExecContext(ctx, query, p.Status, p.ProviderPaymentID, p.ResponseCode, p.AppliedAt, time.Now(), p.ID)
	return err
}

func (r *paymentRepository) GetPendingByBooking(ctx context.Context, bookingID int32, t domain.PaymentType) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE booking_id = $1 AND type = $2 AND status = 'PENDING'
	          ORDER BY created_on DESC LIMIT 1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, bookingID, t))
}

func (r *paymentRepository) GetPendingByRental(ctx context.Context, rentalID int32, t domain.PaymentType) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE rental_id = $1 AND type = $2 AND status = 'PENDING'
	          ORDER BY created_on DESC LIMIT 1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, rentalID, t))
}

func (r *paymentRepository) GetSuccessfulDeposit(ctx context.Context, bookingID int32) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE booking_id = $1 AND type = 'DEPOSIT' AND status = 'SUCCESS'
	          ORDER BY created_on DESC LIMIT 1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, bookingID))
}

func (r *paymentRepository) ListUnapplied(ctx context.Context) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE status = 'SUCCESS' AND applied_at IS NULL AND type IN ('DEPOSIT', 'RENTAL_FINAL')
	          ORDER BY created_on`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.RentalID, &p.Type, &p.Status, &p.AmountCents, &p.Currency, &p.Provider, &p.TransactionRef, &p.ProviderPaymentID, &p.ResponseCode, &p.AppliedAt, &p.CreatedOn, &p.UpdatedOn); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) scanPayment(row *sql.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.RentalID, &p.Type, &p.Status, &p.AmountCents, &p.Currency, &p.Provider, &p.TransactionRef, &p.ProviderPaymentID, &p.ResponseCode, &p.AppliedAt, &p.CreatedOn, &p.UpdatedOn)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}
