package domain

import "time"

type PaymentType string

const (
	PaymentTypeDeposit     PaymentType = "DEPOSIT"
	PaymentTypeRentalFinal PaymentType = "RENTAL_FINAL"
	PaymentTypeRefund      PaymentType = "REFUND"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is one row per attempted transaction. TransactionRef is unique and
// serves as the idempotency key for gateway callbacks: once a row is terminal
// (SUCCESS or FAILED) a replayed callback returns the stored outcome.
//
// AppliedAt records when the internal side effect of a successful payment
// (booking confirmation, rental completion) was applied. A SUCCESS row with
// a NULL AppliedAt means the gateway accepted the money but the internal
// transition failed; the reconciliation sweep retries those.
type Payment struct {
	ID                int32         `json:"id"`
	BookingID         *int32        `json:"booking_id,omitempty"`
	RentalID          *int32        `json:"rental_id,omitempty"`
	Type              PaymentType   `json:"type"`
	Status            PaymentStatus `json:"status"`
	AmountCents       int64         `json:"amount_cents"`
	Currency          string        `json:"currency"`
	Provider          string        `json:"provider"`
	TransactionRef    string        `json:"transaction_ref"`
	ProviderPaymentID string        `json:"provider_payment_id,omitempty"`
	ResponseCode      string        `json:"response_code,omitempty"`
	AppliedAt         *time.Time    `json:"applied_at,omitempty"`
	CreatedOn         time.Time     `json:"created_on"`
	UpdatedOn         time.Time     `json:"updated_on"`
}

// Terminal reports whether the payment reached a final gateway outcome.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
