package domain

import "time"

type BookingStatus string

const (
	BookingStatusHeld      BookingStatus = "HELD"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// PriceSnapshot is the price breakdown frozen onto a booking when the hold is
// created. Settlement math reads only these fields, never the live rate card.
// The rate card values at quote time are carried along so late fees at return
// are computed against the rates the customer agreed to.
type PriceSnapshot struct {
	BasePriceCents      int64  `json:"base_price_cents"`
	InsurancePriceCents int64  `json:"insurance_price_cents"`
	TaxesCents          int64  `json:"taxes_cents"`
	TotalPriceCents     int64  `json:"total_price_cents"`
	DepositCents        int64  `json:"deposit_cents"`
	Currency            string `json:"currency"`
	HourlyRateCents     int64  `json:"hourly_rate_cents"`
	DailyRateCents      int64  `json:"daily_rate_cents"`
	Hours               int    `json:"hours"`
	Days                int    `json:"days"`
	PeakHours           int    `json:"peak_hours"`
	WeekendBlocks       int    `json:"weekend_blocks"`
}

// Booking is a time-boxed reservation. It is created HELD with a short-lived
// expiry and becomes CONFIRMED only through a verified deposit payment.
// A HELD booking read past its hold_expires_at is treated as EXPIRED.
type Booking struct {
	ID                int32         `json:"id"`
	CustomerID        int32         `json:"customer_id"`
	VehicleID         int32         `json:"vehicle_id"`
	StationID         int32         `json:"station_id"`
	StartAt           time.Time     `json:"start_at"`
	EndAt             time.Time     `json:"end_at"`
	Status            BookingStatus `json:"status"`
	HoldExpiresAt     time.Time     `json:"hold_expires_at"`
	PriceSnapshot     PriceSnapshot `json:"price_snapshot"`
	InsuranceOption   bool          `json:"insurance_option"`
	AgreementAccepted bool          `json:"agreement_accepted"`
	CancelReason      string        `json:"cancel_reason,omitempty"`
	CreatedOn         time.Time     `json:"created_on"`
	UpdatedOn         time.Time     `json:"updated_on"`
}

// HoldExpired reports whether a HELD booking's hold window has passed.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusHeld && now.After(b.HoldExpiresAt)
}
