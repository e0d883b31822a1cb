package service

import (
	"context"
	"net/url"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/pricing"
)

// Actor identifies the authenticated caller of an operation. It replaces any
// ambient session state: handlers build it from the verified token claims and
// pass it down explicitly.
type Actor struct {
	ID   int32
	Role domain.UserRole
}

func (a Actor) IsStaff() bool {
	return a.Role == domain.UserRoleStaff || a.Role == domain.UserRoleAdmin
}

// Cache is the subset of the redis cache the services need. A nil Cache is
// tolerated; the database constraints remain the authoritative guard.
type Cache interface {
	AcquireVehicleHold(ctx context.Context, vehicleID int32, ttl time.Duration) (bool, error)
	ReleaseVehicleHold(ctx context.Context, vehicleID int32) error
	AcquirePaymentInitLock(ctx context.Context, kind string, id int32, ttl time.Duration) (bool, error)
}

// GatewayClient abstracts the payment gateway integration for testing.
type GatewayClient interface {
	BuildPaymentURL(req gateway.CheckoutRequest) string
	ParseCallback(values url.Values) (*gateway.CallbackResult, error)
}

type CreateHoldInput struct {
	VehicleID         int32     `json:"vehicle_id"`
	StationID         int32     `json:"station_id"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	InsurancePremium  bool      `json:"insurance_premium"`
	AgreementAccepted bool      `json:"agreement_accepted"`
}

type PickupInput struct {
	BookingID  int32    `json:"booking_id"`
	OdoKm      int32    `json:"odo_km"`
	SocPercent int32    `json:"soc"`
	PhotoURLs  []string `json:"photos"`
}

type ExtraFeeInput struct {
	Type        domain.ExtraFeeType `json:"type"`
	AmountCents int64               `json:"amount_cents"`
	Description string              `json:"description"`
}

type ReturnInput struct {
	RentalID   int32           `json:"rental_id"`
	OdoKm      int32           `json:"odo_km"`
	SocPercent int32           `json:"soc"`
	PhotoURLs  []string        `json:"photos"`
	ExtraFees  []ExtraFeeInput `json:"extra_fees"`
}

// CheckoutSession is handed back to the client after a payment initiation.
type CheckoutSession struct {
	CheckoutURL    string          `json:"checkout_url"`
	TransactionRef string          `json:"transaction_ref"`
	Payment        *domain.Payment `json:"payment"`
}

type SettlementDirection string

const (
	DirectionPaymentDue SettlementDirection = "payment_due"
	DirectionRefundDue  SettlementDirection = "refund_due"
	DirectionSettled    SettlementDirection = "settled"
)

// Settlement is the closing balance of a rental: positive amounts are owed
// by the customer, negative ones are refunded.
type Settlement struct {
	AmountCents int64               `json:"amount_cents"`
	Direction   SettlementDirection `json:"direction"`
	Rental      *domain.Rental      `json:"rental"`
	Payment     *domain.Payment     `json:"payment,omitempty"`
}

// CallbackOutcome reports how a gateway callback was reconciled. The outcome
// shown to the user is the AND of gateway success and internal apply success.
type CallbackOutcome struct {
	Payment        *domain.Payment  `json:"payment"`
	GatewaySuccess bool             `json:"gateway_success"`
	Applied        bool             `json:"applied"`
	Envelope       gateway.Envelope `json:"envelope"`
}

// Code is the status presented to the callback caller.
func (o *CallbackOutcome) Code() string {
	switch {
	case o.GatewaySuccess && o.Applied:
		return "SUCCESS"
	case o.GatewaySuccess && !o.Applied:
		return string(KindGatewayMismatch)
	default:
		return "FAILED"
	}
}

type BookingService interface {
	CalculateQuote(ctx context.Context, vehicleID int32, startAt, endAt time.Time, insurancePremium bool) (*pricing.Breakdown, error)
	CreateHold(ctx context.Context, actor Actor, input CreateHoldInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor Actor, bookingID int32) (*domain.Booking, error)
	// Confirm transitions HELD to CONFIRMED once a SUCCESS deposit exists.
	// Confirming an already-CONFIRMED booking returns the record unchanged.
	Confirm(ctx context.Context, bookingID int32) (*domain.Booking, error)
	Cancel(ctx context.Context, actor Actor, bookingID int32, reason string) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)
}

type PaymentService interface {
	InitiateDeposit(ctx context.Context, actor Actor, bookingID int32, returnURL, clientIP string) (*CheckoutSession, error)
	InitiateFinalPayment(ctx context.Context, actor Actor, rentalID int32, returnURL, clientIP string) (*CheckoutSession, error)
	// HandleCallback applies a gateway callback exactly once per transaction
	// reference and returns the reconciled outcome.
	HandleCallback(ctx context.Context, values url.Values) (*CallbackOutcome, error)
	// ReconcileUnapplied retries the internal side effects of SUCCESS
	// payments that failed to apply; returns how many were repaired.
	ReconcileUnapplied(ctx context.Context) (int, error)
}

type RentalService interface {
	RecordPickup(ctx context.Context, staff Actor, input PickupInput) (*domain.Rental, error)
	RecordReturn(ctx context.Context, staff Actor, input ReturnInput) (*domain.Rental, error)
	// CompleteReturn computes the final settlement for a RETURN_PENDING
	// rental and, for refunds and zero balances, completes it immediately.
	CompleteReturn(ctx context.Context, actor Actor, rentalID int32) (*Settlement, error)
	// CompleteFinalPayment closes the rental after a RENTAL_FINAL payment
	// reconciles; invoked by the payment reconciler, not by handlers.
	CompleteFinalPayment(ctx context.Context, rentalID int32) error
	GetRental(ctx context.Context, actor Actor, rentalID int32) (*domain.Rental, []domain.ExtraFee, error)
}

type CatalogService interface {
	ListStations(ctx context.Context) ([]domain.Station, error)
	ListVehicles(ctx context.Context, stationID int32, availableOnly bool) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, vehicleID int32) (*domain.Vehicle, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

type NotificationService interface {
	List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

type EmailService interface {
	SendBookingConfirmation(ctx context.Context, email, name string, bookingID int32, totalCents, depositCents int64, currency string) error
	SendSettlementNotice(ctx context.Context, email, name string, rentalID int32, amountCents int64, direction SettlementDirection, currency string) error
}
