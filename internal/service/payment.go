package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/repository"
)

type paymentService struct {
	payments   repository.PaymentRepository
	bookings   repository.BookingRepository
	rentals    repository.RentalRepository
	gateway    GatewayClient
	cache      Cache
	bookingSvc BookingService
	rentalSvc  RentalService
	cooldown   time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	rentals repository.RentalRepository,
	gw GatewayClient,
	cache Cache,
	bookingSvc BookingService,
	rentalSvc RentalService,
	cooldown time.Duration,
) PaymentService {
	return &paymentService{
		payments:   payments,
		bookings:   bookings,
		rentals:    rentals,
		gateway:    gw,
		cache:      cache,
		bookingSvc: bookingSvc,
		rentalSvc:  rentalSvc,
		cooldown:   cooldown,
		log:        logger.WithService("payment"),
		now:        time.Now,
	}
}

func (s *paymentService) InitiateDeposit(ctx context.Context, actor Actor, bookingID int32, returnURL, clientIP string) (*CheckoutSession, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("booking %d not found", bookingID)
		}
		return nil, err
	}
	if !actor.IsStaff() && booking.CustomerID != actor.ID {
		return nil, ErrNotFound("booking %d not found", bookingID)
	}
	if booking.HoldExpired(s.now()) {
		return nil, ErrExpired("hold on booking %d expired at %s", bookingID, booking.HoldExpiresAt.Format(time.RFC3339))
	}
	if booking.Status != domain.BookingStatusHeld {
		return nil, ErrInvalidState("booking %d is %s; deposit can only be paid for a held booking", bookingID, booking.Status)
	}

	if err := s.acquireInitLock(ctx, "deposit", bookingID); err != nil {
		return nil, err
	}

	// Reuse the open attempt if one exists: repeated initiation must not
	// mint a second transaction reference for the same obligation.
	payment, err := s.payments.GetPendingByBooking(ctx, bookingID, domain.PaymentTypeDeposit)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if payment == nil {
		payment = &domain.Payment{
			BookingID:      &booking.ID,
			Type:           domain.PaymentTypeDeposit,
			Status:         domain.PaymentStatusPending,
			AmountCents:    booking.PriceSnapshot.DepositCents,
			Currency:       booking.PriceSnapshot.Currency,
			Provider:       gateway.ProviderVNPay,
			TransactionRef: newTransactionRef("DEP"),
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "deposit payment initiated",
			"booking_id", bookingID, "transaction_ref", payment.TransactionRef, "amount_cents", payment.AmountCents)
	}

	return s.checkout(payment, fmt.Sprintf("Deposit for booking %d", bookingID), returnURL, clientIP), nil
}

func (s *paymentService) InitiateFinalPayment(ctx context.Context, actor Actor, rentalID int32, returnURL, clientIP string) (*CheckoutSession, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("rental %d not found", rentalID)
		}
		return nil, err
	}
	if !actor.IsStaff() && rental.CustomerID != actor.ID {
		return nil, ErrNotFound("rental %d not found", rentalID)
	}
	if rental.Status != domain.RentalStatusReturnPending || !rental.HasCharges {
		return nil, ErrInvalidState("rental %d has no settled charges awaiting payment", rentalID)
	}

	booking, err := s.bookings.GetByID(ctx, rental.BookingID)
	if err != nil {
		return nil, err
	}
	amountDue := rental.TotalChargeCents - booking.PriceSnapshot.DepositCents
	if amountDue <= 0 {
		return nil, ErrInvalidState("rental %d owes nothing; the deposit covers the charges", rentalID)
	}

	if err := s.acquireInitLock(ctx, "final", rentalID); err != nil {
		return nil, err
	}

	payment, err := s.payments.GetPendingByRental(ctx, rentalID, domain.PaymentTypeRentalFinal)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if payment == nil {
		payment = &domain.Payment{
			RentalID:       &rental.ID,
			Type:           domain.PaymentTypeRentalFinal,
			Status:         domain.PaymentStatusPending,
			AmountCents:    amountDue,
			Currency:       booking.PriceSnapshot.Currency,
			Provider:       gateway.ProviderVNPay,
			TransactionRef: newTransactionRef("FIN"),
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "final payment initiated",
			"rental_id", rentalID, "transaction_ref", payment.TransactionRef, "amount_cents", amountDue)
	}

	return s.checkout(payment, fmt.Sprintf("Final charges for rental %d", rentalID), returnURL, clientIP), nil
}

func (s *paymentService) HandleCallback(ctx context.Context, values url.Values) (*CallbackOutcome, error) {
	result, err := s.gateway.ParseCallback(values)
	if err != nil {
		return nil, ErrValidation("callback rejected: %v", err)
	}

	payment, err := s.payments.GetByTransactionRef(ctx, result.TransactionRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("no payment with transaction ref %s", result.TransactionRef)
		}
		return nil, err
	}

	// Replay: a terminal payment's outcome is already decided. The stored
	// state answers, the duplicate callback mutates nothing.
	if payment.Terminal() {
		s.log.InfoContext(ctx, "duplicate gateway callback replayed",
			"transaction_ref", payment.TransactionRef, "status", payment.Status)
		return s.outcomeOf(payment, result), nil
	}

	if result.AmountCents != payment.AmountCents {
		return nil, ErrValidation("callback amount %d does not match payment amount %d for %s",
			result.AmountCents, payment.AmountCents, payment.TransactionRef)
	}

	// Record the gateway verdict before touching any domain state: once the
	// gateway says SUCCESS that fact is never lost, even if the internal
	// apply below fails.
	if result.Success {
		payment.Status = domain.PaymentStatusSuccess
	} else {
		payment.Status = domain.PaymentStatusFailed
	}
	payment.ResponseCode = result.ResponseCode
	payment.ProviderPaymentID = result.ProviderPaymentID
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	if result.Success {
		if err := s.apply(ctx, payment); err != nil {
			s.log.ErrorContext(ctx, "gateway reported success but internal apply failed",
				"transaction_ref", payment.TransactionRef, "error", err)
		}
	}

	s.log.InfoContext(ctx, "gateway callback processed",
		"transaction_ref", payment.TransactionRef,
		"status", payment.Status,
		"applied", payment.AppliedAt != nil)
	return s.outcomeOf(payment, result), nil
}

func (s *paymentService) ReconcileUnapplied(ctx context.Context) (int, error) {
	unapplied, err := s.payments.ListUnapplied(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range unapplied {
		p := &unapplied[i]
		if err := s.apply(ctx, p); err != nil {
			s.log.Warn("reconciliation retry failed",
				"transaction_ref", p.TransactionRef, "type", p.Type, "error", err)
			continue
		}
		repaired++
	}
	if repaired > 0 {
		s.log.Info("reconciled unapplied payments", "repaired", repaired, "pending", len(unapplied)-repaired)
	}
	return repaired, nil
}

// apply performs the internal side effect of a successful payment and stamps
// AppliedAt. It is idempotent through the underlying transitions, so the
// reconciliation sweep can retry it safely.
func (s *paymentService) apply(ctx context.Context, payment *domain.Payment) error {
	switch payment.Type {
	case domain.PaymentTypeDeposit:
		if payment.BookingID == nil {
			return fmt.Errorf("deposit payment %s has no booking", payment.TransactionRef)
		}
		if _, err := s.bookingSvc.Confirm(ctx, *payment.BookingID); err != nil {
			// The booking can move to EXPIRED or CANCELLED between the
			// checkout redirect and the callback. Confirm will never succeed
			// then, so retrying is pointless: refund the captured deposit
			// and close out the apply instead of sweeping it forever.
			if s.depositOrphaned(ctx, *payment.BookingID, err) {
				return s.refundOrphanedDeposit(ctx, payment, err)
			}
			return err
		}
	case domain.PaymentTypeRentalFinal:
		if payment.RentalID == nil {
			return fmt.Errorf("final payment %s has no rental", payment.TransactionRef)
		}
		if err := s.rentalSvc.CompleteFinalPayment(ctx, *payment.RentalID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("payment type %s has no apply step", payment.Type)
	}

	applied := s.now()
	payment.AppliedAt = &applied
	return s.payments.Update(ctx, payment)
}

// depositOrphaned reports whether a failed Confirm is permanent: only a
// booking that has actually reached a dead-end status qualifies. Transient
// confirm failures keep retrying through the reconciliation sweep.
func (s *paymentService) depositOrphaned(ctx context.Context, bookingID int32, confirmErr error) bool {
	if kind := KindOf(confirmErr); kind != KindExpired && kind != KindInvalidState {
		return false
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return false
	}
	return booking.Status == domain.BookingStatusCancelled || booking.Status == domain.BookingStatusExpired
}

// refundOrphanedDeposit records a PENDING refund for a deposit captured
// against a booking that can no longer be confirmed, then stamps the deposit
// applied so the reconciliation sweep stops picking it up.
func (s *paymentService) refundOrphanedDeposit(ctx context.Context, payment *domain.Payment, cause error) error {
	refund := &domain.Payment{
		BookingID:      payment.BookingID,
		Type:           domain.PaymentTypeRefund,
		Status:         domain.PaymentStatusPending,
		AmountCents:    payment.AmountCents,
		Currency:       payment.Currency,
		Provider:       payment.Provider,
		TransactionRef: newTransactionRef("REF"),
	}
	if err := s.payments.Create(ctx, refund); err != nil {
		return err
	}

	applied := s.now()
	payment.AppliedAt = &applied
	if err := s.payments.Update(ctx, payment); err != nil {
		return err
	}
	s.log.Warn("deposit refunded, booking no longer confirmable",
		"booking_id", *payment.BookingID,
		"transaction_ref", payment.TransactionRef,
		"refund_ref", refund.TransactionRef,
		"amount_cents", payment.AmountCents,
		"cause", cause)
	return nil
}

func (s *paymentService) outcomeOf(payment *domain.Payment, result *gateway.CallbackResult) *CallbackOutcome {
	return &CallbackOutcome{
		Payment:        payment,
		GatewaySuccess: payment.Status == domain.PaymentStatusSuccess,
		Applied:        payment.AppliedAt != nil,
		Envelope:       result.Envelope(),
	}
}

func (s *paymentService) checkout(payment *domain.Payment, orderInfo, returnURL, clientIP string) *CheckoutSession {
	checkoutURL := s.gateway.BuildPaymentURL(gateway.CheckoutRequest{
		TransactionRef: payment.TransactionRef,
		AmountCents:    payment.AmountCents,
		OrderInfo:      orderInfo,
		ReturnURL:      returnURL,
		ClientIP:       clientIP,
		Currency:       payment.Currency,
	})
	return &CheckoutSession{
		CheckoutURL:    checkoutURL,
		TransactionRef: payment.TransactionRef,
		Payment:        payment,
	}
}

// acquireInitLock enforces the short cool-down between payment initiations
// for the same obligation, absorbing double-clicks before they reach the
// pending-payment lookup.
func (s *paymentService) acquireInitLock(ctx context.Context, kind string, id int32) error {
	if s.cache == nil {
		return nil
	}
	acquired, err := s.cache.AcquirePaymentInitLock(ctx, kind, id, s.cooldown)
	if err != nil {
		s.log.Warn("payment init lock unavailable", "kind", kind, "id", id, "error", err)
		return nil
	}
	if !acquired {
		return ErrInvalidState("a payment for this %s was just initiated; retry in a few seconds", kind)
	}
	return nil
}

func newTransactionRef(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
