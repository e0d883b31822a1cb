package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/pricing"
	"station-rental-backend/internal/repository"

	"github.com/google/uuid"
)

// MinReturnPhotos is the smallest photo set a return inspection accepts.
const MinReturnPhotos = 4

type rentalService struct {
	rentals       repository.RentalRepository
	bookings      repository.BookingRepository
	vehicles      repository.VehicleRepository
	payments      repository.PaymentRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	email         EmailService
	log           *slog.Logger
	now           func() time.Time
}

func NewRentalService(
	rentals repository.RentalRepository,
	bookings repository.BookingRepository,
	vehicles repository.VehicleRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	email EmailService,
) RentalService {
	return &rentalService{
		rentals:       rentals,
		bookings:      bookings,
		vehicles:      vehicles,
		payments:      payments,
		users:         users,
		notifications: notifications,
		email:         email,
		log:           logger.WithService("rental"),
		now:           time.Now,
	}
}

func (s *rentalService) RecordPickup(ctx context.Context, staff Actor, input PickupInput) (*domain.Rental, error) {
	if !staff.IsStaff() {
		return nil, ErrUnauthorized("only station staff can record a pickup")
	}
	if err := validateCondition(input.OdoKm, input.SocPercent); err != nil {
		return nil, err
	}
	if len(input.PhotoURLs) == 0 {
		return nil, ErrValidation("pickup requires at least one vehicle photo")
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("booking %d not found", input.BookingID)
		}
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrInvalidState("booking %d is %s; only confirmed bookings can be picked up", input.BookingID, booking.Status)
	}

	if existing, err := s.rentals.GetByBookingID(ctx, input.BookingID); err == nil {
		return nil, ErrInvalidState("booking %d already has rental %d", input.BookingID, existing.ID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	rental := &domain.Rental{
		BookingID:        booking.ID,
		CustomerID:       booking.CustomerID,
		VehicleID:        booking.VehicleID,
		StationID:        booking.StationID,
		Status:           domain.RentalStatusOngoing,
		ExpectedReturnAt: booking.EndAt,
		Pickup: domain.VehicleCondition{
			At:         s.now(),
			OdoKm:      input.OdoKm,
			SocPercent: input.SocPercent,
			PhotoURLs:  input.PhotoURLs,
		},
		PickupStaffID: staff.ID,
	}
	if err := s.rentals.Create(ctx, rental); err != nil {
		return nil, err
	}

	if err := s.vehicles.UpdateStatus(ctx, booking.VehicleID, domain.VehicleStatusRented); err != nil {
		s.log.ErrorContext(ctx, "failed to mark vehicle rented", "vehicle_id", booking.VehicleID, "error", err)
	}

	s.log.InfoContext(ctx, "vehicle handed over",
		"rental_id", rental.ID, "booking_id", booking.ID, "vehicle_id", booking.VehicleID, "staff_id", staff.ID)
	return rental, nil
}

func (s *rentalService) RecordReturn(ctx context.Context, staff Actor, input ReturnInput) (*domain.Rental, error) {
	if !staff.IsStaff() {
		return nil, ErrUnauthorized("only station staff can record a return")
	}
	if err := validateCondition(input.OdoKm, input.SocPercent); err != nil {
		return nil, err
	}
	if len(input.PhotoURLs) < MinReturnPhotos {
		return nil, ErrValidation("return inspection requires at least %d photos, got %d", MinReturnPhotos, len(input.PhotoURLs))
	}

	rental, err := s.rentals.GetByID(ctx, input.RentalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("rental %d not found", input.RentalID)
		}
		return nil, err
	}
	if rental.Status != domain.RentalStatusOngoing {
		return nil, ErrInvalidState("rental %d is %s; only ongoing rentals can be returned", rental.ID, rental.Status)
	}
	if input.OdoKm < rental.Pickup.OdoKm {
		return nil, ErrValidation("return odometer %d km is below pickup odometer %d km", input.OdoKm, rental.Pickup.OdoKm)
	}

	booking, err := s.bookings.GetByID(ctx, rental.BookingID)
	if err != nil {
		return nil, err
	}
	snap := booking.PriceSnapshot

	fees, err := s.buildFees(input.ExtraFees, snap, rental.ExpectedReturnAt)
	if err != nil {
		return nil, err
	}
	var extraTotal int64
	for _, f := range fees {
		extraTotal += f.AmountCents
	}

	returnedAt := s.now()
	rental.Return = &domain.VehicleCondition{
		At:         returnedAt,
		OdoKm:      input.OdoKm,
		SocPercent: input.SocPercent,
		PhotoURLs:  input.PhotoURLs,
	}
	rental.ReturnStaffID = &staff.ID
	rental.RentalFeeCents = snap.BasePriceCents
	rental.ExtraFeesCents = extraTotal
	rental.TotalChargeCents = snap.BasePriceCents + extraTotal
	rental.HasCharges = true
	rental.Status = domain.RentalStatusReturnPending

	if err := s.rentals.ReplaceExtraFees(ctx, rental.ID, fees); err != nil {
		return nil, err
	}
	if err := s.rentals.Update(ctx, rental); err != nil {
		return nil, err
	}

	if err := s.vehicles.UpdateStatus(ctx, rental.VehicleID, domain.VehicleStatusAvailable); err != nil {
		s.log.ErrorContext(ctx, "failed to mark vehicle available", "vehicle_id", rental.VehicleID, "error", err)
	}

	s.log.InfoContext(ctx, "return inspection recorded",
		"rental_id", rental.ID,
		"staff_id", staff.ID,
		"total_charge_cents", rental.TotalChargeCents,
		"extra_fees_cents", extraTotal,
		"overdue", returnedAt.Sub(rental.ExpectedReturnAt) > 0)
	return rental, nil
}

func (s *rentalService) CompleteReturn(ctx context.Context, actor Actor, rentalID int32) (*Settlement, error) {
	rental, err := s.loadRental(ctx, actor, rentalID)
	if err != nil {
		return nil, err
	}
	if !rental.HasCharges {
		return nil, ErrInvalidState("rental %d has no recorded return inspection", rentalID)
	}
	if rental.Status != domain.RentalStatusReturnPending && rental.Status != domain.RentalStatusCompleted {
		return nil, ErrInvalidState("rental %d is %s and has no settlement", rentalID, rental.Status)
	}

	booking, err := s.bookings.GetByID(ctx, rental.BookingID)
	if err != nil {
		return nil, err
	}
	amount := rental.TotalChargeCents - booking.PriceSnapshot.DepositCents

	// Already settled: answer from stored state without re-running side
	// effects, whatever the original direction was.
	if rental.Status == domain.RentalStatusCompleted {
		return &Settlement{AmountCents: amount, Direction: DirectionSettled, Rental: rental}, nil
	}

	switch {
	case amount > 0:
		// Customer owes the difference; the rental completes when the
		// final payment reconciles.
		return &Settlement{AmountCents: amount, Direction: DirectionPaymentDue, Rental: rental}, nil

	case amount == 0:
		rental.Status = domain.RentalStatusCompleted
		if err := s.rentals.Update(ctx, rental); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "rental settled, deposit exactly covers charges", "rental_id", rental.ID)
		s.notifySettled(ctx, rental, 0, DirectionSettled, booking.PriceSnapshot.Currency)
		return &Settlement{AmountCents: 0, Direction: DirectionSettled, Rental: rental}, nil

	default:
		refund := &domain.Payment{
			RentalID:       &rental.ID,
			Type:           domain.PaymentTypeRefund,
			Status:         domain.PaymentStatusPending,
			AmountCents:    -amount,
			Currency:       booking.PriceSnapshot.Currency,
			Provider:       gateway.ProviderVNPay,
			TransactionRef: "REF-" + uuid.NewString(),
		}
		if err := s.payments.Create(ctx, refund); err != nil {
			return nil, err
		}
		rental.Status = domain.RentalStatusCompleted
		if err := s.rentals.Update(ctx, rental); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "rental settled with refund due",
			"rental_id", rental.ID, "refund_cents", -amount, "transaction_ref", refund.TransactionRef)
		s.notifySettled(ctx, rental, amount, DirectionRefundDue, booking.PriceSnapshot.Currency)
		return &Settlement{AmountCents: amount, Direction: DirectionRefundDue, Rental: rental, Payment: refund}, nil
	}
}

func (s *rentalService) CompleteFinalPayment(ctx context.Context, rentalID int32) error {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound("rental %d not found", rentalID)
		}
		return err
	}
	if rental.Status == domain.RentalStatusCompleted {
		return nil
	}
	if rental.Status != domain.RentalStatusReturnPending {
		return ErrInvalidState("rental %d is %s; final payment cannot complete it", rentalID, rental.Status)
	}

	rental.Status = domain.RentalStatusCompleted
	if err := s.rentals.Update(ctx, rental); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "rental completed after final payment", "rental_id", rental.ID)
	s.notifySettled(ctx, rental, 0, DirectionSettled, "")
	return nil
}

func (s *rentalService) GetRental(ctx context.Context, actor Actor, rentalID int32) (*domain.Rental, []domain.ExtraFee, error) {
	rental, err := s.loadRental(ctx, actor, rentalID)
	if err != nil {
		return nil, nil, err
	}
	fees, err := s.rentals.ListExtraFees(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	return rental, fees, nil
}

func (s *rentalService) loadRental(ctx context.Context, actor Actor, rentalID int32) (*domain.Rental, error) {
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
	return rental, nil
}

// buildFees validates the staff-submitted fee lines and appends the
// automatic late fee. Submitted LATE entries are discarded: the overdue
// charge is always computed from the frozen rate card, never typed in.
func (s *rentalService) buildFees(inputs []ExtraFeeInput, snap domain.PriceSnapshot, expectedReturnAt time.Time) ([]domain.ExtraFee, error) {
	fees := make([]domain.ExtraFee, 0, len(inputs)+1)
	for _, in := range inputs {
		switch in.Type {
		case domain.ExtraFeeTypeLate:
			continue
		case domain.ExtraFeeTypeDamage, domain.ExtraFeeTypeCleaning, domain.ExtraFeeTypeOther:
		default:
			return nil, ErrValidation("unknown extra fee type %q", in.Type)
		}
		if in.AmountCents <= 0 {
			return nil, ErrValidation("extra fee amount must be positive, got %d", in.AmountCents)
		}
		fees = append(fees, domain.ExtraFee{
			Type:        in.Type,
			AmountCents: in.AmountCents,
			Description: in.Description,
		})
	}

	overdue := s.now().Sub(expectedReturnAt)
	lateFee := pricing.LateFee(pricing.RateCard{
		HourlyRateCents: snap.HourlyRateCents,
		DailyRateCents:  snap.DailyRateCents,
		Currency:        snap.Currency,
	}, overdue)
	if lateFee > 0 {
		fees = append(fees, domain.ExtraFee{
			Type:        domain.ExtraFeeTypeLate,
			AmountCents: lateFee,
			Description: "Late return fee",
		})
	}
	return fees, nil
}

func (s *rentalService) notifySettled(ctx context.Context, rental *domain.Rental, amountCents int64, direction SettlementDirection, currency string) {
	var msg string
	switch direction {
	case DirectionRefundDue:
		msg = "Your rental is complete. A deposit refund is on its way."
	default:
		msg = "Your rental is complete. Thank you for riding with us."
	}
	note := &domain.Notification{
		UserID:  rental.CustomerID,
		Title:   "Rental completed",
		Message: msg,
		Attributes: map[string]string{
			"rental_id": fmt32(rental.ID),
		},
	}
	if err := s.notifications.Create(ctx, note); err != nil {
		s.log.Warn("failed to create settlement notification", "rental_id", rental.ID, "error", err)
	}

	if s.email == nil {
		return
	}
	user, err := s.users.GetByID(ctx, rental.CustomerID)
	if err != nil {
		s.log.Warn("failed to load customer for settlement email", "customer_id", rental.CustomerID, "error", err)
		return
	}
	if err := s.email.SendSettlementNotice(ctx, user.Email, user.Name, rental.ID, amountCents, direction, currency); err != nil {
		s.log.Warn("failed to send settlement email", "rental_id", rental.ID, "error", err)
	}
}

func validateCondition(odoKm, socPercent int32) error {
	if odoKm < 0 {
		return ErrValidation("odometer reading must not be negative")
	}
	if socPercent < 0 || socPercent > 100 {
		return ErrValidation("state of charge must be between 0 and 100")
	}
	return nil
}
