package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/pricing"
	"station-rental-backend/internal/repository"
)

type bookingService struct {
	bookings      repository.BookingRepository
	vehicles      repository.VehicleRepository
	payments      repository.PaymentRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	cache         Cache
	email         EmailService
	holdTTL       time.Duration
	log           *slog.Logger
	now           func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	vehicles repository.VehicleRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	cache Cache,
	email EmailService,
	holdTTL time.Duration,
) BookingService {
	return &bookingService{
		bookings:      bookings,
		vehicles:      vehicles,
		payments:      payments,
		users:         users,
		notifications: notifications,
		cache:         cache,
		email:         email,
		holdTTL:       holdTTL,
		log:           logger.WithService("booking"),
		now:           time.Now,
	}
}

func (s *bookingService) CalculateQuote(ctx context.Context, vehicleID int32, startAt, endAt time.Time, insurancePremium bool) (*pricing.Breakdown, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("vehicle %d not found", vehicleID)
		}
		return nil, err
	}

	breakdown, err := pricing.Quote(rateCardOf(vehicle), startAt, endAt, insurancePremium)
	if err != nil {
		return nil, ErrValidation("invalid rental interval: %v", err)
	}
	return &breakdown, nil
}

func (s *bookingService) CreateHold(ctx context.Context, actor Actor, input CreateHoldInput) (*domain.Booking, error) {
	if !input.AgreementAccepted {
		return nil, ErrValidation("rental agreement must be accepted")
	}
	now := s.now()
	if input.StartAt.Before(now) {
		return nil, ErrValidation("start time must not be in the past")
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, ErrValidation("end time must be after start time")
	}

	vehicle, err := s.vehicles.GetByID(ctx, input.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("vehicle %d not found", input.VehicleID)
		}
		return nil, err
	}
	if vehicle.StationID != input.StationID {
		return nil, ErrValidation("vehicle %d is not stationed at station %d", input.VehicleID, input.StationID)
	}
	if vehicle.Status == domain.VehicleStatusMaintenance {
		return nil, ErrInvalidState("vehicle %d is under maintenance", input.VehicleID)
	}

	// Short-lived mutex around the overlap check and insert. Concurrent
	// holds on the same vehicle serialize here; the overlap query remains
	// the authoritative guard if redis is down.
	if s.cache != nil {
		acquired, err := s.cache.AcquireVehicleHold(ctx, input.VehicleID, 10*time.Second)
		if err != nil {
			s.log.Warn("vehicle hold lock unavailable, falling back to db check", "vehicle_id", input.VehicleID, "error", err)
		} else if !acquired {
			return nil, ErrInvalidState("vehicle %d is being booked by another customer", input.VehicleID)
		} else {
			defer func() {
				if err := s.cache.ReleaseVehicleHold(context.WithoutCancel(ctx), input.VehicleID); err != nil {
					s.log.Warn("failed to release vehicle hold lock", "vehicle_id", input.VehicleID, "error", err)
				}
			}()
		}
	}

	overlap, err := s.bookings.HasOverlap(ctx, input.VehicleID, input.StartAt, input.EndAt, now)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrInvalidState("vehicle %d is already booked for the requested interval", input.VehicleID)
	}

	breakdown, err := pricing.Quote(rateCardOf(vehicle), input.StartAt, input.EndAt, input.InsurancePremium)
	if err != nil {
		return nil, ErrValidation("invalid rental interval: %v", err)
	}

	booking := &domain.Booking{
		CustomerID:        actor.ID,
		VehicleID:         input.VehicleID,
		StationID:         input.StationID,
		StartAt:           input.StartAt,
		EndAt:             input.EndAt,
		Status:            domain.BookingStatusHeld,
		HoldExpiresAt:     now.Add(s.holdTTL),
		PriceSnapshot:     snapshotOf(vehicle, breakdown),
		InsuranceOption:   input.InsurancePremium,
		AgreementAccepted: input.AgreementAccepted,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "booking hold created",
		"booking_id", booking.ID,
		"customer_id", actor.ID,
		"vehicle_id", input.VehicleID,
		"hold_expires_at", booking.HoldExpiresAt,
		"total_cents", breakdown.TotalPriceCents)
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID int32) (*domain.Booking, error) {
	booking, err := s.loadBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	// Lazy expiry: a HELD booking read past its deadline is surfaced, and
	// persisted, as EXPIRED even if the sweep has not run yet.
	if booking.HoldExpired(s.now()) {
		s.expireHold(ctx, booking)
	}
	return booking, nil
}

func (s *bookingService) Confirm(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("booking %d not found", bookingID)
		}
		return nil, err
	}

	switch booking.Status {
	case domain.BookingStatusConfirmed:
		return booking, nil
	case domain.BookingStatusCancelled, domain.BookingStatusExpired:
		return nil, ErrInvalidState("booking %d is %s and cannot be confirmed", bookingID, booking.Status)
	}
	if booking.HoldExpired(s.now()) {
		s.expireHold(ctx, booking)
		return nil, ErrExpired("hold on booking %d expired at %s", bookingID, booking.HoldExpiresAt.Format(time.RFC3339))
	}

	if _, err := s.payments.GetSuccessfulDeposit(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidState("booking %d has no successful deposit payment", bookingID)
		}
		return nil, err
	}

	booking.Status = domain.BookingStatusConfirmed
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "booking confirmed", "booking_id", booking.ID, "customer_id", booking.CustomerID)

	s.notifyConfirmed(ctx, booking)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor Actor, bookingID int32, reason string) (*domain.Booking, error) {
	booking, err := s.loadBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.HoldExpired(s.now()) {
		s.expireHold(ctx, booking)
		return nil, ErrExpired("hold on booking %d expired at %s", bookingID, booking.HoldExpiresAt.Format(time.RFC3339))
	}
	if booking.Status != domain.BookingStatusHeld && booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrInvalidState("booking %d is %s and cannot be cancelled", bookingID, booking.Status)
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancelReason = reason
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "booking cancelled", "booking_id", booking.ID, "reason", reason)
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.bookings.ListByCustomer(ctx, actor.ID, status, page, pageSize)
}

// loadBooking fetches a booking and enforces ownership: customers only see
// their own bookings, staff see all.
func (s *bookingService) loadBooking(ctx context.Context, actor Actor, bookingID int32) (*domain.Booking, error) {
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
	return booking, nil
}

// expireHold persists the EXPIRED transition observed by a lazy read. A
// persistence failure is logged and the in-memory status kept, so the caller
// still sees EXPIRED; the sweep will retry the write.
func (s *bookingService) expireHold(ctx context.Context, booking *domain.Booking) {
	booking.Status = domain.BookingStatusExpired
	if err := s.bookings.Update(ctx, booking); err != nil {
		s.log.ErrorContext(ctx, "failed to persist lazy hold expiry", "booking_id", booking.ID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "booking hold expired on read", "booking_id", booking.ID)
}

func (s *bookingService) notifyConfirmed(ctx context.Context, booking *domain.Booking) {
	note := &domain.Notification{
		UserID:  booking.CustomerID,
		Title:   "Booking confirmed",
		Message: "Your deposit was received and your booking is confirmed.",
		Attributes: map[string]string{
			"booking_id": fmt32(booking.ID),
			"start_at":   booking.StartAt.Format(time.RFC3339),
		},
	}
	if err := s.notifications.Create(ctx, note); err != nil {
		s.log.Warn("failed to create confirmation notification", "booking_id", booking.ID, "error", err)
	}

	if s.email == nil {
		return
	}
	user, err := s.users.GetByID(ctx, booking.CustomerID)
	if err != nil {
		s.log.Warn("failed to load customer for confirmation email", "customer_id", booking.CustomerID, "error", err)
		return
	}
	snap := booking.PriceSnapshot
	if err := s.email.SendBookingConfirmation(ctx, user.Email, user.Name, booking.ID, snap.TotalPriceCents, snap.DepositCents, snap.Currency); err != nil {
		s.log.Warn("failed to send confirmation email", "booking_id", booking.ID, "error", err)
	}
}

func rateCardOf(v *domain.Vehicle) pricing.RateCard {
	return pricing.RateCard{
		HourlyRateCents: v.HourlyRateCents,
		DailyRateCents:  v.DailyRateCents,
		Currency:        v.Currency,
	}
}

// snapshotOf freezes the quoted breakdown and the rate card it was computed
// from onto the booking.
func snapshotOf(v *domain.Vehicle, b pricing.Breakdown) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		BasePriceCents:      b.BasePriceCents,
		InsurancePriceCents: b.InsurancePriceCents,
		TaxesCents:          b.TaxesCents,
		TotalPriceCents:     b.TotalPriceCents,
		DepositCents:        b.DepositCents,
		Currency:            b.Currency,
		HourlyRateCents:     v.HourlyRateCents,
		DailyRateCents:      v.DailyRateCents,
		Hours:               b.Details.Hours,
		Days:                b.Details.Days,
		PeakHours:           b.Details.PeakHours,
		WeekendBlocks:       b.Details.WeekendBlocks,
	}
}
