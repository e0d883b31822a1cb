package service

import (
	"context"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/gateway"
)

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) HasOverlap(ctx context.Context, vehicleID int32, startAt, endAt, now time.Time) (bool, error) {
	args := m.Called(ctx, vehicleID, startAt, endAt, now)
	return args.Bool(0), args.Error(1)
}
func (m *MockBookingRepo) ExpireHeldBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, customerID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}

// MockVehicleRepo
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) List(ctx context.Context, stationID int32, availableOnly bool) ([]domain.Vehicle, error) {
	args := m.Called(ctx, stationID, availableOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, r *domain.Rental) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) GetByBookingID(ctx context.Context, bookingID int32) (*domain.Rental, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) Update(ctx context.Context, r *domain.Rental) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRentalRepo) ReplaceExtraFees(ctx context.Context, rentalID int32, fees []domain.ExtraFee) error {
	args := m.Called(ctx, rentalID, fees)
	return args.Error(0)
}
func (m *MockRentalRepo) ListExtraFees(ctx context.Context, rentalID int32) ([]domain.ExtraFee, error) {
	args := m.Called(ctx, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtraFee), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetPendingByBooking(ctx context.Context, bookingID int32, t domain.PaymentType) (*domain.Payment, error) {
	args := m.Called(ctx, bookingID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetPendingByRental(ctx context.Context, rentalID int32, t domain.PaymentType) (*domain.Payment, error) {
	args := m.Called(ctx, rentalID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetSuccessfulDeposit(ctx context.Context, bookingID int32) (*domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ListUnapplied(ctx context.Context) ([]domain.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireVehicleHold(ctx context.Context, vehicleID int32, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, vehicleID, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *MockCache) ReleaseVehicleHold(ctx context.Context, vehicleID int32) error {
	args := m.Called(ctx, vehicleID)
	return args.Error(0)
}
func (m *MockCache) AcquirePaymentInitLock(ctx context.Context, kind string, id int32, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, kind, id, ttl)
	return args.Bool(0), args.Error(1)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) BuildPaymentURL(req gateway.CheckoutRequest) string {
	args := m.Called(req)
	return args.String(0)
}
func (m *MockGateway) ParseCallback(values url.Values) (*gateway.CallbackResult, error) {
	args := m.Called(values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CallbackResult), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBookingConfirmation(ctx context.Context, email, name string, bookingID int32, totalCents, depositCents int64, currency string) error {
	args := m.Called(ctx, email, name, bookingID, totalCents, depositCents, currency)
	return args.Error(0)
}
func (m *MockEmailService) SendSettlementNotice(ctx context.Context, email, name string, rentalID int32, amountCents int64, direction SettlementDirection, currency string) error {
	args := m.Called(ctx, email, name, rentalID, amountCents, direction, currency)
	return args.Error(0)
}

// MockBookingSvc is the booking side effect seen by the payment service.
type MockBookingSvc struct {
	BookingService
	mock.Mock
}

func (m *MockBookingSvc) Confirm(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

// MockRentalSvc is the rental side effect seen by the payment service.
type MockRentalSvc struct {
	RentalService
	mock.Mock
}

func (m *MockRentalSvc) CompleteFinalPayment(ctx context.Context, rentalID int32) error {
	args := m.Called(ctx, rentalID)
	return args.Error(0)
}
