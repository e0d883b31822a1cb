package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/service"
)

func TestRouterSurface(t *testing.T) {
	r := NewRouter(Services{})

	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/bookings/calculate-price", true},
		{http.MethodPost, "/api/v1/bookings/11/confirm", true},
		{http.MethodPost, "/api/v1/bookings/11/cancel", true},
		{http.MethodPost, "/api/v1/payments/11/deposit", true},
		{http.MethodPost, "/api/v1/payments/rentals/3/final", true},
		{http.MethodGet, "/api/v1/payments/vnpay/callback", true},
		{http.MethodPost, "/api/v1/payments/vnpay/callback", true},
		{http.MethodPost, "/api/v1/rentals/11/pickup", true},
		{http.MethodPost, "/api/v1/rentals/3/return-inspection", true},
		{http.MethodPost, "/api/v1/rentals/3/complete-return", true},
		// Settlement mutates on first call, so it must not be reachable
		// over GET.
		{http.MethodGet, "/api/v1/rentals/3/complete-return", false},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var match mux.RouteMatch
			req := httptest.NewRequest(tc.method, tc.path, nil)
			matched := r.Match(req, &match) && match.MatchErr == nil
			assert.Equal(t, tc.want, matched)
		})
	}
}

type stubBookingService struct {
	service.BookingService
	booking   *domain.Booking
	getErr    error
	confirmed bool
}

func (s *stubBookingService) GetBooking(ctx context.Context, actor service.Actor, bookingID int32) (*domain.Booking, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.booking, nil
}

func (s *stubBookingService) Confirm(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	s.confirmed = true
	confirmed := *s.booking
	confirmed.Status = domain.BookingStatusConfirmed
	return &confirmed, nil
}

func TestBookingHandler_Confirm(t *testing.T) {
	t.Run("confirms an owned held booking", func(t *testing.T) {
		stub := &stubBookingService{booking: &domain.Booking{ID: 11, CustomerID: 42, Status: domain.BookingStatusHeld}}
		h := NewBookingHandler(stub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/11/confirm", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "11"})
		rec := httptest.NewRecorder()
		h.Confirm(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, stub.confirmed)
		assert.Contains(t, rec.Body.String(), string(domain.BookingStatusConfirmed))
	})

	t.Run("ownership failure stops before the transition", func(t *testing.T) {
		stub := &stubBookingService{getErr: service.ErrNotFound("booking 11 not found")}
		h := NewBookingHandler(stub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/11/confirm", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "11"})
		rec := httptest.NewRecorder()
		h.Confirm(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, stub.confirmed)
	})
}
