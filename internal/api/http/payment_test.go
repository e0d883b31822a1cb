package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/security"
	"station-rental-backend/internal/service"
)

// stubPaymentService returns canned outcomes for the callback route.
type stubPaymentService struct {
	outcome *service.CallbackOutcome
	err     error
}

func (s *stubPaymentService) InitiateDeposit(ctx context.Context, actor service.Actor, bookingID int32, returnURL, clientIP string) (*service.CheckoutSession, error) {
	return nil, service.ErrNotFound("not wired in this test")
}
func (s *stubPaymentService) InitiateFinalPayment(ctx context.Context, actor service.Actor, rentalID int32, returnURL, clientIP string) (*service.CheckoutSession, error) {
	return nil, service.ErrNotFound("not wired in this test")
}
func (s *stubPaymentService) HandleCallback(ctx context.Context, values url.Values) (*service.CallbackOutcome, error) {
	return s.outcome, s.err
}
func (s *stubPaymentService) ReconcileUnapplied(ctx context.Context) (int, error) {
	return 0, nil
}

func callbackOutcome(gatewaySuccess, applied bool) *service.CallbackOutcome {
	appliedAt := time.Now()
	p := &domain.Payment{TransactionRef: "DEP-abc", Status: domain.PaymentStatusFailed}
	if gatewaySuccess {
		p.Status = domain.PaymentStatusSuccess
	}
	if applied {
		p.AppliedAt = &appliedAt
	}
	return &service.CallbackOutcome{
		Payment:        p,
		GatewaySuccess: gatewaySuccess,
		Applied:        applied,
		Envelope:       gateway.Envelope{TransactionRef: "DEP-abc", Provider: gateway.ProviderVNPay},
	}
}

func TestPaymentHandler_Callback(t *testing.T) {
	cases := []struct {
		name       string
		outcome    *service.CallbackOutcome
		err        error
		wantStatus int
	}{
		{"applied success answers 200", callbackOutcome(true, true), nil, http.StatusOK},
		{"gateway failure answers 200 with FAILED body", callbackOutcome(false, false), nil, http.StatusOK},
		{"unapplied success answers 502", callbackOutcome(true, false), nil, http.StatusBadGateway},
		{"bad signature answers 400", nil, service.ErrValidation("callback rejected"), http.StatusBadRequest},
		{"unknown ref answers 404", nil, service.ErrNotFound("no payment"), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPaymentHandler(&stubPaymentService{outcome: tc.outcome, err: tc.err})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/callback?vnp_TxnRef=DEP-abc", nil)
			rec := httptest.NewRecorder()
			h.Callback(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.outcome != nil {
				assert.Contains(t, rec.Body.String(), tc.outcome.Code())
			}
		})
	}

	t.Run("IPN form post reaches the handler", func(t *testing.T) {
		h := NewPaymentHandler(&stubPaymentService{outcome: callbackOutcome(true, true)})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/callback",
			strings.NewReader("vnp_TxnRef=DEP-abc&vnp_ResponseCode=00"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Callback(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "SUCCESS")
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", 60)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r)
		assert.True(t, ok)
		writeJSON(w, http.StatusOK, actor)
	})
	handler := AuthMiddleware(tokens)(next)

	t.Run("missing token answers 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token answers 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		token, err := tokens.GenerateAccessToken(&domain.User{ID: 42, Role: domain.UserRoleCustomer})
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", 60)
	handler := AuthMiddleware(tokens)(RequireStaff(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	}))

	t.Run("customers are forbidden", func(t *testing.T) {
		token, _ := tokens.GenerateAccessToken(&domain.User{ID: 42, Role: domain.UserRoleCustomer})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals/11/pickup", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("staff pass through", func(t *testing.T) {
		token, _ := tokens.GenerateAccessToken(&domain.User{ID: 5, Role: domain.UserRoleStaff})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals/11/pickup", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
