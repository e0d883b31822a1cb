package httpapi

import (
	"net/http"

	"station-rental-backend/internal/service"
)

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type initiatePaymentRequest struct {
	ReturnURL string `json:"return_url"`
}

func (h *PaymentHandler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	bookingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.payments.InitiateDeposit(r.Context(), actor, bookingID, req.ReturnURL, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *PaymentHandler) InitiateFinalPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.payments.InitiateFinalPayment(r.Context(), actor, rentalID, req.ReturnURL, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Callback receives the gateway redirect (GET) or IPN notification (POST).
// It is unauthenticated: the HMAC on the parameters is the only thing
// trusted, never the caller.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, service.ErrValidation("malformed callback parameters"))
		return
	}
	outcome, err := h.payments.HandleCallback(r.Context(), r.Form)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.GatewaySuccess && !outcome.Applied {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"status":   outcome.Code(),
		"envelope": outcome.Envelope,
		"payment":  outcome.Payment,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
