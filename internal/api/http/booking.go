package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"station-rental-backend/internal/service"
)

type BookingHandler struct {
	bookings service.BookingService
}

func NewBookingHandler(bookings service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type quoteRequest struct {
	VehicleID        int32     `json:"vehicle_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	InsurancePremium bool      `json:"insurance_premium"`
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	breakdown, err := h.bookings.CalculateQuote(r.Context(), req.VehicleID, req.StartAt, req.EndAt, req.InsurancePremium)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *BookingHandler) CreateHold(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var input service.CreateHoldInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.bookings.CreateHold(r.Context(), actor, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	q := r.URL.Query()
	page := parseIntParam(q.Get("page"), 1)
	pageSize := parseIntParam(q.Get("page_size"), 20)

	bookings, total, err := h.bookings.ListBookings(r.Context(), actor, q.Get("status"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"total":    total,
		"page":     page,
	})
}

// Confirm lets a client finalize a held booking once its deposit has gone
// through. The ownership check runs first; the transition itself is the same
// idempotent one the gateway callback drives.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.bookings.GetBooking(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	booking, err := h.bookings.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func parseIntParam(raw string, def int32) int32 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 1 {
		return def
	}
	return int32(v)
}
