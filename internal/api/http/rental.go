package httpapi

import (
	"net/http"

	"station-rental-backend/internal/service"
)

type RentalHandler struct {
	rentals service.RentalService
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals}
}

func (h *RentalHandler) RecordPickup(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	bookingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input service.PickupInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	input.BookingID = bookingID

	rental, err := h.rentals.RecordPickup(r.Context(), actor, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (h *RentalHandler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input service.ReturnInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	input.RentalID = rentalID

	rental, err := h.rentals.RecordReturn(r.Context(), actor, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rental, fees, err := h.rentals.GetRental(r.Context(), actor, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rental":     rental,
		"extra_fees": fees,
	})
}

// CompleteReturn settles a returned rental. It is a POST because the first
// call mutates: zero and refund balances complete the rental immediately.
func (h *RentalHandler) CompleteReturn(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	settlement, err := h.rentals.CompleteReturn(r.Context(), actor, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
