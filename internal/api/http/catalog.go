package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"station-rental-backend/internal/service"
)

type CatalogHandler struct {
	catalog service.CatalogService
}

func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.catalog.ListStations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
}

func (h *CatalogHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	availableOnly := r.URL.Query().Get("available") == "true"

	vehicles, err := h.catalog.ListVehicles(r.Context(), stationID, availableOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

func (h *CatalogHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	vehicle, err := h.catalog.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// pathID extracts an int32 path variable.
func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, service.ErrValidation("invalid %s %q", name, raw)
	}
	return int32(id), nil
}
