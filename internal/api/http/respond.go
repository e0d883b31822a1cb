// Package httpapi exposes the REST surface. Handlers decode and authorize,
// services decide; every error leaving this package is a classified service
// error mapped onto an HTTP status here and nowhere else.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/service"
)

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := statusOf(kind)

	var resp errorResponse
	if kind != "" {
		resp.Error.Code = string(kind)
		var se *service.Error
		if errors.As(err, &se) {
			resp.Error.Message = se.Msg
		}
	} else {
		resp.Error.Code = "INTERNAL_ERROR"
		resp.Error.Message = "something went wrong"
		logger.ErrorContext(r.Context(), "unclassified handler error",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, resp)
}

func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidState:
		return http.StatusConflict
	case service.KindExpired:
		return http.StatusGone
	case service.KindGatewayMismatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return service.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
