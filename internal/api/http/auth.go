package httpapi

import (
	"net/http"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/service"
)

type AuthHandler struct {
	auth service.AuthService
}

func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Login failures answer 401, not the 403 other unauthorized
		// errors map to.
		if service.KindOf(err) == service.KindUnauthorized {
			writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "invalid email or password"))
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}
