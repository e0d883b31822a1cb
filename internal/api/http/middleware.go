package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/security"
	"station-rental-backend/internal/service"
)

type contextKey string

const actorKey contextKey = "actor"

// actorFrom returns the authenticated actor stored by AuthMiddleware.
func actorFrom(r *http.Request) (service.Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(service.Actor)
	return actor, ok
}

// AuthMiddleware validates the bearer token and stores the actor on the
// request context. Requests without a valid token are rejected outright.
func AuthMiddleware(tokens security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "missing bearer token"))
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				msg := "invalid token"
				if err == security.ErrExpiredToken {
					msg = "token has expired"
				}
				writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHENTICATED", msg))
				return
			}

			actor := service.Actor{ID: claims.UserID, Role: domain.UserRole(claims.Role)}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

// RequireStaff gates a route to station staff and admins.
func RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r)
		if !ok || !actor.IsStaff() {
			writeError(w, r, service.ErrUnauthorized("staff access required"))
			return
		}
		next(w, r)
	}
}

// LoggingMiddleware records one line per request with status and latency.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func errorBody(code, message string) errorResponse {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	return resp
}
