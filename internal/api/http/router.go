package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"station-rental-backend/internal/security"
	"station-rental-backend/internal/service"
	"station-rental-backend/internal/storage"
)

// Services bundles everything the router needs.
type Services struct {
	Auth          service.AuthService
	Catalog       service.CatalogService
	Bookings      service.BookingService
	Payments      service.PaymentService
	Rentals       service.RentalService
	Notifications service.NotificationService
	Photos        storage.PhotoStorage
	Tokens        security.TokenManager
}

// NewRouter builds the full route table. Gateway callbacks and photo serving
// are the only authenticated-surface exceptions: the callback trusts its HMAC
// and photos are public by URL.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	authH := NewAuthHandler(s.Auth)
	catalogH := NewCatalogHandler(s.Catalog)
	bookingH := NewBookingHandler(s.Bookings)
	paymentH := NewPaymentHandler(s.Payments)
	rentalH := NewRentalHandler(s.Rentals)
	noteH := NewNotificationHandler(s.Notifications)
	uploadH := NewUploadHandler(s.Photos)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public surface.
	api.HandleFunc("/auth/login", authH.Login).Methods(http.MethodPost)
	api.HandleFunc("/stations", catalogH.ListStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/vehicles", catalogH.ListVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", catalogH.GetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/bookings/calculate-price", bookingH.Quote).Methods(http.MethodPost)
	api.HandleFunc("/payments/vnpay/callback", paymentH.Callback).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/uploads/{name}", uploadH.ServePhoto).Methods(http.MethodGet)

	// Authenticated surface.
	authed := api.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(s.Tokens))

	authed.HandleFunc("/bookings", bookingH.CreateHold).Methods(http.MethodPost)
	authed.HandleFunc("/bookings", bookingH.List).Methods(http.MethodGet)
	authed.HandleFunc("/bookings/{id}", bookingH.Get).Methods(http.MethodGet)
	authed.HandleFunc("/bookings/{id}/confirm", bookingH.Confirm).Methods(http.MethodPost)
	authed.HandleFunc("/bookings/{id}/cancel", bookingH.Cancel).Methods(http.MethodPost)
	authed.HandleFunc("/payments/{id}/deposit", paymentH.InitiateDeposit).Methods(http.MethodPost)
	authed.HandleFunc("/payments/rentals/{id}/final", paymentH.InitiateFinalPayment).Methods(http.MethodPost)

	authed.HandleFunc("/rentals/{id}/pickup", RequireStaff(rentalH.RecordPickup)).Methods(http.MethodPost)
	authed.HandleFunc("/rentals/{id}/return-inspection", RequireStaff(rentalH.RecordReturn)).Methods(http.MethodPost)
	authed.HandleFunc("/rentals/{id}", rentalH.Get).Methods(http.MethodGet)
	authed.HandleFunc("/rentals/{id}/complete-return", rentalH.CompleteReturn).Methods(http.MethodPost)

	authed.HandleFunc("/uploads/photos", uploadH.UploadPhoto).Methods(http.MethodPost)

	authed.HandleFunc("/notifications", noteH.List).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/{id}/read", noteH.MarkAsRead).Methods(http.MethodPost)

	return r
}
