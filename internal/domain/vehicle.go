package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

// Station is read-only reference data; station administration happens
// outside this service.
type Station struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedOn time.Time `json:"created_on"`
}

// Vehicle carries the rate card used for quoting. The rate card fields are
// reference data: a Booking freezes its own copy at creation time, so editing
// a vehicle's rates never changes an already quoted price.
type Vehicle struct {
	ID              int32         `json:"id"`
	StationID       int32         `json:"station_id"`
	Model           string        `json:"model"`
	PlateNumber     string        `json:"plate_number"`
	BatteryKwh      float64       `json:"battery_kwh"`
	HourlyRateCents int64         `json:"hourly_rate_cents"`
	DailyRateCents  int64         `json:"daily_rate_cents"`
	Currency        string        `json:"currency"`
	Status          VehicleStatus `json:"status"`
	CreatedOn       time.Time     `json:"created_on"`
	UpdatedOn       time.Time     `json:"updated_on"`
}
