package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

type stationRepository struct {
	db *sql.DB
}

func NewStationRepository(db *sql.DB) repository.StationRepository {
	return &stationRepository{db: db}
}

func (r *stationRepository) GetByID(ctx context.Context, id int32) (*domain.Station, error) {
	s := &domain.Station{}
	query := `SELECT id, name, address, latitude, longitude, created_on FROM stations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Address, &s.Latitude, &s.Longitude, &s.CreatedOn)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return s, nil
}

func (r *stationRepository) List(ctx context.Context) ([]domain.Station, error) {
	query := `SELECT id, name, address, latitude, longitude, created_on FROM stations ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Latitude, &s.Longitude, &s.CreatedOn); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, station_id, model, plate_number, battery_kwh, hourly_rate_cents, daily_rate_cents, currency, status, created_on, updated_on
	          FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.StationID, &v.Model, &v.PlateNumber, &v.BatteryKwh, &v.HourlyRateCents, &v.DailyRateCents, &v.Currency, &v.Status, &v.CreatedOn, &v.UpdatedOn)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return v, nil
}

func (r *vehicleRepository) List(ctx context.Context, stationID int32, availableOnly bool) ([]domain.Vehicle, error) {
	query := `SELECT id, station_id, model, plate_number, battery_kwh, hourly_rate_cents, daily_rate_cents, currency, status, created_on, updated_on
	          FROM vehicles WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if stationID != 0 {
		query += ` AND station_id = $1`
		args = append(args, stationID)
		argIdx++
	}
	if availableOnly {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, domain.VehicleStatusAvailable)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.StationID, &v.Model, &v.PlateNumber, &v.BatteryKwh, &v.HourlyRateCents, &v.DailyRateCents, &v.Currency, &v.Status, &v.CreatedOn, &v.UpdatedOn); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// UpdateStatus flips a vehicle between AVAILABLE, RENTED and MAINTENANCE.
func (r *vehicleRepository) UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error {
	query := `UPDATE vehicles SET status = $1, updated_on = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}
