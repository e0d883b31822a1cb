package service

import (
	"context"
	"errors"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
)

type catalogService struct {
	stations repository.StationRepository
	vehicles repository.VehicleRepository
}

func NewCatalogService(stations repository.StationRepository, vehicles repository.VehicleRepository) CatalogService {
	return &catalogService{stations: stations, vehicles: vehicles}
}

func (s *catalogService) ListStations(ctx context.Context) ([]domain.Station, error) {
	return s.stations.List(ctx)
}

func (s *catalogService) ListVehicles(ctx context.Context, stationID int32, availableOnly bool) ([]domain.Vehicle, error) {
	if stationID > 0 {
		if _, err := s.stations.GetByID(ctx, stationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound("station %d not found", stationID)
			}
			return nil, err
		}
	}
	return s.vehicles.List(ctx, stationID, availableOnly)
}

func (s *catalogService) GetVehicle(ctx context.Context, vehicleID int32) (*domain.Vehicle, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("vehicle %d not found", vehicleID)
		}
		return nil, err
	}
	return vehicle, nil
}
