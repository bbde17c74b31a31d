// README: Pricing service computes fare estimates from distance and tariff.
package pricing

import (
	"errors"
	"math"

	"cargoflow/internal/types"
)

var ErrUnknownVehicleType = errors.New("unknown vehicle type")

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Estimate computes base + distanceKm * perKm, rounded to the cent.
func (s *Service) Estimate(vehicleTypeID types.ID, distanceMeters float64) (types.Money, error) {
	t, ok := s.store.Get(vehicleTypeID)
	if !ok {
		return types.Money{}, ErrUnknownVehicleType
	}
	distanceKm := distanceMeters / 1000
	cents := t.BaseFare.Cents + int64(math.Round(distanceKm*float64(t.PerKm.Cents)))
	return types.Money{Cents: cents, Currency: t.BaseFare.Currency}, nil
}

// Tariff exposes a single tariff row.
func (s *Service) Tariff(id types.ID) (Tariff, error) {
	t, ok := s.store.Get(id)
	if !ok {
		return Tariff{}, ErrUnknownVehicleType
	}
	return t, nil
}

// List returns all tariffs for the vehicle-types endpoint.
func (s *Service) List() []Tariff {
	return s.store.List()
}
