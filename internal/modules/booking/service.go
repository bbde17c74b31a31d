// README: Booking ledger service; validates commands and drives the state machine.
package booking

import (
	"context"
	"errors"
	"time"

	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/types"
)

var (
	ErrInvalidVehicleType = errors.New("invalid vehicle type")
	// ErrUnauthorized means the caller is not the driver assigned to the
	// booking it tries to move.
	ErrUnauthorized = errors.New("not authorized for booking")
	// ErrIllegalTransition means the requested status is not reachable
	// from the booking's current status.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// TariffSource is the slice of the pricing catalog the ledger needs.
type TariffSource interface {
	Tariff(id types.ID) (pricing.Tariff, error)
}

// Service owns booking records and the lifecycle rules. Fleet state and
// event fan-out are the dispatch coordinator's business, not the
// ledger's.
type Service struct {
	store   Store
	tariffs TariffSource
}

func NewService(store Store, tariffs TariffSource) *Service {
	return &Service{store: store, tariffs: tariffs}
}

// CreateCommand carries the values a booking is born with. Distance,
// price, and route are computed upstream and frozen here.
type CreateCommand struct {
	Pickup         types.Point
	Dropoff        types.Point
	VehicleTypeID  types.ID
	DistanceMeters float64
	EstimatedPrice types.Money
	Route          []types.Point
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (Booking, error) {
	if _, err := s.tariffs.Tariff(cmd.VehicleTypeID); err != nil {
		return Booking{}, ErrInvalidVehicleType
	}
	b := Booking{
		Pickup:         cmd.Pickup,
		Dropoff:        cmd.Dropoff,
		VehicleTypeID:  cmd.VehicleTypeID,
		DistanceMeters: cmd.DistanceMeters,
		EstimatedPrice: cmd.EstimatedPrice,
		Route:          cmd.Route,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, &b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Booking, error) {
	return s.store.List(ctx)
}

// Accept assigns driverID to a pending booking. The store linearizes
// the pending check with the assignment, so under N concurrent accepts
// exactly one driver wins and the rest get ErrAlreadyAssigned.
func (s *Service) Accept(ctx context.Context, id, driverID types.ID) (Booking, error) {
	return s.store.Accept(ctx, id, driverID)
}

// Transition moves a booking one step along the lifecycle on behalf of
// driverID. Only the assigned driver may move its booking, and the
// pending->accepted edge is reserved for Accept.
func (s *Service) Transition(ctx context.Context, id, driverID types.ID, next Status) (Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if next == StatusAccepted || !CanTransition(b.Status, next) {
		return Booking{}, ErrIllegalTransition
	}
	if b.DriverID == nil || *b.DriverID != driverID {
		return Booking{}, ErrUnauthorized
	}
	updated, err := s.store.UpdateStatus(ctx, id, b.Status, next)
	if errors.Is(err, ErrConflict) {
		// A concurrent writer moved the booking between our read and the
		// swap; the requested edge no longer exists.
		return Booking{}, ErrIllegalTransition
	}
	return updated, err
}
