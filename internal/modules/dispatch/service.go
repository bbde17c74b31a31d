// README: Dispatch coordinator; the only writer that touches ledger, fleet,
// routing, and events together.
package dispatch

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"cargoflow/internal/events"
	"cargoflow/internal/maps"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/types"
)

var (
	// ErrNoDriversAvailable means no driver was free at request time.
	// It is a point-in-time check, not a reservation.
	ErrNoDriversAvailable = errors.New("no drivers available")
	// ErrInternal means a multi-module write was left in a state the
	// coordinator could not fully repair.
	ErrInternal = errors.New("dispatch internal error")
)

// Router computes a driving route between two points.
type Router interface {
	ComputeRoute(ctx context.Context, origin, dest types.Point) (maps.Route, error)
}

// RouteCache is an optional read-through cache in front of the Router.
type RouteCache interface {
	Get(ctx context.Context, origin, dest types.Point) (maps.Route, bool)
	Set(ctx context.Context, origin, dest types.Point, r maps.Route)
}

// Fleet is the slice of the driver registry the coordinator needs.
type Fleet interface {
	ListAvailable(ctx context.Context) []fleet.Driver
	Get(ctx context.Context, id types.ID) (fleet.Driver, error)
	SetAvailability(ctx context.Context, id types.ID, available bool) (fleet.Driver, error)
}

// Publisher is the slice of the event broker the coordinator needs.
type Publisher interface {
	Publish(kind events.Kind, payload any)
}

type Service struct {
	ledger  *booking.Service
	fleet   Fleet
	pricing *pricing.Service
	router  Router
	cache   RouteCache // nil when Redis is not configured
	events  Publisher
	retries int
	log     *logrus.Logger
}

func NewService(
	ledger *booking.Service,
	fl Fleet,
	pr *pricing.Service,
	router Router,
	cache RouteCache,
	pub Publisher,
	retries int,
	log *logrus.Logger,
) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		ledger:  ledger,
		fleet:   fl,
		pricing: pr,
		router:  router,
		cache:   cache,
		events:  pub,
		retries: retries,
		log:     log,
	}
}

// RequestCommand is a customer's booking request.
type RequestCommand struct {
	Pickup        types.Point
	Dropoff       types.Point
	VehicleTypeID types.ID
	// EstimateOnly asks for the quote without creating a booking.
	EstimateOnly bool
}

// Quote is what pricing and routing produced for a request.
type Quote struct {
	DistanceMeters float64       `json:"distance"`
	EstimatedPrice types.Money   `json:"estimatedPrice"`
	Route          []types.Point `json:"route"`
}

// Result carries the quote, and the created booking unless the request
// was estimate-only.
type Result struct {
	Quote   Quote
	Booking *booking.Booking
}

// RequestBooking quotes the trip and, unless cmd.EstimateOnly, checks
// driver availability, writes the booking, and announces it.
func (s *Service) RequestBooking(ctx context.Context, cmd RequestCommand) (Result, error) {
	if !cmd.Pickup.Valid() || !cmd.Dropoff.Valid() {
		return Result{}, maps.ErrInvalidCoordinates
	}
	if _, err := s.pricing.Tariff(cmd.VehicleTypeID); err != nil {
		return Result{}, booking.ErrInvalidVehicleType
	}

	route, err := s.resolveRoute(ctx, cmd.Pickup, cmd.Dropoff)
	if err != nil {
		return Result{}, err
	}
	price, err := s.pricing.Estimate(cmd.VehicleTypeID, route.DistanceMeters)
	if err != nil {
		return Result{}, booking.ErrInvalidVehicleType
	}

	quote := Quote{
		DistanceMeters: route.DistanceMeters,
		EstimatedPrice: price,
		Route:          route.Geometry,
	}
	if cmd.EstimateOnly {
		return Result{Quote: quote}, nil
	}

	if len(s.fleet.ListAvailable(ctx)) == 0 {
		return Result{}, ErrNoDriversAvailable
	}

	b, err := s.ledger.Create(ctx, booking.CreateCommand{
		Pickup:         cmd.Pickup,
		Dropoff:        cmd.Dropoff,
		VehicleTypeID:  cmd.VehicleTypeID,
		DistanceMeters: route.DistanceMeters,
		EstimatedPrice: price,
		Route:          route.Geometry,
	})
	if err != nil {
		return Result{}, err
	}

	if s.events != nil {
		s.events.Publish(events.KindNewBooking, b)
	}
	return Result{Quote: quote, Booking: &b}, nil
}

// AcceptJob lets driverID claim a pending booking. The ledger decides
// the winner; the fleet flag follows the ledger.
func (s *Service) AcceptJob(ctx context.Context, bookingID, driverID types.ID) (booking.Booking, error) {
	if _, err := s.fleet.Get(ctx, driverID); err != nil {
		return booking.Booking{}, err
	}

	b, err := s.ledger.Accept(ctx, bookingID, driverID)
	if err != nil {
		return booking.Booking{}, err
	}

	if _, err := s.fleet.SetAvailability(ctx, driverID, false); err != nil {
		// The ledger already committed the assignment. A fleet write that
		// fails after an existence check means the registry is broken.
		s.log.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"driver_id":  driverID,
		}).Error("driver availability update failed after accept")
		return booking.Booking{}, ErrInternal
	}

	if s.events != nil {
		s.events.Publish(events.KindBookingUpdated, b)
	}
	return b, nil
}

// AdvanceStatus moves a booking along its lifecycle on behalf of
// driverID and releases the driver when the trip completes.
func (s *Service) AdvanceStatus(ctx context.Context, bookingID, driverID types.ID, next booking.Status) (booking.Booking, error) {
	b, err := s.ledger.Transition(ctx, bookingID, driverID, next)
	if err != nil {
		return booking.Booking{}, err
	}

	if b.Status == booking.StatusCompleted && b.DriverID != nil {
		if _, err := s.fleet.SetAvailability(ctx, *b.DriverID, true); err != nil {
			s.log.WithError(err).WithField("driver_id", *b.DriverID).
				Warn("failed to release driver after completion")
		}
	}

	if s.events != nil {
		s.events.Publish(events.KindBookingUpdated, b)
	}
	return b, nil
}

// Route exposes routing with the same cache and retry policy the
// booking path uses.
func (s *Service) Route(ctx context.Context, origin, dest types.Point) (maps.Route, error) {
	if !origin.Valid() || !dest.Valid() {
		return maps.Route{}, maps.ErrInvalidCoordinates
	}
	return s.resolveRoute(ctx, origin, dest)
}

func (s *Service) resolveRoute(ctx context.Context, origin, dest types.Point) (maps.Route, error) {
	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, origin, dest); ok {
			return r, nil
		}
	}

	var route maps.Route
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		route, err = s.router.ComputeRoute(ctx, origin, dest)
		if err == nil {
			break
		}
		if errors.Is(err, maps.ErrInvalidCoordinates) || ctx.Err() != nil {
			return maps.Route{}, err
		}
		s.log.WithError(err).WithField("attempt", attempt+1).Warn("route lookup failed")
	}
	if err != nil {
		return maps.Route{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, origin, dest, route)
	}
	return route, nil
}
