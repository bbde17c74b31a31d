// README: Fleet registry service; location updates announce themselves.
package fleet

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"cargoflow/internal/events"
	"cargoflow/internal/types"
)

var ErrInvalidLocation = errors.New("invalid location")

// Publisher is the slice of the event broker the registry needs.
type Publisher interface {
	Publish(kind events.Kind, payload any)
}

type Service struct {
	store  *Store
	geo    *GeoIndex // nil when Redis is not configured
	events Publisher
	log    *logrus.Logger
}

func NewService(store *Store, geo *GeoIndex, pub Publisher, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, geo: geo, events: pub, log: log}
}

// LocationUpdate is the payload broadcast on driver_location_update.
type LocationUpdate struct {
	DriverID types.ID    `json:"driverId"`
	Location types.Point `json:"location"`
}

func (s *Service) List(ctx context.Context) []Driver {
	return s.store.List()
}

func (s *Service) ListAvailable(ctx context.Context) []Driver {
	return s.store.ListAvailable()
}

func (s *Service) Get(ctx context.Context, id types.ID) (Driver, error) {
	return s.store.Get(id)
}

// SetLocation overwrites the driver's position and announces the move.
func (s *Service) SetLocation(ctx context.Context, id types.ID, p types.Point) (Driver, error) {
	if !p.Valid() {
		return Driver{}, ErrInvalidLocation
	}
	d, err := s.store.SetLocation(id, p)
	if err != nil {
		return Driver{}, err
	}
	if s.geo != nil {
		if err := s.geo.Upsert(ctx, id, p); err != nil {
			s.log.WithError(err).WithField("driver_id", id).Warn("geo index update failed")
		}
	}
	if s.events != nil {
		s.events.Publish(events.KindDriverLocationUpdate, LocationUpdate{DriverID: id, Location: p})
	}
	return d, nil
}

// SetAvailability flips the flag. The dispatch coordinator is the only
// caller that couples this to booking transitions.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, available bool) (Driver, error) {
	return s.store.SetAvailability(id, available)
}

// Nearby lists available drivers within radiusKm of p, closest first.
func (s *Service) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Driver, error) {
	if s.geo != nil {
		ids, err := s.geo.Nearby(ctx, p, radiusKm)
		if err == nil {
			out := make([]Driver, 0, len(ids))
			for _, id := range ids {
				d, err := s.store.Get(id)
				if err != nil || !d.Available {
					continue
				}
				out = append(out, d)
			}
			return out, nil
		}
		s.log.WithError(err).Warn("geo index query failed, falling back to scan")
	}

	available := s.store.ListAvailable()
	out := available[:0]
	for _, d := range available {
		if haversineKm(p, d.Location) <= radiusKm {
			out = append(out, d)
		}
	}
	sortByDistance(out, func(d Driver) float64 { return haversineKm(p, d.Location) })
	return out, nil
}

// sortByDistance performs an insertion sort (fine for small N) on any
// slice where each element exposes a distance via the accessor function.
func sortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
