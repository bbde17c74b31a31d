// README: In-memory driver store with per-registry linearization.
package fleet

import (
	"errors"
	"sort"
	"sync"
	"time"

	"cargoflow/internal/types"
)

var ErrDriverNotFound = errors.New("driver not found")

// Store owns all Driver records. A single mutex linearizes mutations so
// availability toggles cannot interleave with reads of the same driver.
type Store struct {
	mu      sync.RWMutex
	drivers map[types.ID]Driver
}

func NewStore(seed []Driver) *Store {
	drivers := make(map[types.ID]Driver, len(seed))
	for _, d := range seed {
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = time.Now()
		}
		drivers[d.ID] = d
	}
	return &Store{drivers: drivers}
}

// List returns a point-in-time snapshot sorted by id.
func (s *Store) List() []Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAvailable filters the snapshot to available drivers.
func (s *Store) ListAvailable() []Driver {
	all := s.List()
	out := all[:0]
	for _, d := range all {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}

func (s *Store) Get(id types.ID) (Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	return d, nil
}

// SetLocation overwrites the driver's position, last-write-wins.
func (s *Store) SetLocation(id types.ID, p types.Point) (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	d.Location = p
	d.UpdatedAt = time.Now()
	s.drivers[id] = d
	return d, nil
}

// SetAvailability flips the availability flag. Consistency with booking
// state is the dispatch coordinator's responsibility, not the store's.
func (s *Store) SetAvailability(id types.ID, available bool) (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	d.Available = available
	d.UpdatedAt = time.Now()
	s.drivers[id] = d
	return d, nil
}
