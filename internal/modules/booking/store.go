// README: Booking stores; the in-memory store is the reference backend.
package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"cargoflow/internal/types"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrAlreadyAssigned means an accept lost the race or arrived after
	// the booking left pending.
	ErrAlreadyAssigned = errors.New("booking already assigned")
	// ErrConflict means a status CAS lost against a concurrent writer.
	ErrConflict = errors.New("booking state conflict")
)

// Store is the ledger's storage port. Both implementations linearize
// Accept and UpdateStatus per booking so "check then set" is atomic.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (Booking, error)
	List(ctx context.Context) ([]Booking, error)
	// Accept atomically moves a pending booking to accepted and assigns
	// the driver. Exactly one concurrent caller wins; the rest get
	// ErrAlreadyAssigned.
	Accept(ctx context.Context, id, driverID types.ID) (Booking, error)
	// UpdateStatus is a compare-and-swap from `from` to `to`.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status) (Booking, error)
}

// MemStore keeps all bookings in process memory. Ids come from an
// atomic counter, never from the table length, so ids stay unique and
// strictly increasing under concurrent creates.
type MemStore struct {
	mu       sync.RWMutex
	bookings map[types.ID]Booking
	nextID   atomic.Int64
}

func NewMemStore() *MemStore {
	return &MemStore{bookings: make(map[types.ID]Booking)}
}

func (s *MemStore) Create(ctx context.Context, b *Booking) error {
	b.ID = types.ID(s.nextID.Add(1))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = snapshot(*b)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id types.ID) (Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return snapshot(b), nil
}

func (s *MemStore) List(ctx context.Context) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, snapshot(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Accept(ctx context.Context, id, driverID types.ID) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.Status != StatusPending || b.DriverID != nil {
		return Booking{}, ErrAlreadyAssigned
	}
	d := driverID
	b.Status = StatusAccepted
	b.DriverID = &d
	s.bookings[id] = b
	return snapshot(b), nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.Status != from {
		return Booking{}, ErrConflict
	}
	b.Status = to
	s.bookings[id] = b
	return snapshot(b), nil
}

// snapshot copies the record so callers can never mutate ledger state
// (or each other) through a shared route slice.
func snapshot(b Booking) Booking {
	if b.Route != nil {
		route := make([]types.Point, len(b.Route))
		copy(route, b.Route)
		b.Route = route
	}
	if b.DriverID != nil {
		d := *b.DriverID
		b.DriverID = &d
	}
	return b
}
