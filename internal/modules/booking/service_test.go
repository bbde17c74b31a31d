package booking

import (
	"context"
	"errors"
	"testing"

	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/types"
)

func newTestService() *Service {
	tariffs := pricing.NewService(pricing.NewStore(pricing.DefaultTariffs()))
	return NewService(NewMemStore(), tariffs)
}

func newTestBooking(t *testing.T, svc *Service) Booking {
	t.Helper()
	b, err := svc.Create(context.Background(), CreateCommand{
		Pickup:         types.Point{Lat: 40.7128, Lng: -74.006},
		Dropoff:        types.Point{Lat: 40.758, Lng: -73.9855},
		VehicleTypeID:  1,
		DistanceMeters: 2000,
		EstimatedPrice: types.Money{Cents: 1100, Currency: "USD"},
		Route: []types.Point{
			{Lat: 40.7128, Lng: -74.006},
			{Lat: 40.758, Lng: -73.9855},
		},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestCreateStartsPending(t *testing.T) {
	svc := newTestService()
	b := newTestBooking(t, svc)

	if b.ID == 0 {
		t.Fatal("expected a non-zero id")
	}
	if b.Status != StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.DriverID != nil {
		t.Fatal("new booking must have no driver")
	}
}

func TestCreateRejectsUnknownVehicleType(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), CreateCommand{
		Pickup:        types.Point{Lat: 1, Lng: 1},
		Dropoff:       types.Point{Lat: 2, Lng: 2},
		VehicleTypeID: 99,
	})
	if !errors.Is(err, ErrInvalidVehicleType) {
		t.Fatalf("expected ErrInvalidVehicleType, got %v", err)
	}
}

func TestCreateAssignsUniqueIncreasingIDs(t *testing.T) {
	svc := newTestService()
	a := newTestBooking(t, svc)
	b := newTestBooking(t, svc)
	if b.ID <= a.ID {
		t.Fatalf("ids must be strictly increasing, got %d then %d", a.ID, b.ID)
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusAccepted, StatusEnRoute, true},
		{StatusEnRoute, StatusPickedUp, true},
		{StatusPickedUp, StatusCompleted, true},
		{StatusPending, StatusEnRoute, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusPickedUp, false},
		{StatusAccepted, StatusPending, false},
		{StatusEnRoute, StatusAccepted, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestFullLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	accepted, err := svc.Accept(ctx, b.ID, 1)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	if accepted.DriverID == nil || *accepted.DriverID != 1 {
		t.Fatalf("expected driver 1 assigned, got %v", accepted.DriverID)
	}

	for _, next := range []Status{StatusEnRoute, StatusPickedUp, StatusCompleted} {
		cur, err := svc.Transition(ctx, b.ID, 1, next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if cur.Status != next {
			t.Fatalf("expected %s, got %s", next, cur.Status)
		}
	}

	final, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !final.Status.Terminal() {
		t.Fatalf("completed must be terminal, got %s", final.Status)
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	// en_route before anyone accepted: the edge does not exist.
	if _, err := svc.Transition(ctx, b.ID, 1, StatusEnRoute); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Skipping straight to picked_up from accepted.
	if _, err := svc.Transition(ctx, b.ID, 1, StatusPickedUp); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	// Moving backwards.
	if _, err := svc.Transition(ctx, b.ID, 1, StatusPending); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestTransitionNeverTakesAcceptedEdge(t *testing.T) {
	svc := newTestService()
	b := newTestBooking(t, svc)

	_, err := svc.Transition(context.Background(), b.ID, 1, StatusAccepted)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	got, _ := svc.Get(context.Background(), b.ID)
	if got.Status != StatusPending || got.DriverID != nil {
		t.Fatalf("booking must be untouched, got %+v", got)
	}
}

func TestTransitionRequiresAssignedDriver(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Transition(ctx, b.ID, 2, StatusEnRoute); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for other driver, got %v", err)
	}
}

func TestAcceptAfterAcceptFails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.Accept(ctx, b.ID, 2); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	got, _ := svc.Get(ctx, b.ID)
	if got.DriverID == nil || *got.DriverID != 1 {
		t.Fatalf("driver 1 must keep the booking, got %v", got.DriverID)
	}
}

func TestAcceptUnknownBooking(t *testing.T) {
	svc := newTestService()
	_, err := svc.Accept(context.Background(), 404, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImmutableFieldsSurviveLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Transition(ctx, b.ID, 1, StatusEnRoute); err != nil {
		t.Fatalf("transition: %v", err)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DistanceMeters != b.DistanceMeters {
		t.Fatalf("distance changed: %v -> %v", b.DistanceMeters, got.DistanceMeters)
	}
	if got.EstimatedPrice != b.EstimatedPrice {
		t.Fatalf("price changed: %v -> %v", b.EstimatedPrice, got.EstimatedPrice)
	}
	if len(got.Route) != len(b.Route) {
		t.Fatalf("route changed: %d points -> %d points", len(b.Route), len(got.Route))
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := newTestBooking(t, svc)

	got, _ := svc.Get(ctx, b.ID)
	got.Route[0] = types.Point{Lat: 0, Lng: 0}

	again, _ := svc.Get(ctx, b.ID)
	if again.Route[0] != b.Route[0] {
		t.Fatal("Get must return a copy of the route, not the stored slice")
	}
}
