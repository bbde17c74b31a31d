// README: Postgres-backed booking store (optional durable backend).
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargoflow/internal/types"
)

// PGStore implements Store on Postgres. Serialization points use
// row-level compare-and-swap updates instead of in-process locks, so
// the exactly-one-winner guarantees survive multiple processes.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
	route, err := json.Marshal(b.Route)
	if err != nil {
		return fmt.Errorf("marshal route: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO bookings (
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			vehicle_type_id, distance_meters, estimated_price_cents, currency,
			route, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		b.Pickup.Lat, b.Pickup.Lng,
		b.Dropoff.Lat, b.Dropoff.Lng,
		int64(b.VehicleTypeID),
		b.DistanceMeters,
		b.EstimatedPrice.Cents,
		b.EstimatedPrice.Currency,
		route,
		string(b.Status),
		b.CreatedAt,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return err
	}
	b.ID = types.ID(id)
	return nil
}

const bookingColumns = `
	id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	vehicle_type_id, distance_meters, estimated_price_cents, currency,
	route, status, driver_id, created_at`

func (s *PGStore) Get(ctx context.Context, id types.ID) (Booking, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, int64(id))
	return scanBooking(row)
}

func (s *PGStore) List(ctx context.Context) ([]Booking, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PGStore) Accept(ctx context.Context, id, driverID types.ID) (Booking, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1, driver_id = $2
		WHERE id = $3 AND status = $4 AND driver_id IS NULL
		RETURNING `+bookingColumns,
		string(StatusAccepted),
		int64(driverID),
		int64(id),
		string(StatusPending),
	)
	b, err := scanBooking(row)
	if errors.Is(err, ErrNotFound) {
		// Either the booking does not exist or somebody else won.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Booking{}, getErr
		}
		return Booking{}, ErrAlreadyAssigned
	}
	return b, err
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (Booking, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING `+bookingColumns,
		string(to),
		int64(id),
		string(from),
	)
	b, err := scanBooking(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Booking{}, getErr
		}
		return Booking{}, ErrConflict
	}
	return b, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (Booking, error) {
	var b Booking
	var vehicleTypeID int64
	var routeJSON []byte
	var status string
	var driverID *int64

	err := row.Scan(
		&b.ID, &b.Pickup.Lat, &b.Pickup.Lng, &b.Dropoff.Lat, &b.Dropoff.Lng,
		&vehicleTypeID, &b.DistanceMeters, &b.EstimatedPrice.Cents, &b.EstimatedPrice.Currency,
		&routeJSON, &status, &driverID, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, err
	}

	b.VehicleTypeID = types.ID(vehicleTypeID)
	b.Status = Status(status)
	if driverID != nil {
		d := types.ID(*driverID)
		b.DriverID = &d
	}
	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &b.Route); err != nil {
			return Booking{}, fmt.Errorf("unmarshal route: %w", err)
		}
	}
	return b, nil
}
