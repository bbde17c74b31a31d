// README: Tariff stores: in-memory table, optionally loaded from PostgreSQL.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"cargoflow/internal/types"
)

// Store holds the immutable tariff table. Reads need no locking because
// the table never changes after construction.
type Store struct {
	byID  map[types.ID]Tariff
	order []Tariff
}

// NewStore builds a store from a fixed tariff table.
func NewStore(tariffs []Tariff) *Store {
	byID := make(map[types.ID]Tariff, len(tariffs))
	for _, t := range tariffs {
		byID[t.ID] = t
	}
	return &Store{byID: byID, order: tariffs}
}

// LoadStore reads the tariff table from Postgres once at startup.
func LoadStore(ctx context.Context, db *pgxpool.Pool) (*Store, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, icon, base_fare_cents, per_km_cents, currency
		FROM vehicle_tariffs
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []Tariff
	for rows.Next() {
		var t Tariff
		var currency string
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon, &t.BaseFare.Cents, &t.PerKm.Cents, &currency); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		t.BaseFare.Currency = currency
		t.PerKm.Currency = currency
		tariffs = append(tariffs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tariffs: %w", err)
	}
	if len(tariffs) == 0 {
		tariffs = DefaultTariffs()
	}
	return NewStore(tariffs), nil
}

// Get returns the tariff for a vehicle type id.
func (s *Store) Get(id types.ID) (Tariff, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// List returns the tariff table in load order.
func (s *Store) List() []Tariff {
	out := make([]Tariff, len(s.order))
	copy(out, s.order)
	return out
}
