// README: Driver record owned by the fleet registry.
package fleet

import (
	"time"

	"cargoflow/internal/types"
)

// Driver is referenced by bookings through its id only; callers get
// value copies, never pointers into the registry.
type Driver struct {
	ID        types.ID    `json:"id"`
	Name      string      `json:"name"`
	Available bool        `json:"available"`
	Location  types.Point `json:"location"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SeedDrivers is the demo fleet used when no durable store is configured.
func SeedDrivers() []Driver {
	return []Driver{
		{ID: 1, Name: "John Doe", Available: true, Location: types.Point{Lat: 40.7128, Lng: -74.006}},
		{ID: 2, Name: "Jane Smith", Available: true, Location: types.Point{Lat: 40.758, Lng: -73.9855}},
		{ID: 3, Name: "Driver Three", Available: true, Location: types.Point{Lat: 40.73061, Lng: -73.935242}},
	}
}
