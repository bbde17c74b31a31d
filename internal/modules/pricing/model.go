// README: Vehicle tariff definition (base fare + per-km rate).
package pricing

import "cargoflow/internal/types"

// Tariff is static reference data, immutable after load.
type Tariff struct {
	ID       types.ID    `json:"id"`
	Name     string      `json:"name"`
	Icon     string      `json:"icon"`
	BaseFare types.Money `json:"basePrice"`
	PerKm    types.Money `json:"pricePerKm"`
}

// DefaultTariffs is the built-in tariff table used when no durable
// store is configured.
func DefaultTariffs() []Tariff {
	return []Tariff{
		{ID: 1, Name: "Van", Icon: "🚗", BaseFare: types.Money{Cents: 1000, Currency: "USD"}, PerKm: types.Money{Cents: 50, Currency: "USD"}},
		{ID: 2, Name: "Tempo", Icon: "🚙", BaseFare: types.Money{Cents: 1500, Currency: "USD"}, PerKm: types.Money{Cents: 70, Currency: "USD"}},
		{ID: 3, Name: "Truck", Icon: "🚐", BaseFare: types.Money{Cents: 2000, Currency: "USD"}, PerKm: types.Money{Cents: 90, Currency: "USD"}},
	}
}
