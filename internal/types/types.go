// README: Common value objects shared across modules.
package types

import (
	"math"
	"strconv"
)

// ID identifies bookings, drivers, tariffs, and users. Ids are assigned
// monotonically by the owning store.
type ID int64

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside the coordinate domain.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Money is an amount in cents. Keeping cents as the unit makes the
// 2-decimal rounding of price computations exact.
type Money struct {
	Cents    int64
	Currency string
}

// FromFloat converts a decimal amount to Money, rounding half away from zero.
func FromFloat(amount float64, currency string) Money {
	return Money{Cents: int64(math.Round(amount * 100)), Currency: currency}
}

// Float64 returns the decimal amount.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100
}

func (m Money) String() string {
	return strconv.FormatFloat(m.Float64(), 'f', 2, 64)
}

// MarshalJSON renders Money as a plain 2-decimal JSON number, the wire
// shape booking clients expect for prices.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	m.Cents = int64(math.Round(f * 100))
	return nil
}
