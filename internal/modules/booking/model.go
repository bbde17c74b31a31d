// README: Booking aggregate and the lifecycle state machine.
package booking

import (
	"time"

	"cargoflow/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusEnRoute   Status = "en_route"
	StatusPickedUp  Status = "picked_up"
	StatusCompleted Status = "completed"
)

// Booking is owned by the ledger. Distance, price, and route are fixed
// at creation and never recomputed; DriverID is set exactly once, on
// acceptance.
type Booking struct {
	ID             types.ID      `json:"id"`
	Pickup         types.Point   `json:"pickup"`
	Dropoff        types.Point   `json:"dropoff"`
	VehicleTypeID  types.ID      `json:"vehicleType"`
	DistanceMeters float64       `json:"distance"`
	EstimatedPrice types.Money   `json:"estimatedPrice"`
	Route          []types.Point `json:"route"`
	Status         Status        `json:"status"`
	DriverID       *types.ID     `json:"driverId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// AllowedTransitions represents the booking state flow as code. The
// pending→accepted edge is only ever taken by Accept, never by a
// generic status update.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted},
	StatusAccepted: {StatusEnRoute},
	StatusEnRoute:  {StatusPickedUp},
	StatusPickedUp: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(AllowedTransitions[s]) == 0
}

// ValidStatus reports whether the string names a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusEnRoute, StatusPickedUp, StatusCompleted:
		return true
	}
	return false
}
