// README: Tracking poller; periodic booking snapshots for live clients.
package tracking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/types"
)

// Snapshot is one tracking tick for a booking. Location is the assigned
// driver's last known position and is omitted until a driver accepts.
type Snapshot struct {
	BookingID types.ID       `json:"bookingId"`
	Status    booking.Status `json:"status"`
	Location  *types.Point   `json:"location,omitempty"`
}

// Ledger is the slice of the booking ledger the poller reads.
type Ledger interface {
	Get(ctx context.Context, id types.ID) (booking.Booking, error)
}

// Fleet is the slice of the driver registry the poller reads.
type Fleet interface {
	Get(ctx context.Context, id types.ID) (fleet.Driver, error)
}

type Poller struct {
	ledger   Ledger
	fleet    Fleet
	interval time.Duration
	log      *logrus.Logger
}

func NewPoller(ledger Ledger, fl Fleet, interval time.Duration, log *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logrus.New()
	}
	return &Poller{ledger: ledger, fleet: fl, interval: interval, log: log}
}

// Run delivers a snapshot of bookingID every interval until ctx is
// cancelled or the booking reaches a terminal status. deliver is called
// from the poller's goroutine; a slow deliver delays the next tick but
// never drops one.
func (p *Poller) Run(ctx context.Context, bookingID types.ID, deliver func(Snapshot)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := p.snapshot(ctx, bookingID)
			if err != nil {
				p.log.WithError(err).WithField("booking_id", bookingID).Warn("tracking poll failed")
				return err
			}
			deliver(snap)
			if snap.Status.Terminal() {
				return nil
			}
		}
	}
}

func (p *Poller) snapshot(ctx context.Context, bookingID types.ID) (Snapshot, error) {
	b, err := p.ledger.Get(ctx, bookingID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{BookingID: b.ID, Status: b.Status}
	if b.DriverID != nil {
		if d, err := p.fleet.Get(ctx, *b.DriverID); err == nil {
			loc := d.Location
			snap.Location = &loc
		}
	}
	return snap, nil
}
