// README: In-process event broker; fan-out to all current subscribers.
package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindNewBooking           Kind = "new_booking"
	KindBookingUpdated       Kind = "booking_updated"
	KindDriverLocationUpdate Kind = "driver_location_update"
	// KindBookingUpdate is the per-subscriber tracking snapshot; it is
	// delivered directly by the tracking poller, never broadcast.
	KindBookingUpdate Kind = "booking_update"
)

type Event struct {
	Kind    Kind `json:"type"`
	Payload any  `json:"payload"`
}

// subscriberBuffer bounds how far a slow consumer may lag before it
// starts losing events. Delivery is fire-and-forget.
const subscriberBuffer = 32

type Subscriber struct {
	id int64
	C  chan Event
}

// Broker broadcasts events to every current subscriber. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int64]*Subscriber
	nextID int64
	log    *logrus.Logger
}

func NewBroker(log *logrus.Logger) *Broker {
	return &Broker{subs: make(map[int64]*Subscriber), log: log}
}

// Subscribe registers a new subscriber. The caller must Unsubscribe on
// every exit path of its connection.
func (b *Broker) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscriber{id: b.nextID, C: make(chan Event, subscriberBuffer)}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.C)
}

// Publish delivers the event to every subscriber without blocking.
func (b *Broker) Publish(kind Kind, payload any) {
	ev := Event{Kind: kind, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.C <- ev:
		default:
			if b.log != nil {
				b.log.WithFields(logrus.Fields{
					"kind":       kind,
					"subscriber": sub.id,
				}).Debug("dropping event for slow subscriber")
			}
		}
	}
}

// SubscriberCount is used by tests and the admin overview.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
