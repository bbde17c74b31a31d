// README: Optional mirror republishing broker events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitMirror subscribes to the broker and republishes every event as
// a persistent JSON message on a topic exchange, routing key = kind.
// It is best-effort: a broker outage never blocks in-process delivery.
type RabbitMirror struct {
	ch       *amqp.Channel
	exchange string
	log      *logrus.Logger
}

func NewRabbitMirror(ch *amqp.Channel, exchange string, log *logrus.Logger) *RabbitMirror {
	return &RabbitMirror{ch: ch, exchange: exchange, log: log}
}

// Run consumes broker events until ctx is cancelled.
func (m *RabbitMirror) Run(ctx context.Context, broker *Broker) {
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			m.publish(ctx, ev)
		}
	}
}

func (m *RabbitMirror) publish(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		m.log.WithError(err).WithField("kind", ev.Kind).Error("event mirror: marshal failed")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = m.ch.PublishWithContext(pubCtx, m.exchange, string(ev.Kind), false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		m.log.WithError(err).WithField("kind", ev.Kind).Error("event mirror: publish failed")
	}
}
