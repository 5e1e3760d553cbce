// Package rabbit binds the broadcast topics to an AMQP topic exchange.
// Seat topics map to routing keys, so a terminal binds its queue with
// "show.<id>.seats" and receives exactly that show's stream.
package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinepos/seat-inventory/internal/notify"
)

const exchange = "seats.events"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

// Publish implements notify.Transport. Messages are transient: missed
// broadcasts are reconciled by a full seat-state refetch, never replayed.
func (p *Publisher) Publish(ctx context.Context, topic notify.Topic, kind string, body []byte) error {
	return p.ch.PublishWithContext(ctx, exchange, string(topic), false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        kind,
		Body:        body,
	})
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
