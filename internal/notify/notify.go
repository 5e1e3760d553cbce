// Package notify fans seat-state changes out to show topics. Delivery is
// at-most-once: per-topic ordering is preserved, failures are logged and
// swallowed, and reconnecting terminals refetch full seat state instead
// of relying on replay.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

// Kinds of outbound messages, carried alongside the payload so
// subscribers can decode without sniffing.
const (
	KindSeat    = "seat"
	KindBatch   = "batch"
	KindBooking = "booking"
	KindSystem  = "system"
)

// Publisher is what the engine and session layers publish through.
type Publisher interface {
	PublishSeatChange(ctx context.Context, showID uuid.UUID, ev domain.SeatEvent)
	PublishBatch(ctx context.Context, showID uuid.UUID, batch domain.SeatEventBatch)
	PublishBookingConfirmation(ctx context.Context, ev domain.BookingConfirmedEvent)
	PublishSystemEvent(ctx context.Context, ev domain.SystemEvent)
}

// Transport delivers one marshalled message to one topic. Bindings:
// the AMQP publisher in adapters/rabbit, and the in-process Bus.
type Transport interface {
	Publish(ctx context.Context, topic Topic, kind string, body []byte) error
}

// Notifier serializes each topic through its own buffered queue and a
// single dispatch goroutine, so subscribers of one show see events in
// publish order. There is no cross-topic ordering.
type Notifier struct {
	transport Transport
	log       observability.Logger

	mu     sync.Mutex
	queues map[Topic]chan outbound
	closed bool
	wg     sync.WaitGroup
}

type outbound struct {
	kind string
	body []byte
}

const queueDepth = 256

func NewNotifier(transport Transport, log observability.Logger) *Notifier {
	return &Notifier{
		transport: transport,
		log:       log,
		queues:    make(map[Topic]chan outbound),
	}
}

func (n *Notifier) PublishSeatChange(ctx context.Context, showID uuid.UUID, ev domain.SeatEvent) {
	n.publish(ShowTopic(showID), KindSeat, ev)
}

func (n *Notifier) PublishBatch(ctx context.Context, showID uuid.UUID, batch domain.SeatEventBatch) {
	n.publish(ShowTopic(showID), KindBatch, batch)
}

func (n *Notifier) PublishBookingConfirmation(ctx context.Context, ev domain.BookingConfirmedEvent) {
	n.publish(TopicBookings, KindBooking, ev)
}

func (n *Notifier) PublishSystemEvent(ctx context.Context, ev domain.SystemEvent) {
	n.publish(TopicSystem, KindSystem, ev)
}

// publish enqueues without blocking the caller: a state transition has
// already been made durable by the time we get here, so a full queue or
// transport failure must never propagate back.
func (n *Notifier) publish(topic Topic, kind string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		n.log.WithError(err).WithField("topic", string(topic)).Error("marshal outbound event")
		observability.EventsDropped.Inc()
		return
	}

	q := n.queue(topic)
	if q == nil {
		return
	}
	select {
	case q <- outbound{kind: kind, body: body}:
	default:
		n.log.WithField("topic", string(topic)).Warn("outbound queue full, dropping event")
		observability.EventsDropped.Inc()
	}
}

func (n *Notifier) queue(topic Topic) chan outbound {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	q, ok := n.queues[topic]
	if !ok {
		q = make(chan outbound, queueDepth)
		n.queues[topic] = q
		n.wg.Add(1)
		go n.dispatch(topic, q)
	}
	return q
}

func (n *Notifier) dispatch(topic Topic, q chan outbound) {
	defer n.wg.Done()
	for msg := range q {
		if err := n.transport.Publish(context.Background(), topic, msg.kind, msg.body); err != nil {
			n.log.WithError(err).WithField("topic", string(topic)).Warn("publish failed, event dropped")
			observability.EventsDropped.Inc()
			continue
		}
		observability.EventsPublished.WithLabelValues(msg.kind).Inc()
	}
}

// Close stops accepting events and waits for the queues to drain.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	for _, q := range n.queues {
		close(q)
	}
	n.mu.Unlock()
	n.wg.Wait()
}
