package notify

import (
	"context"
	"sync"
)

// Envelope is one delivered message on the in-process bus.
type Envelope struct {
	Topic Topic
	Kind  string
	Body  []byte
}

// Bus is an in-process Transport with subscriber channels per topic.
// Used by tests and by single-process deployments that do not run a
// broker. Delivery mirrors the wire contract: per-topic order, no
// buffering for slow subscribers beyond the channel depth, no replay.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Envelope
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Envelope)}
}

// Subscribe returns a channel receiving every subsequent message on the
// topic. The cancel func removes the subscription and closes the channel.
func (b *Bus) Subscribe(topic Topic) (<-chan Envelope, func()) {
	ch := make(chan Envelope, queueDepth)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[topic]
		for i, c := range chans {
			if c == ch {
				b.subs[topic] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(ctx context.Context, topic Topic, kind string, body []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- Envelope{Topic: topic, Kind: kind, Body: body}:
		default:
			// Slow subscriber loses the event; it reconciles by refetch.
		}
	}
	return nil
}
