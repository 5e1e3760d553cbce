package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// Topic is the logical broadcast channel key. Each show owns one topic;
// booking confirmations and system notices use two fixed global topics.
// The key doubles as the routing key on the AMQP binding.
type Topic string

const (
	TopicBookings Topic = "bookings.confirmed"
	TopicSystem   Topic = "system.notices"
)

func ShowTopic(showID uuid.UUID) Topic {
	return Topic(fmt.Sprintf("show.%s.seats", showID))
}
