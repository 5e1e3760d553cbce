package rabbit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinepos/seat-inventory/internal/observability"
)

const commandQueue = "seats.commands"

// Command is one inbound terminal operation on the messaging transport.
// The HTTP binding and this consumer converge on the same engine.
type Command struct {
	Type      string    `json:"type"` // hold, release, heartbeat
	SessionID string    `json:"session_id"`
	ShowID    uuid.UUID `json:"show_id"`
	SeatID    uuid.UUID `json:"seat_id"`
	HolderRef string    `json:"holder_ref"`
}

// CommandHandler executes inbound commands against the engine and
// session manager.
type CommandHandler interface {
	HandleHold(ctx context.Context, sessionID string, showID, seatID uuid.UUID, holderRef string) error
	HandleRelease(ctx context.Context, showID, seatID uuid.UUID) error
	HandleHeartbeat(sessionID string) error
}

type Consumer struct {
	ch      *amqp.Channel
	handler CommandHandler
	log     observability.Logger
}

func NewConsumer(conn *amqp.Connection, handler CommandHandler, log observability.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(commandQueue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	if err := ch.Qos(50, 0, false); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, handler: handler, log: log}, nil
}

// Run consumes commands until ctx is cancelled. A command that fails
// validation is rejected without requeue; conflict outcomes are normal
// results here, acked and left for the broadcast stream to report.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(commandQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return c.ch.Close()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("command channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Warn("command rejected")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return errors.Wrap(err, "unmarshal command")
	}
	switch cmd.Type {
	case "hold":
		return c.handler.HandleHold(ctx, cmd.SessionID, cmd.ShowID, cmd.SeatID, cmd.HolderRef)
	case "release":
		return c.handler.HandleRelease(ctx, cmd.ShowID, cmd.SeatID)
	case "heartbeat":
		return c.handler.HandleHeartbeat(cmd.SessionID)
	default:
		return errors.Newf("unknown command type %q", cmd.Type)
	}
}
