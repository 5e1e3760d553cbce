package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

// AuditTrail keeps a back-office record of seat transitions and booking
// outcomes. Best-effort: callers log failures and move on.
type AuditTrail struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditTrail(db *mongo.Database, logger observability.Logger) *AuditTrail {
	return &AuditTrail{
		coll:   db.Collection("seat_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	ShowID    uuid.UUID `bson:"show_id,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditTrail) RecordSeatEvent(ctx context.Context, ev domain.SeatEvent) error {
	doc := auditDoc{
		ID:        uuid.New(),
		Action:    ev.EventType,
		ShowID:    ev.ShowID,
		Timestamp: ev.Timestamp,
		Data: bson.M{
			"seat_id":    ev.SeatID.String(),
			"state":      string(ev.State),
			"holder_ref": ev.HolderRef,
			"booking_id": ev.BookingID,
		},
	}
	_, err := a.coll.InsertOne(ctx, doc)
	return err
}

func (a *AuditTrail) RecordBooking(ctx context.Context, group *domain.BookingGroup, action string) error {
	doc := auditDoc{
		ID:        uuid.New(),
		Action:    "booking." + action,
		ShowID:    group.ShowID,
		Timestamp: time.Now().UTC(),
		Data: bson.M{
			"ref":          group.Ref,
			"status":       string(group.Status),
			"customer_ref": group.CustomerRef,
			"seats":        group.SeatLabels(),
			"total_cents":  group.TotalCents,
			"close_reason": group.CloseReason,
		},
	}
	_, err := a.coll.InsertOne(ctx, doc)
	return err
}
