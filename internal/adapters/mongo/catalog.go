package mongo

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

// LayoutCatalog reads screen seat layouts. It is consumed exactly once
// per show, at scheduling time, to cut the frozen per-show snapshot;
// later layout edits never touch existing shows.
type LayoutCatalog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewLayoutCatalog(db *mongo.Database, logger observability.Logger) *LayoutCatalog {
	return &LayoutCatalog{
		coll:   db.Collection("screens"),
		logger: logger,
	}
}

type ScreenDoc struct {
	ID    uuid.UUID       `bson:"_id"`
	Name  string          `bson:"name"`
	Seats []SeatLayoutDoc `bson:"seats"`
}

type SeatLayoutDoc struct {
	SeatID     uuid.UUID `bson:"seat_id"`
	Label      string    `bson:"label"`
	SeatType   string    `bson:"seat_type"`
	Row        int       `bson:"row"`
	Col        int       `bson:"col"`
	Group      string    `bson:"group"`
	PriceCents int64     `bson:"price_cents"`
}

func (c *LayoutCatalog) GetScreen(ctx context.Context, id uuid.UUID) (*ScreenDoc, error) {
	var screen ScreenDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&screen)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).WithField("screen_id", id).Error("load screen layout")
		return nil, err
	}
	return &screen, nil
}

// SnapshotSeats materializes the show's frozen seat rows from a layout.
func SnapshotSeats(showID uuid.UUID, screen *ScreenDoc) []domain.ShowSeat {
	seats := make([]domain.ShowSeat, 0, len(screen.Seats))
	for _, s := range screen.Seats {
		seats = append(seats, domain.ShowSeat{
			ID:         uuid.New(),
			ShowID:     showID,
			SeatID:     s.SeatID,
			Label:      s.Label,
			SeatType:   s.SeatType,
			RowNum:     s.Row,
			ColNum:     s.Col,
			SeatGroup:  s.Group,
			PriceCents: s.PriceCents,
			State:      domain.SeatAvailable,
			Version:    1,
		})
	}
	return seats
}
