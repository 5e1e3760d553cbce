// The standalone reaper sweeps the durable seat store for HELD rows past
// their deadline. The in-process reaper inside the API covers its own
// registry; this worker covers holds whose owning process died before
// releasing them. Redis mirror keys expire on their own TTL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinepos/seat-inventory/internal/adapters/crdb"
	"github.com/cinepos/seat-inventory/internal/adapters/rabbit"
	"github.com/cinepos/seat-inventory/internal/config"
	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/notify"
	"github.com/cinepos/seat-inventory/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to seat store: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	notifier := notify.NewNotifier(rabbitPub, logger)
	defer notifier.Close()

	worker := &storeReaper{repo: repo, notifier: notifier, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx, cfg.ReaperPeriod)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown store reaper")
}

type storeReaper struct {
	repo     *crdb.Repository
	notifier notify.Publisher
	logger   observability.Logger
}

func (w *storeReaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.WithField("period", interval.String()).Info("store reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *storeReaper) sweep(ctx context.Context, now time.Time) {
	freed, err := w.repo.ExpireHolds(ctx, now)
	if err != nil {
		w.logger.WithError(err).Error("expire durable holds")
		return
	}
	for showID, seatIDs := range freed {
		batch := domain.SeatEventBatch{ShowID: showID, Timestamp: now.UTC()}
		for _, seatID := range seatIDs {
			batch.Events = append(batch.Events, domain.SeatEvent{
				ShowID:    showID,
				SeatID:    seatID,
				State:     domain.SeatAvailable,
				EventType: domain.EventSeatExpired,
				Timestamp: now.UTC(),
			})
		}
		w.notifier.PublishBatch(ctx, showID, batch)
		observability.ReapedHolds.Add(float64(len(seatIDs)))
	}
	observability.ReaperSweeps.Inc()
	if len(freed) > 0 {
		w.logger.WithField("shows", len(freed)).Info("reclaimed durable holds")
	}
}
