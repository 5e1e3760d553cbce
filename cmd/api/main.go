package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/cinepos/seat-inventory/internal/adapters/crdb"
	mongoadapter "github.com/cinepos/seat-inventory/internal/adapters/mongo"
	"github.com/cinepos/seat-inventory/internal/adapters/rabbit"
	redisadapter "github.com/cinepos/seat-inventory/internal/adapters/redis"
	"github.com/cinepos/seat-inventory/internal/config"
	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/engine"
	httphandler "github.com/cinepos/seat-inventory/internal/http"
	"github.com/cinepos/seat-inventory/internal/idempotency"
	"github.com/cinepos/seat-inventory/internal/notify"
	"github.com/cinepos/seat-inventory/internal/observability"
	"github.com/cinepos/seat-inventory/internal/rateLimit"
	"github.com/cinepos/seat-inventory/internal/reaper"
	"github.com/cinepos/seat-inventory/internal/registry"
	"github.com/cinepos/seat-inventory/internal/session"
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

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("cinepos")
	catalog := mongoadapter.NewLayoutCatalog(mongoDB, logger)
	audit := mongoadapter.NewAuditTrail(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	notifier := notify.NewNotifier(rabbitPub, logger)
	defer notifier.Close()

	reg := registry.New()
	eng := engine.New(repo, reg, redisCache, audit, notifier, logger, cfg.HoldTTL, cfg.TaxRateBps)
	sessions := session.NewManager(eng, logger, cfg.SessionTTL)
	sweeper := reaper.New(reg, eng, logger, cfg.ReaperPeriod)

	consumer, err := rabbit.NewConsumer(rabbitConn, &commandBridge{eng: eng, sessions: sessions}, logger)
	if err != nil {
		log.Fatalf("failed to create command consumer: %v", err)
	}

	handlers := httphandler.NewHandlers(cfg, eng, sessions, repo, catalog, idemp)
	router := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { sweeper.Run(gctx); return nil })
	g.Go(func() error { sessions.Run(gctx); return nil })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-gctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	cancel()
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("worker exit")
	}
	logger.Info("server exiting")
}

// commandBridge adapts the messaging-transport commands onto the engine
// and session manager. Conflicts are normal outcomes on this path: the
// terminal learns the result from the broadcast stream, so they ack.
type commandBridge struct {
	eng      *engine.Engine
	sessions *session.Manager
}

func (b *commandBridge) HandleHold(ctx context.Context, sessionID string, showID, seatID uuid.UUID, holderRef string) error {
	b.sessions.Connect(sessionID)
	_, err := b.eng.Hold(ctx, sessionID, showID, seatID, holderRef)
	if errors.Is(err, domain.ErrSeatConflict) || errors.Is(err, domain.ErrConcurrentModification) {
		return nil
	}
	return err
}

func (b *commandBridge) HandleRelease(ctx context.Context, showID, seatID uuid.UUID) error {
	return b.eng.Release(ctx, showID, seatID)
}

func (b *commandBridge) HandleHeartbeat(sessionID string) error {
	if err := b.sessions.Heartbeat(sessionID); err != nil {
		b.sessions.Connect(sessionID)
	}
	return nil
}
