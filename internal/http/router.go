package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinepos/seat-inventory/internal/idempotency"
	"github.com/cinepos/seat-inventory/internal/observability"
	"github.com/cinepos/seat-inventory/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Post("/v1/sessions", h.Connect)
	r.Delete("/v1/sessions/{sessionID}", h.Disconnect)
	r.Post("/v1/sessions/{sessionID}/heartbeat", h.Heartbeat)
	r.Put("/v1/sessions/{sessionID}/subscriptions/{showID}", h.Subscribe)
	r.Delete("/v1/sessions/{sessionID}/subscriptions/{showID}", h.Unsubscribe)

	r.Get("/v1/shows/{showID}/seats", h.ListSeats)
	r.Post("/v1/shows/{showID}/schedule", h.ScheduleShow)
	r.Post("/v1/shows/{showID}/holds", h.CreateHold)
	r.Get("/v1/shows/{showID}/holds/{seatID}", h.HoldTTL)
	r.Delete("/v1/shows/{showID}/holds/{seatID}", h.ReleaseHold)

	r.Post("/v1/bookings", h.CreateBooking)
	r.Get("/v1/bookings/{ref}", h.GetBooking)
	r.Post("/v1/bookings/{ref}/cancel", h.CancelBooking)
	r.Post("/v1/bookings/{ref}/refund", h.RefundBooking)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
