package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/adapters/crdb"
	mongoadapter "github.com/cinepos/seat-inventory/internal/adapters/mongo"
	"github.com/cinepos/seat-inventory/internal/config"
	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/engine"
	"github.com/cinepos/seat-inventory/internal/idempotency"
	"github.com/cinepos/seat-inventory/internal/session"
)

type Handlers struct {
	cfg      *config.Config
	eng      *engine.Engine
	sessions *session.Manager
	repo     *crdb.Repository
	catalog  *mongoadapter.LayoutCatalog
	idemp    *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, eng *engine.Engine, sessions *session.Manager, repo *crdb.Repository, catalog *mongoadapter.LayoutCatalog, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:      cfg,
		eng:      eng,
		sessions: sessions,
		repo:     repo,
		catalog:  catalog,
		idemp:    idemp,
	}
}

// writeError maps the domain taxonomy onto status codes. Conflicts are
// immediate 409s, never timeouts.
func writeError(w http.ResponseWriter, err error) {
	var unavailable *domain.UnavailableSeatsError
	if errors.As(err, &unavailable) {
		ids := make([]string, len(unavailable.SeatIDs))
		for i, id := range unavailable.SeatIDs {
			ids[i] = id.String()
		}
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":             "seats unavailable",
			"unavailable_seats": ids,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrSeatConflict):
		http.Error(w, "seat already held or sold", http.StatusConflict)
	case errors.Is(err, domain.ErrConcurrentModification), errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrGroupAlreadyClosed):
		http.Error(w, "booking already closed", http.StatusConflict)
	case errors.Is(err, domain.ErrHoldNotFound):
		http.Error(w, "hold not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, session.ErrUnknownSession):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func parseID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(domain.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	id := h.sessions.Connect(req.SessionID)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.sessions.Disconnect(r.Context(), chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Heartbeat(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.sessions.Subscribe(chi.URLParam(r, "sessionID"), showID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.sessions.Unsubscribe(chi.URLParam(r, "sessionID"), showID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSeats is the reconciliation endpoint: full current state of one
// show, fetched by terminals on connect and after missed broadcasts.
func (h *Handlers) ListSeats(w http.ResponseWriter, r *http.Request) {
	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}
	seats, err := h.eng.Seats(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}

	type seatView struct {
		ID         uuid.UUID        `json:"id"`
		Label      string           `json:"label"`
		SeatType   string           `json:"seat_type"`
		Row        int              `json:"row"`
		Col        int              `json:"col"`
		Group      string           `json:"group,omitempty"`
		PriceCents int64            `json:"price_cents"`
		State      domain.SeatState `json:"state"`
		HolderRef  string           `json:"holder_ref,omitempty"`
		BookingID  string           `json:"booking_id,omitempty"`
	}
	views := make([]seatView, len(seats))
	for i, s := range seats {
		views[i] = seatView{
			ID:         s.ID,
			Label:      s.Label,
			SeatType:   s.SeatType,
			Row:        s.RowNum,
			Col:        s.ColNum,
			Group:      s.SeatGroup,
			PriceCents: s.PriceCents,
			State:      s.State,
		}
		if s.ReservedBy != nil {
			views[i].HolderRef = *s.ReservedBy
		}
		if s.ConfirmedBookingID != nil {
			views[i].BookingID = *s.ConfirmedBookingID
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"show_id": showID, "seats": views})
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if cached, err := h.idemp.Get(r.Context(), key); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(cached.Status)
		w.Write(cached.Result)
		return
	}

	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		SeatID    uuid.UUID `json:"seat_id"`
		SessionID string    `json:"session_id"`
		HolderRef string    `json:"holder_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.sessions.Active(req.SessionID) {
		writeError(w, errors.Wrapf(session.ErrUnknownSession, "hold for %s", req.SessionID))
		return
	}

	hold, err := h.eng.Hold(r.Context(), req.SessionID, showID, req.SeatID, req.HolderRef)
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"seat_id":    hold.SeatID,
		"expires_at": hold.ExpiresAt.UTC().Format(time.RFC3339),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) HoldTTL(w http.ResponseWriter, r *http.Request) {
	seatID, err := parseID(r, "seatID")
	if err != nil {
		writeError(w, err)
		return
	}
	ttl, err := h.eng.RemainingTTL(seatID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seat_id":     seatID,
		"ttl_seconds": int(ttl.Seconds()),
	})
}

func (h *Handlers) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}
	seatID, err := parseID(r, "seatID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.eng.Release(r.Context(), showID, seatID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if cached, err := h.idemp.Get(r.Context(), key); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(cached.Status)
		w.Write(cached.Result)
		return
	}

	var req struct {
		ShowID      uuid.UUID   `json:"show_id"`
		SeatIDs     []uuid.UUID `json:"seat_ids"`
		HolderRef   string      `json:"holder_ref"`
		CustomerRef string      `json:"customer_ref"`
		PaymentMode string      `json:"payment_mode"`
		PaymentRef  string      `json:"payment_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	group, err := h.eng.Commit(r.Context(), req.ShowID, req.SeatIDs, req.HolderRef, engine.BookingPayload{
		CustomerRef: req.CustomerRef,
		PaymentMode: req.PaymentMode,
		PaymentRef:  req.PaymentRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"booking_ref": group.Ref,
		"status":      group.Status,
		"seats":       group.SeatLabels(),
		"base_cents":  group.BaseCents,
		"tax_cents":   group.TaxCents,
		"total_cents": group.TotalCents,
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	group, err := h.repo.GetGroup(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_ref":  group.Ref,
		"show_id":      group.ShowID,
		"status":       group.Status,
		"seats":        group.SeatLabels(),
		"total_cents":  group.TotalCents,
		"close_reason": group.CloseReason,
	})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.closeBooking(w, r, h.eng.Cancel)
}

func (h *Handlers) RefundBooking(w http.ResponseWriter, r *http.Request) {
	h.closeBooking(w, r, h.eng.Refund)
}

func (h *Handlers) closeBooking(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, ref, reason string) (*domain.BookingGroup, error)) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	group, err := op(r.Context(), chi.URLParam(r, "ref"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking_ref": group.Ref,
		"status":      group.Status,
		"seats":       group.SeatLabels(),
	})
}

// ScheduleShow cuts the frozen seat snapshot for a newly scheduled show
// from the screen's layout. Called once per show by the scheduling
// surface, which lives outside this engine.
func (h *Handlers) ScheduleShow(w http.ResponseWriter, r *http.Request) {
	showID, err := parseID(r, "showID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ScreenID uuid.UUID `json:"screen_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	screen, err := h.catalog.GetScreen(r.Context(), req.ScreenID)
	if err != nil {
		writeError(w, err)
		return
	}
	seats := mongoadapter.SnapshotSeats(showID, screen)
	if err := h.repo.CreateShowSeats(r.Context(), seats); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"show_id":    showID,
		"seat_count": len(seats),
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
