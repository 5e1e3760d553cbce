// Package crdb is the durable seat record store on postgres/cockroach.
// It is the single writer-of-record for seat state; every mutation is
// guarded by the row's version counter.
package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

const serializationFailureCode = "40001"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one SERIALIZABLE transaction. A 40001 from the
// database surfaces as domain.ErrSerializationFailure so callers can
// retry the whole group.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return errors.Wrap(domain.ErrSerializationFailure, pgErr.Message)
		}
		return err
	}

	return tx.Commit(ctx)
}

const seatColumns = `id, show_id, seat_id, label, seat_type, row_num, col_num, seat_group,
	price_cents, state, reserved_by, reserved_at, expires_at, confirmed_booking_id,
	version, created_at, updated_at`

func scanSeat(row pgx.Row) (*domain.ShowSeat, error) {
	var s domain.ShowSeat
	err := row.Scan(
		&s.ID, &s.ShowID, &s.SeatID, &s.Label, &s.SeatType, &s.RowNum, &s.ColNum,
		&s.SeatGroup, &s.PriceCents, &s.State, &s.ReservedBy, &s.ReservedAt,
		&s.ExpiresAt, &s.ConfirmedBookingID, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateShowSeats persists the per-show seat snapshot, called once at
// show-scheduling time. The rows are never re-derived afterward.
func (r *Repository) CreateShowSeats(ctx context.Context, seats []domain.ShowSeat) error {
	if len(seats) == 0 {
		return errors.Wrap(domain.ErrInvalidInput, "empty seat snapshot")
	}
	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(`
			INSERT INTO show_seats
				(id, show_id, seat_id, label, seat_type, row_num, col_num, seat_group, price_cents, state, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'AVAILABLE', 1)
		`, s.ID, s.ShowID, s.SeatID, s.Label, s.SeatType, s.RowNum, s.ColNum, s.SeatGroup, s.PriceCents)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repository) SeatsByShow(ctx context.Context, showID uuid.UUID) ([]domain.ShowSeat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+seatColumns+` FROM show_seats WHERE show_id = $1 ORDER BY row_num, col_num
	`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []domain.ShowSeat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}

func (r *Repository) GetSeat(ctx context.Context, seatID uuid.UUID) (*domain.ShowSeat, error) {
	s, err := scanSeat(r.pool.QueryRow(ctx, `
		SELECT `+seatColumns+` FROM show_seats WHERE id = $1
	`, seatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "seat %s", seatID)
	}
	return s, err
}

func (r *Repository) MarkHeld(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time, version int64) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE show_seats
		SET state = 'HELD', reserved_by = $2, reserved_at = now(), expires_at = $3,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND state = 'AVAILABLE' AND version = $4
	`, seatID, holderRef, expiresAt, version)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrConcurrentModification, "seat %s version %d", seatID, version)
	}
	return nil
}

func (r *Repository) RefreshHold(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE show_seats
		SET expires_at = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND state = 'HELD' AND reserved_by = $2
	`, seatID, holderRef, expiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrHoldNotFound, "seat %s holder %s", seatID, holderRef)
	}
	return nil
}

// ClearHold returns a HELD row to AVAILABLE with no residual reservation
// fields. Idempotent: clearing a non-held seat reports false, no error.
func (r *Repository) ClearHold(ctx context.Context, seatID uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE show_seats
		SET state = 'AVAILABLE', reserved_by = NULL, reserved_at = NULL, expires_at = NULL,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND state = 'HELD'
	`, seatID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ExpireHolds reclaims every durable HELD row past its deadline and
// returns the freed seats grouped for broadcast. Used by the standalone
// reaper worker to cover holds whose owning process died.
func (r *Repository) ExpireHolds(ctx context.Context, now time.Time) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE show_seats
		SET state = 'AVAILABLE', reserved_by = NULL, reserved_at = NULL, expires_at = NULL,
			version = version + 1, updated_at = now()
		WHERE state = 'HELD' AND expires_at <= $1
		RETURNING show_id, id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	freed := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var showID, seatID uuid.UUID
		if err := rows.Scan(&showID, &seatID); err != nil {
			return nil, err
		}
		freed[showID] = append(freed[showID], seatID)
	}
	return freed, rows.Err()
}

// CommitGroup re-validates every seat inside one SERIALIZABLE
// transaction and flips the whole set to SOLD under version CAS, then
// persists the group with amounts computed from the frozen prices. Any
// failed seat aborts the entire group untouched.
func (r *Repository) CommitGroup(ctx context.Context, group *domain.BookingGroup, seatIDs []uuid.UUID, holderRef string, taxRateBps int64) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, label, price_cents, state, reserved_by, version
			FROM show_seats
			WHERE id = ANY($1) AND show_id = $2
			FOR UPDATE
		`, seatIDs, group.ShowID)
		if err != nil {
			return err
		}

		type seatRow struct {
			label      string
			priceCents int64
			state      domain.SeatState
			reservedBy *string
			version    int64
		}
		found := make(map[uuid.UUID]seatRow, len(seatIDs))
		for rows.Next() {
			var id uuid.UUID
			var sr seatRow
			if err := rows.Scan(&id, &sr.label, &sr.priceCents, &sr.state, &sr.reservedBy, &sr.version); err != nil {
				rows.Close()
				return err
			}
			found[id] = sr
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var unavailable []uuid.UUID
		for _, id := range seatIDs {
			sr, ok := found[id]
			if !ok {
				return errors.Wrapf(domain.ErrNotFound, "seat %s in show %s", id, group.ShowID)
			}
			committable := sr.state == domain.SeatAvailable ||
				(sr.state == domain.SeatHeld && sr.reservedBy != nil && *sr.reservedBy == holderRef)
			if !committable {
				unavailable = append(unavailable, id)
			}
		}
		if len(unavailable) > 0 {
			return &domain.UnavailableSeatsError{SeatIDs: unavailable}
		}

		group.Seats = group.Seats[:0]
		for _, id := range seatIDs {
			sr := found[id]
			group.Seats = append(group.Seats, domain.BookingSeat{
				ShowSeatID: id,
				Label:      sr.label,
				PriceCents: sr.priceCents,
			})
		}
		group.ComputeAmounts(taxRateBps)

		if _, err := tx.Exec(ctx, `
			INSERT INTO booking_groups
				(ref, show_id, status, customer_ref, payment_mode, payment_ref,
				 base_cents, tax_cents, total_cents, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, group.Ref, group.ShowID, group.Status, group.CustomerRef, group.PaymentMode,
			group.PaymentRef, group.BaseCents, group.TaxCents, group.TotalCents, group.CreatedAt); err != nil {
			return err
		}

		for _, s := range group.Seats {
			if _, err := tx.Exec(ctx, `
				INSERT INTO booking_seats (group_ref, show_seat_id, label, price_cents)
				VALUES ($1, $2, $3, $4)
			`, group.Ref, s.ShowSeatID, s.Label, s.PriceCents); err != nil {
				return err
			}

			result, err := tx.Exec(ctx, `
				UPDATE show_seats
				SET state = 'SOLD', reserved_by = NULL, reserved_at = NULL, expires_at = NULL,
					confirmed_booking_id = $2, version = version + 1, updated_at = now()
				WHERE id = $1 AND version = $3
			`, s.ShowSeatID, group.Ref, found[s.ShowSeatID].version)
			if err != nil {
				return err
			}
			if result.RowsAffected() == 0 {
				return errors.Wrapf(domain.ErrConcurrentModification, "seat %s", s.ShowSeatID)
			}
		}
		return nil
	})
}

// ReleaseGroup closes an ACTIVE group and atomically returns its seats
// to AVAILABLE. Closing an already-closed group is a distinct failure,
// not a silent success.
func (r *Repository) ReleaseGroup(ctx context.Context, ref string, target domain.BookingStatus, reason string) (*domain.BookingGroup, error) {
	var group *domain.BookingGroup
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		g, err := getGroupTx(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		if g.Status != domain.BookingActive {
			return errors.Wrapf(domain.ErrGroupAlreadyClosed, "booking %s is %s", ref, g.Status)
		}

		result, err := tx.Exec(ctx, `
			UPDATE show_seats
			SET state = 'AVAILABLE', confirmed_booking_id = NULL,
				version = version + 1, updated_at = now()
			WHERE confirmed_booking_id = $1
		`, ref)
		if err != nil {
			return err
		}
		if int(result.RowsAffected()) != len(g.Seats) {
			return errors.Wrapf(domain.ErrConcurrentModification, "booking %s: %d of %d seats released", ref, result.RowsAffected(), len(g.Seats))
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE booking_groups
			SET status = $2, closed_at = $3, close_reason = $4
			WHERE ref = $1
		`, ref, target, now, reason); err != nil {
			return err
		}

		g.Status = target
		g.ClosedAt = &now
		g.CloseReason = reason
		group = g
		return nil
	})
	return group, err
}

func (r *Repository) GetGroup(ctx context.Context, ref string) (*domain.BookingGroup, error) {
	var group *domain.BookingGroup
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		g, err := getGroupTx(ctx, tx, ref, false)
		if err != nil {
			return err
		}
		group = g
		return nil
	})
	return group, err
}

func getGroupTx(ctx context.Context, tx pgx.Tx, ref string, forUpdate bool) (*domain.BookingGroup, error) {
	q := `
		SELECT ref, show_id, status, customer_ref, payment_mode, payment_ref,
			base_cents, tax_cents, total_cents, created_at, closed_at, close_reason
		FROM booking_groups WHERE ref = $1`
	if forUpdate {
		q += " FOR UPDATE"
	}

	var g domain.BookingGroup
	var closeReason *string
	err := tx.QueryRow(ctx, q, ref).Scan(
		&g.Ref, &g.ShowID, &g.Status, &g.CustomerRef, &g.PaymentMode, &g.PaymentRef,
		&g.BaseCents, &g.TaxCents, &g.TotalCents, &g.CreatedAt, &g.ClosedAt, &closeReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", ref)
	}
	if err != nil {
		return nil, err
	}
	if closeReason != nil {
		g.CloseReason = *closeReason
	}

	rows, err := tx.Query(ctx, `
		SELECT show_seat_id, label, price_cents FROM booking_seats WHERE group_ref = $1
	`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.BookingSeat
		if err := rows.Scan(&s.ShowSeatID, &s.Label, &s.PriceCents); err != nil {
			return nil, err
		}
		g.Seats = append(g.Seats, s)
	}
	return &g, rows.Err()
}
