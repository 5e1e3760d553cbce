package crdb

// Schema holds the DDL for the seat store. Tests apply it to throwaway
// containers; deployments run it as a migration.
const Schema = `
CREATE TABLE IF NOT EXISTS show_seats (
	id UUID PRIMARY KEY,
	show_id UUID NOT NULL,
	seat_id UUID NOT NULL,
	label TEXT NOT NULL,
	seat_type TEXT NOT NULL DEFAULT 'STANDARD',
	row_num INT NOT NULL DEFAULT 0,
	col_num INT NOT NULL DEFAULT 0,
	seat_group TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL,
	state TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (state IN ('AVAILABLE', 'HELD', 'SOLD')),
	reserved_by TEXT,
	reserved_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ,
	confirmed_booking_id TEXT,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS show_seats_by_show ON show_seats (show_id);
CREATE INDEX IF NOT EXISTS show_seats_expiry ON show_seats (expires_at) WHERE state = 'HELD';

CREATE TABLE IF NOT EXISTS booking_groups (
	ref TEXT PRIMARY KEY,
	show_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'CANCELLED', 'REFUNDED')),
	customer_ref TEXT NOT NULL DEFAULT '',
	payment_mode TEXT NOT NULL DEFAULT '',
	payment_ref TEXT NOT NULL DEFAULT '',
	base_cents BIGINT NOT NULL,
	tax_cents BIGINT NOT NULL,
	total_cents BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	closed_at TIMESTAMPTZ,
	close_reason TEXT
);

CREATE TABLE IF NOT EXISTS booking_seats (
	group_ref TEXT NOT NULL REFERENCES booking_groups (ref),
	show_seat_id UUID NOT NULL REFERENCES show_seats (id),
	label TEXT NOT NULL,
	price_cents BIGINT NOT NULL,
	PRIMARY KEY (group_ref, show_seat_id)
);
`
