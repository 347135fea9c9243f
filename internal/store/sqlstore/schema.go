package sqlstore

// Schemas are kept side by side so a column change touches both dialects
// in one place. Every statement is idempotent.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS titles (
		id                   UUID PRIMARY KEY,
		tenant_id            UUID NOT NULL,
		name                 TEXT NOT NULL,
		minimum_age_required INTEGER NOT NULL DEFAULT 0,
		has_volumes          BOOLEAN NOT NULL DEFAULT FALSE,
		total_quantity       INTEGER NOT NULL CHECK (total_quantity >= 0),
		available_quantity   INTEGER NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= total_quantity),
		is_digital           BOOLEAN NOT NULL DEFAULT FALSE,
		status               TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS volumes (
		id                 UUID PRIMARY KEY,
		tenant_id          UUID NOT NULL,
		title_id           UUID NOT NULL REFERENCES titles (id),
		volume_number      INTEGER NOT NULL,
		total_quantity     INTEGER NOT NULL CHECK (total_quantity >= 0),
		available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= total_quantity)
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id                UUID PRIMARY KEY,
		tenant_id         UUID NOT NULL,
		name              TEXT NOT NULL,
		email             TEXT,
		user_id           UUID,
		date_of_birth     DATE,
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		suspended         BOOLEAN NOT NULL DEFAULT FALSE,
		suspension_reason TEXT,
		suspended_since   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id                  UUID PRIMARY KEY,
		tenant_id           UUID NOT NULL,
		title_id            UUID NOT NULL REFERENCES titles (id),
		volume_id           UUID REFERENCES volumes (id),
		member_id           UUID NOT NULL REFERENCES members (id),
		quantity            INTEGER NOT NULL CHECK (quantity >= 1),
		loan_date           DATE NOT NULL,
		due_date            DATE NOT NULL CHECK (due_date >= loan_date),
		return_date         DATE,
		status              TEXT NOT NULL,
		cancellation_reason TEXT,
		cancellation_notes  TEXT,
		cancellation_date   TIMESTAMPTZ,
		age_verified        BOOLEAN NOT NULL DEFAULT FALSE,
		member_age          INTEGER,
		processed_by        TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS loans_member_idx ON loans (tenant_id, member_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS loans_due_idx ON loans (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS age_verification_failures (
		id           UUID PRIMARY KEY,
		tenant_id    UUID NOT NULL,
		member_id    UUID NOT NULL,
		title_id     UUID NOT NULL,
		attempted_at TIMESTAMPTZ NOT NULL,
		member_age   INTEGER,
		required_age INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		seq           BIGSERIAL PRIMARY KEY,
		id            UUID NOT NULL UNIQUE,
		tenant_id     UUID NOT NULL,
		subject_kind  TEXT NOT NULL,
		subject_id    TEXT NOT NULL,
		actor         TEXT NOT NULL,
		action        TEXT NOT NULL,
		from_state    TEXT NOT NULL DEFAULT '',
		to_state      TEXT NOT NULL DEFAULT '',
		reason        TEXT NOT NULL DEFAULT '',
		justification TEXT NOT NULL DEFAULT '',
		occurred_at   TIMESTAMPTZ NOT NULL,
		payload       BYTEA,
		request_id    TEXT NOT NULL DEFAULT '',
		client_ip     TEXT NOT NULL DEFAULT '',
		user_agent    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_subject_idx ON audit_entries (tenant_id, subject_id, seq)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		seq        BIGSERIAL PRIMARY KEY,
		id         UUID NOT NULL UNIQUE,
		tenant_id  UUID NOT NULL,
		recipient  TEXT NOT NULL,
		loan_id    UUID,
		event      TEXT NOT NULL,
		message    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		dedup_key  TEXT UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (tenant_id, recipient, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		seq            BIGSERIAL PRIMARY KEY,
		id             UUID NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        BYTEA NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		published_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (seq) WHERE published_at IS NULL`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS titles (
		id                   TEXT PRIMARY KEY,
		tenant_id            TEXT NOT NULL,
		name                 TEXT NOT NULL,
		minimum_age_required INTEGER NOT NULL DEFAULT 0,
		has_volumes          BOOLEAN NOT NULL DEFAULT 0,
		total_quantity       INTEGER NOT NULL CHECK (total_quantity >= 0),
		available_quantity   INTEGER NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= total_quantity),
		is_digital           BOOLEAN NOT NULL DEFAULT 0,
		status               TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS volumes (
		id                 TEXT PRIMARY KEY,
		tenant_id          TEXT NOT NULL,
		title_id           TEXT NOT NULL REFERENCES titles (id),
		volume_number      INTEGER NOT NULL,
		total_quantity     INTEGER NOT NULL CHECK (total_quantity >= 0),
		available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= total_quantity)
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id                TEXT PRIMARY KEY,
		tenant_id         TEXT NOT NULL,
		name              TEXT NOT NULL,
		email             TEXT,
		user_id           TEXT,
		date_of_birth     DATE,
		active            BOOLEAN NOT NULL DEFAULT 1,
		suspended         BOOLEAN NOT NULL DEFAULT 0,
		suspension_reason TEXT,
		suspended_since   TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id                  TEXT PRIMARY KEY,
		tenant_id           TEXT NOT NULL,
		title_id            TEXT NOT NULL REFERENCES titles (id),
		volume_id           TEXT REFERENCES volumes (id),
		member_id           TEXT NOT NULL REFERENCES members (id),
		quantity            INTEGER NOT NULL CHECK (quantity >= 1),
		loan_date           DATE NOT NULL,
		due_date            DATE NOT NULL,
		return_date         DATE,
		status              TEXT NOT NULL,
		cancellation_reason TEXT,
		cancellation_notes  TEXT,
		cancellation_date   TIMESTAMP,
		age_verified        BOOLEAN NOT NULL DEFAULT 0,
		member_age          INTEGER,
		processed_by        TEXT NOT NULL,
		created_at          TIMESTAMP NOT NULL,
		updated_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS loans_member_idx ON loans (tenant_id, member_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS loans_due_idx ON loans (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS age_verification_failures (
		id           TEXT PRIMARY KEY,
		tenant_id    TEXT NOT NULL,
		member_id    TEXT NOT NULL,
		title_id     TEXT NOT NULL,
		attempted_at TIMESTAMP NOT NULL,
		member_age   INTEGER,
		required_age INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		tenant_id     TEXT NOT NULL,
		subject_kind  TEXT NOT NULL,
		subject_id    TEXT NOT NULL,
		actor         TEXT NOT NULL,
		action        TEXT NOT NULL,
		from_state    TEXT NOT NULL DEFAULT '',
		to_state      TEXT NOT NULL DEFAULT '',
		reason        TEXT NOT NULL DEFAULT '',
		justification TEXT NOT NULL DEFAULT '',
		occurred_at   TIMESTAMP NOT NULL,
		payload       BLOB,
		request_id    TEXT NOT NULL DEFAULT '',
		client_ip     TEXT NOT NULL DEFAULT '',
		user_agent    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_subject_idx ON audit_entries (tenant_id, subject_id, seq)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		tenant_id  TEXT NOT NULL,
		recipient  TEXT NOT NULL,
		loan_id    TEXT,
		event      TEXT NOT NULL,
		message    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		dedup_key  TEXT UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (tenant_id, recipient, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		id             TEXT NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        BLOB NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		published_at   TIMESTAMP
	)`,
}

// tables lists every table in dependency order, children last.
var tables = []string{
	"titles",
	"volumes",
	"members",
	"loans",
	"age_verification_failures",
	"audit_entries",
	"notifications",
	"outbox",
}
