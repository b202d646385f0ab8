package postgres

// Schema statements applied in order by Migrate. Each statement is
// idempotent, so re-running the full list is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS aquatrack_customers (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		account_number    TEXT NOT NULL,
		meter_number      TEXT NOT NULL,
		phone             TEXT NOT NULL DEFAULT '',
		last_reading      BIGINT NOT NULL DEFAULT 0,
		last_reading_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS aquatrack_customers_account_idx ON aquatrack_customers (account_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS aquatrack_customers_meter_idx ON aquatrack_customers (meter_number);`,

	`CREATE TABLE IF NOT EXISTS aquatrack_bills (
		id               TEXT PRIMARY KEY,
		customer_id      TEXT NOT NULL REFERENCES aquatrack_customers(id) ON DELETE CASCADE,
		period           TEXT NOT NULL DEFAULT '',
		previous_reading BIGINT NOT NULL DEFAULT 0,
		current_reading  BIGINT NOT NULL DEFAULT 0,
		consumption      BIGINT NOT NULL DEFAULT 0,
		rate_cents       BIGINT NOT NULL DEFAULT 0,
		amount_due_cents BIGINT NOT NULL DEFAULT 0,
		currency         TEXT NOT NULL DEFAULT 'kes',
		due_date         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status           TEXT NOT NULL DEFAULT 'pending_approval',
		approved         BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at          TIMESTAMPTZ,
		payment_ref      TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS aquatrack_bills_customer_idx ON aquatrack_bills (customer_id);`,
	`CREATE INDEX IF NOT EXISTS aquatrack_bills_status_idx ON aquatrack_bills (status);`,
	`CREATE INDEX IF NOT EXISTS aquatrack_bills_due_idx ON aquatrack_bills (due_date DESC);`,

	`CREATE TABLE IF NOT EXISTS aquatrack_users (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL DEFAULT '',
		email          TEXT NOT NULL,
		role           TEXT NOT NULL DEFAULT 'customer',
		account_number TEXT NOT NULL DEFAULT '',
		customer_id    TEXT NOT NULL DEFAULT '',
		password_hash  TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS aquatrack_users_email_idx ON aquatrack_users (email);`,
	`CREATE INDEX IF NOT EXISTS aquatrack_users_role_idx ON aquatrack_users (role);`,
}
