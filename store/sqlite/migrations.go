package sqlite

// migration is one versioned schema step. Versions are applied in order
// and recorded in aquatrack_schema_migrations.
type migration struct {
	Version string
	Name    string
	Up      string
}

var migrations = []migration{
	{
		Version: "20240101000001",
		Name:    "create_aquatrack_customers",
		Up: `
CREATE TABLE IF NOT EXISTS aquatrack_customers (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    account_number    TEXT NOT NULL,
    meter_number      TEXT NOT NULL,
    phone             TEXT NOT NULL DEFAULT '',
    last_reading      INTEGER NOT NULL DEFAULT 0,
    last_reading_date INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_aquatrack_customers_account ON aquatrack_customers (account_number);
CREATE UNIQUE INDEX IF NOT EXISTS idx_aquatrack_customers_meter ON aquatrack_customers (meter_number);
`,
	},
	{
		Version: "20240101000002",
		Name:    "create_aquatrack_bills",
		Up: `
CREATE TABLE IF NOT EXISTS aquatrack_bills (
    id               TEXT PRIMARY KEY,
    customer_id      TEXT NOT NULL,
    period           TEXT NOT NULL DEFAULT '',
    previous_reading INTEGER NOT NULL DEFAULT 0,
    current_reading  INTEGER NOT NULL DEFAULT 0,
    consumption      INTEGER NOT NULL DEFAULT 0,
    rate_cents       INTEGER NOT NULL DEFAULT 0,
    amount_due_cents INTEGER NOT NULL DEFAULT 0,
    currency         TEXT NOT NULL DEFAULT 'kes',
    due_date         INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending_approval',
    approved         INTEGER NOT NULL DEFAULT 0,
    paid_at          INTEGER,
    payment_ref      TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL DEFAULT 0,
    updated_at       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_aquatrack_bills_customer ON aquatrack_bills (customer_id);
CREATE INDEX IF NOT EXISTS idx_aquatrack_bills_status ON aquatrack_bills (status);
CREATE INDEX IF NOT EXISTS idx_aquatrack_bills_due ON aquatrack_bills (due_date DESC);
`,
	},
	{
		Version: "20240101000003",
		Name:    "create_aquatrack_users",
		Up: `
CREATE TABLE IF NOT EXISTS aquatrack_users (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL,
    role           TEXT NOT NULL DEFAULT 'customer',
    account_number TEXT NOT NULL DEFAULT '',
    customer_id    TEXT NOT NULL DEFAULT '',
    password_hash  TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL DEFAULT 0,
    updated_at     INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_aquatrack_users_email ON aquatrack_users (email);
CREATE INDEX IF NOT EXISTS idx_aquatrack_users_role ON aquatrack_users (role);
`,
	},
}
