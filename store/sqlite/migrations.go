package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the adscore store.
var Migrations = migrate.NewGroup("adscore")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_adscore_tiers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_tiers (
    id                TEXT PRIMARY KEY,
    key               TEXT NOT NULL DEFAULT '',
    name              TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'draft',
    monthly_allowance INTEGER NOT NULL DEFAULT 0,
    unlimited         INTEGER NOT NULL DEFAULT 0,
    costs             TEXT NOT NULL DEFAULT '[]',
    app_id            TEXT NOT NULL DEFAULT '',
    metadata          TEXT NOT NULL DEFAULT '{}',
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_adscore_tiers_key_app ON adscore_tiers (key, app_id);
CREATE INDEX IF NOT EXISTS idx_adscore_tiers_status ON adscore_tiers (app_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_tiers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_adscore_ledgers",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_ledgers (
    id             TEXT PRIMARY KEY,
    account_id     TEXT NOT NULL DEFAULT '',
    app_id         TEXT NOT NULL DEFAULT '',
    tier_key       TEXT NOT NULL DEFAULT '',
    balance        INTEGER NOT NULL DEFAULT 0,
    bonus_credits  INTEGER NOT NULL DEFAULT 0,
    cycle_reset_at TEXT NOT NULL DEFAULT (datetime('now')),
    metadata       TEXT NOT NULL DEFAULT '{}',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_adscore_ledgers_account_app ON adscore_ledgers (account_id, app_id);
CREATE INDEX IF NOT EXISTS idx_adscore_ledgers_reset ON adscore_ledgers (cycle_reset_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_ledgers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_adscore_transactions",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_transactions (
    id            TEXT PRIMARY KEY,
    ledger_id     TEXT NOT NULL DEFAULT '',
    account_id    TEXT NOT NULL DEFAULT '',
    app_id        TEXT NOT NULL DEFAULT '',
    operation     TEXT NOT NULL DEFAULT '',
    kind          TEXT NOT NULL DEFAULT '',
    balance_delta INTEGER NOT NULL DEFAULT 0,
    bonus_delta   INTEGER NOT NULL DEFAULT 0,
    description   TEXT NOT NULL DEFAULT '',
    timestamp     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_adscore_txns_ledger ON adscore_transactions (ledger_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_adscore_txns_kind ON adscore_transactions (ledger_id, kind, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_adscore_projects",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_projects (
    id               TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL DEFAULT '',
    app_id           TEXT NOT NULL DEFAULT '',
    name             TEXT NOT NULL DEFAULT '',
    content          TEXT NOT NULL DEFAULT '{}',
    enabled_tools    TEXT NOT NULL DEFAULT '[]',
    status           TEXT NOT NULL DEFAULT 'draft',
    tool_results     TEXT NOT NULL DEFAULT '{}',
    overall_score    INTEGER,
    last_analyzed_at TEXT,
    completed_at     TEXT,
    metadata         TEXT NOT NULL DEFAULT '{}',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_adscore_projects_account_app ON adscore_projects (account_id, app_id);
CREATE INDEX IF NOT EXISTS idx_adscore_projects_status ON adscore_projects (account_id, app_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_projects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_adscore_promos",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_promos (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL DEFAULT '',
    credits         INTEGER NOT NULL DEFAULT 0,
    max_redemptions INTEGER NOT NULL DEFAULT 0,
    times_redeemed  INTEGER NOT NULL DEFAULT 0,
    valid_from      TEXT,
    valid_until     TEXT,
    app_id          TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_adscore_promos_code_app ON adscore_promos (code, app_id);
CREATE INDEX IF NOT EXISTS idx_adscore_promos_app ON adscore_promos (app_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_promos`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_adscore_statements",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS adscore_statements (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL DEFAULT '',
    app_id          TEXT NOT NULL DEFAULT '',
    period_start    TEXT NOT NULL DEFAULT (datetime('now')),
    period_end      TEXT NOT NULL DEFAULT (datetime('now')),
    opening_balance INTEGER NOT NULL DEFAULT 0,
    closing_balance INTEGER NOT NULL DEFAULT 0,
    total_debited   INTEGER NOT NULL DEFAULT 0,
    total_granted   INTEGER NOT NULL DEFAULT 0,
    line_items      TEXT NOT NULL DEFAULT '[]',
    generated_at    TEXT NOT NULL DEFAULT (datetime('now')),
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_adscore_statements_account_app ON adscore_statements (account_id, app_id);
CREATE INDEX IF NOT EXISTS idx_adscore_statements_period ON adscore_statements (account_id, app_id, period_start, period_end);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS adscore_statements`)
				return err
			},
		},
	)
}
