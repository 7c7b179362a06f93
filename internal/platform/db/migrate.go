package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		unit_id TEXT NOT NULL UNIQUE,
		company_name TEXT NOT NULL,
		registry_id TEXT UNIQUE,
		tare_weight DOUBLE PRECISION NOT NULL,
		max_allowed_weight DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS material_types (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS destinations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS weighing_tickets (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
		material_type_id BIGINT NOT NULL REFERENCES material_types(id),
		destination_id BIGINT NOT NULL REFERENCES destinations(id),
		gross_weight DOUBLE PRECISION NOT NULL,
		tare_weight DOUBLE PRECISION NOT NULL,
		net_weight DOUBLE PRECISION NOT NULL,
		weighed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		operator_name TEXT,
		printed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id BIGSERIAL PRIMARY KEY,
		table_name TEXT NOT NULL,
		record_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		old_values JSONB,
		new_values JSONB NOT NULL
	)`,
	// Deployments that predate MRU tracking lack the column.
	`ALTER TABLE vehicles ADD COLUMN IF NOT EXISTS last_used_at TIMESTAMPTZ`,
}

// Migrate ensures the ledger schema exists. Statements are idempotent so the
// call is safe on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
	}
	return nil
}
