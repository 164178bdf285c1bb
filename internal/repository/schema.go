package repository

import (
	"context"
	"fmt"
)

// Schema creates the candidate and plan log tables
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS flights (
	id          BIGSERIAL PRIMARY KEY,
	destination TEXT NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS hotels (
	id          BIGSERIAL PRIMARY KEY,
	destination TEXT NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activities (
	id          BIGSERIAL PRIMARY KEY,
	destination TEXT NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding   vector(1536),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_flights_destination ON flights (lower(destination));
CREATE INDEX IF NOT EXISTS idx_hotels_destination ON hotels (lower(destination));
CREATE INDEX IF NOT EXISTS idx_activities_destination ON activities (lower(destination));

CREATE TABLE IF NOT EXISTS plan_logs (
	plan_id            UUID PRIMARY KEY,
	destination        TEXT NOT NULL,
	start_date         TEXT,
	end_date           TEXT,
	travelers          INT NOT NULL,
	interests          TEXT[],
	flight_id          TEXT,
	hotel_id           TEXT,
	activity_ids       TEXT[],
	total_cost         DOUBLE PRECISION,
	description_source TEXT,
	response_time_ms   BIGINT,
	feedback_action    TEXT,
	feedback_at        TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies Schema; every statement is idempotent
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
