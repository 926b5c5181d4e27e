package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_state (
		source         TEXT PRIMARY KEY,
		last_timestamp TIMESTAMP NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS fault_data (
		id            TEXT PRIMARY KEY,
		device_id     TEXT,
		occurred_at   TIMESTAMP,
		code          TEXT,
		source        TEXT,
		description   TEXT,
		severity      TEXT,
		controller_id TEXT,
		is_active     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS device (
		id            TEXT PRIMARY KEY,
		name          TEXT,
		serial_number TEXT,
		device_type   TEXT,
		license_plate TEXT,
		vin           TEXT,
		active_from   TIMESTAMP,
		active_to     TIMESTAMP,
		is_active     BOOLEAN,
		time_zone     TEXT,
		speeding_on   DOUBLE PRECISION,
		speeding_off  DOUBLE PRECISION,
		engine_type   TEXT,
		raw           JSONB,
		last_update   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS geotab_user (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		first_name  TEXT,
		last_name   TEXT,
		email       TEXT,
		is_active   BOOLEAN,
		raw         JSONB,
		last_update TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS geotab_zone (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		zone_type   TEXT,
		color       TEXT,
		active      BOOLEAN,
		raw         JSONB,
		last_update TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS geotab_rule (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		description TEXT,
		is_active   BOOLEAN,
		rule_type   TEXT,
		raw         JSONB,
		last_update TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS geotab_trip (
		id                  TEXT PRIMARY KEY,
		device_id           TEXT,
		driver_id           TEXT,
		start_time          TIMESTAMP,
		end_time            TIMESTAMP,
		distance_km         DOUBLE PRECISION,
		top_speed_kph       DOUBLE PRECISION,
		idle_time_seconds   BIGINT,
		moving_time_seconds BIGINT,
		stop_time_seconds   BIGINT,
		start_location      JSONB,
		end_location        JSONB,
		raw                 JSONB,
		last_update         TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS etl_logs (
		id                       BIGSERIAL PRIMARY KEY,
		run_id                   TEXT,
		status                   TEXT NOT NULL,
		records_inserted         INTEGER,
		device_records_processed INTEGER,
		from_date                TIMESTAMP,
		to_date                  TIMESTAMP,
		duration_ms              BIGINT,
		error_message            TEXT,
		raw_log                  JSONB,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the sink tables. When seed is non-zero every watermark
// source missing from sync_state gets a row starting at seed; existing rows
// are left alone.
func Migrate(ctx context.Context, db *sqlx.DB, seed time.Time) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.E(domain.KindDatabase, "database.Migrate", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return domain.E(domain.KindDatabase, "database.Migrate", err)
		}
	}

	if !seed.IsZero() {
		for _, source := range []string{domain.SourceFaultData, domain.SourceTrip} {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO sync_state (source, last_timestamp) VALUES ($1, $2) ON CONFLICT (source) DO NOTHING`,
				source, seed.UTC())
			if err != nil {
				return domain.E(domain.KindDatabase, "database.Migrate", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.E(domain.KindDatabase, "database.Migrate", err)
	}
	return nil
}
