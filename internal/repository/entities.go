package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// Full-refresh entities are upserted: a conflicting id overwrites the row.

// UpsertDevices writes device rows, replacing existing ones by id.
func (r *Repos) UpsertDevices(ctx context.Context, rows []domain.DeviceRow) (int, error) {
	err := r.inTx(ctx, "repository.UpsertDevices", func(tx *sqlx.Tx) error {
		for _, d := range rows {
			_, err := tx.ExecContext(ctx, `INSERT INTO device (
					id, name, serial_number, device_type, license_plate,
					vin, active_from, active_to, is_active, time_zone,
					speeding_on, speeding_off, engine_type, raw, last_update
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					serial_number = EXCLUDED.serial_number,
					device_type = EXCLUDED.device_type,
					license_plate = EXCLUDED.license_plate,
					vin = EXCLUDED.vin,
					active_from = EXCLUDED.active_from,
					active_to = EXCLUDED.active_to,
					is_active = EXCLUDED.is_active,
					time_zone = EXCLUDED.time_zone,
					speeding_on = EXCLUDED.speeding_on,
					speeding_off = EXCLUDED.speeding_off,
					engine_type = EXCLUDED.engine_type,
					raw = EXCLUDED.raw,
					last_update = NOW()`,
				d.ID, d.Name, d.SerialNumber, d.DeviceType, d.LicensePlate,
				d.VIN, d.ActiveFrom, d.ActiveTo, d.IsActive, d.TimeZone,
				d.SpeedingOn, d.SpeedingOff, d.EngineType, nullJSON(d.Raw))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertUsers writes user rows, replacing existing ones by id.
func (r *Repos) UpsertUsers(ctx context.Context, rows []domain.UserRow) (int, error) {
	err := r.inTx(ctx, "repository.UpsertUsers", func(tx *sqlx.Tx) error {
		for _, u := range rows {
			_, err := tx.ExecContext(ctx, `INSERT INTO geotab_user (
					id, name, first_name, last_name, email, is_active, raw, last_update
				) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					first_name = EXCLUDED.first_name,
					last_name = EXCLUDED.last_name,
					email = EXCLUDED.email,
					is_active = EXCLUDED.is_active,
					raw = EXCLUDED.raw,
					last_update = NOW()`,
				u.ID, u.Name, u.FirstName, u.LastName, u.Email, u.IsActive, nullJSON(u.Raw))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertZones writes zone rows, replacing existing ones by id.
func (r *Repos) UpsertZones(ctx context.Context, rows []domain.ZoneRow) (int, error) {
	err := r.inTx(ctx, "repository.UpsertZones", func(tx *sqlx.Tx) error {
		for _, z := range rows {
			_, err := tx.ExecContext(ctx, `INSERT INTO geotab_zone (
					id, name, zone_type, color, active, raw, last_update
				) VALUES ($1, $2, $3, $4, $5, $6, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					zone_type = EXCLUDED.zone_type,
					color = EXCLUDED.color,
					active = EXCLUDED.active,
					raw = EXCLUDED.raw,
					last_update = NOW()`,
				z.ID, z.Name, z.ZoneType, z.Color, z.Active, nullJSON(z.Raw))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertRules writes rule rows, replacing existing ones by id.
func (r *Repos) UpsertRules(ctx context.Context, rows []domain.RuleRow) (int, error) {
	err := r.inTx(ctx, "repository.UpsertRules", func(tx *sqlx.Tx) error {
		for _, rl := range rows {
			_, err := tx.ExecContext(ctx, `INSERT INTO geotab_rule (
					id, name, description, is_active, rule_type, raw, last_update
				) VALUES ($1, $2, $3, $4, $5, $6, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					description = EXCLUDED.description,
					is_active = EXCLUDED.is_active,
					rule_type = EXCLUDED.rule_type,
					raw = EXCLUDED.raw,
					last_update = NOW()`,
				rl.ID, rl.Name, rl.Description, rl.IsActive, rl.RuleType, nullJSON(rl.Raw))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertTrips writes trip rows, replacing existing ones by id.
func (r *Repos) UpsertTrips(ctx context.Context, rows []domain.TripRow) (int, error) {
	err := r.inTx(ctx, "repository.UpsertTrips", func(tx *sqlx.Tx) error {
		for _, t := range rows {
			_, err := tx.ExecContext(ctx, `INSERT INTO geotab_trip (
					id, device_id, driver_id,
					start_time, end_time,
					distance_km, top_speed_kph,
					idle_time_seconds, moving_time_seconds, stop_time_seconds,
					start_location, end_location,
					raw, last_update
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
				ON CONFLICT (id) DO UPDATE SET
					device_id = EXCLUDED.device_id,
					driver_id = EXCLUDED.driver_id,
					start_time = EXCLUDED.start_time,
					end_time = EXCLUDED.end_time,
					distance_km = EXCLUDED.distance_km,
					top_speed_kph = EXCLUDED.top_speed_kph,
					idle_time_seconds = EXCLUDED.idle_time_seconds,
					moving_time_seconds = EXCLUDED.moving_time_seconds,
					stop_time_seconds = EXCLUDED.stop_time_seconds,
					start_location = EXCLUDED.start_location,
					end_location = EXCLUDED.end_location,
					raw = EXCLUDED.raw,
					last_update = NOW()`,
				t.ID, t.DeviceID, t.DriverID,
				t.StartTime, t.EndTime,
				t.DistanceKm, t.TopSpeedKph,
				t.IdleTimeSeconds, t.MovingTimeSeconds, t.StopTimeSeconds,
				nullJSON(t.StartLocation), nullJSON(t.EndLocation),
				nullJSON(t.Raw))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
