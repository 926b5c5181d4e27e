package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// GetLastTimestamp reads the watermark for source. A missing row is a
// KindNotFound error: rows are seeded outside the sync run.
func (r *Repos) GetLastTimestamp(ctx context.Context, source string) (time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowxContext(ctx,
		`SELECT last_timestamp FROM sync_state WHERE source = $1`, source).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domain.Errorf(domain.KindNotFound, "repository.GetLastTimestamp",
			"no sync_state row for source %q", source)
	}
	if err != nil {
		return time.Time{}, domain.E(domain.KindDatabase, "repository.GetLastTimestamp", err)
	}
	return ts.UTC(), nil
}

// SetLastTimestamp overwrites the watermark for source and commits.
func (r *Repos) SetLastTimestamp(ctx context.Context, source string, ts time.Time) error {
	const op = "repository.SetLastTimestamp"
	return r.inTx(ctx, op, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sync_state SET last_timestamp = $1, updated_at = NOW() WHERE source = $2`,
			ts.UTC(), source)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.Errorf(domain.KindNotFound, op, "no sync_state row for source %q", source)
		}
		return nil
	})
}

// ListWatermarks returns every sync_state row ordered by source.
func (r *Repos) ListWatermarks(ctx context.Context) ([]domain.Watermark, error) {
	var out []domain.Watermark
	err := r.db.SelectContext(ctx, &out, `SELECT source, last_timestamp FROM sync_state ORDER BY source`)
	if err != nil {
		return nil, domain.E(domain.KindDatabase, "repository.ListWatermarks", err)
	}
	return out, nil
}
