package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

const insertFault = `INSERT INTO fault_data
	(id, device_id, occurred_at, code, source, description, severity, controller_id, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING`

// InsertFaults writes rows in a single transaction. Rows whose id already
// exists are skipped silently; only rows actually added are returned.
// Any failure rolls back the whole batch.
func (r *Repos) InsertFaults(ctx context.Context, rows []domain.FaultRow) ([]domain.FaultRow, error) {
	var inserted []domain.FaultRow
	err := r.inTx(ctx, "repository.InsertFaults", func(tx *sqlx.Tx) error {
		for _, f := range rows {
			res, err := tx.ExecContext(ctx, insertFault,
				f.ID, f.DeviceID, f.OccurredAt, f.Code, f.Source,
				f.Description, f.Severity, f.ControllerID, f.IsActive)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n > 0 {
				inserted = append(inserted, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// CountFaults returns the number of fault_data rows.
func (r *Repos) CountFaults(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM fault_data`); err != nil {
		return 0, domain.E(domain.KindDatabase, "repository.CountFaults", err)
	}
	return n, nil
}
