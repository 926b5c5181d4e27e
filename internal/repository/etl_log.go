package repository

import (
	"context"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// LogRun appends one row to etl_logs.
func (r *Repos) LogRun(ctx context.Context, l domain.RunLog) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO etl_logs (
			run_id, status, records_inserted, device_records_processed,
			from_date, to_date, duration_ms, error_message, raw_log
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.RunID, l.Status, l.RecordsInserted, l.DevicesProcessed,
		l.FromDate, l.ToDate, l.DurationMS, l.ErrorMessage, nullJSON(l.Raw))
	return domain.E(domain.KindDatabase, "repository.LogRun", err)
}
