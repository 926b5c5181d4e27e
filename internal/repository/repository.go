package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// Repos is the Postgres side of the pipeline: watermark store, fault sink,
// entity upserts and the run log.
type Repos struct {
	db *sqlx.DB
}

// New creates a new Postgres repository
func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

// Ping checks the database connection.
func (r *Repos) Ping(ctx context.Context) error {
	return domain.E(domain.KindDatabase, "repository.Ping", r.db.PingContext(ctx))
}

// inTx runs fn in a transaction and commits only when fn succeeds.
func (r *Repos) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.E(domain.KindDatabase, op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if domain.KindOf(err) != domain.KindUnknown {
			return err
		}
		return domain.E(domain.KindDatabase, op, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.E(domain.KindDatabase, op, err)
	}
	return nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
