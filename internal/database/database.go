package database

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, domain.E(domain.KindDatabase, "database.Connect", err)
	}
	return db, nil
}
