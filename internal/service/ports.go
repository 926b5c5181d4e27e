package service

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
)

// WatermarkStore is implemented by repository.Repos and
// cloud.DynamoDBWatermarkStore.
type WatermarkStore interface {
	GetLastTimestamp(ctx context.Context, source string) (time.Time, error)
	SetLastTimestamp(ctx context.Context, source string, ts time.Time) error
}

// Fetcher is the remote side, implemented by geotab.Client.
type Fetcher interface {
	Authenticate(ctx context.Context) (*geotab.Session, error)
	FetchSince(ctx context.Context, s *geotab.Session, typeName string, from time.Time, limit int) ([]domain.Record, error)
	Get(ctx context.Context, s *geotab.Session, typeName string, limit int) ([]domain.Record, error)
	Feed(s *geotab.Session, typeName string, pageSize int) geotab.Pager
}

// FaultSink stores fault rows and returns the ones that were new.
type FaultSink interface {
	InsertFaults(ctx context.Context, rows []domain.FaultRow) ([]domain.FaultRow, error)
}

// EntitySink upserts the reference entity rows.
type EntitySink interface {
	UpsertDevices(ctx context.Context, rows []domain.DeviceRow) (int, error)
	UpsertUsers(ctx context.Context, rows []domain.UserRow) (int, error)
	UpsertZones(ctx context.Context, rows []domain.ZoneRow) (int, error)
	UpsertRules(ctx context.Context, rows []domain.RuleRow) (int, error)
	UpsertTrips(ctx context.Context, rows []domain.TripRow) (int, error)
}

// RunLogger records one row per sync run.
type RunLogger interface {
	LogRun(ctx context.Context, l domain.RunLog) error
}

// Publisher receives faults after they are committed.
type Publisher interface {
	PublishFaults(runID string, rows []domain.FaultRow) error
}

// Notifier is told about failed runs.
type Notifier interface {
	NotifySyncFailure(ctx context.Context, res *domain.SyncResult, runErr error) error
}

// Uploader copies finished export files somewhere durable.
type Uploader interface {
	UploadExport(ctx context.Context, filePath string) (string, error)
}
