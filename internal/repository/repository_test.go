package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *Repos) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return mock, New(sqlx.NewDb(mockDB, "pgx"))
}

func str(s string) *string { return &s }

func TestGetLastTimestamp_Success(t *testing.T) {
	mock, repo := setupMockDB(t)
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT last_timestamp FROM sync_state WHERE source = $1`)).
		WithArgs("fault_data").
		WillReturnRows(sqlmock.NewRows([]string{"last_timestamp"}).AddRow(want))

	got, err := repo.GetLastTimestamp(context.Background(), domain.SourceFaultData)

	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastTimestamp_NotFound(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT last_timestamp FROM sync_state`).
		WithArgs("fault_data").
		WillReturnRows(sqlmock.NewRows([]string{"last_timestamp"}))

	_, err := repo.GetLastTimestamp(context.Background(), domain.SourceFaultData)

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastTimestamp_DatabaseError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT last_timestamp FROM sync_state`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetLastTimestamp(context.Background(), domain.SourceFaultData)

	assert.True(t, domain.IsKind(err, domain.KindDatabase))
}

func TestSetLastTimestamp_Commits(t *testing.T) {
	mock, repo := setupMockDB(t)
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sync_state SET last_timestamp`).
		WithArgs(ts, "fault_data").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetLastTimestamp(context.Background(), domain.SourceFaultData, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLastTimestamp_MissingRowRollsBack(t *testing.T) {
	mock, repo := setupMockDB(t)
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sync_state SET last_timestamp`).
		WithArgs(ts, "trip").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetLastTimestamp(context.Background(), domain.SourceTrip, ts)

	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFaults_EndToEndRow(t *testing.T) {
	mock, repo := setupMockDB(t)

	row := domain.FaultRow{
		ID:         "F1",
		DeviceID:   str("D1"),
		OccurredAt: str("2024-01-02T00:00:00Z"),
		Severity:   str("Active"),
		IsActive:   true,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO fault_data`).
		WithArgs("F1", "D1", "2024-01-02T00:00:00Z", nil, nil, nil, "Active", nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertFaults(context.Background(), []domain.FaultRow{row})

	require.NoError(t, err)
	assert.Len(t, inserted, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFaults_ConflictIsNoOp(t *testing.T) {
	mock, repo := setupMockDB(t)
	rows := []domain.FaultRow{{ID: "F1"}, {ID: "F2"}}

	// First pass inserts both, second pass hits ON CONFLICT DO NOTHING.
	for _, affected := range []int64{1, 0} {
		mock.ExpectBegin()
		mock.ExpectExec(`ON CONFLICT \(id\) DO NOTHING`).WithArgs("F1", nil, nil, nil, nil, nil, nil, nil, false).
			WillReturnResult(sqlmock.NewResult(0, affected))
		mock.ExpectExec(`ON CONFLICT \(id\) DO NOTHING`).WithArgs("F2", nil, nil, nil, nil, nil, nil, nil, false).
			WillReturnResult(sqlmock.NewResult(0, affected))
		mock.ExpectCommit()
	}

	first, err := repo.InsertFaults(context.Background(), rows)
	require.NoError(t, err)
	second, err := repo.InsertFaults(context.Background(), rows)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Empty(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFaults_FailureRollsBackBatch(t *testing.T) {
	mock, repo := setupMockDB(t)
	rows := []domain.FaultRow{{ID: "F1"}, {ID: "F2"}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO fault_data`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO fault_data`).WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	inserted, err := repo.InsertFaults(context.Background(), rows)

	require.Error(t, err)
	assert.Nil(t, inserted)
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFaults_BeginFails(t *testing.T) {
	mock, repo := setupMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := repo.InsertFaults(context.Background(), []domain.FaultRow{{ID: "F1"}})

	assert.True(t, domain.IsKind(err, domain.KindDatabase))
}

func TestUpsertDevices(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO device`).
		WithArgs("b1", "Truck 7", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, `{"id":"b1"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.UpsertDevices(context.Background(), []domain.DeviceRow{
		{ID: "b1", Name: str("Truck 7"), Raw: []byte(`{"id":"b1"}`)},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTrips_RollsBackOnError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO geotab_trip`).WillReturnError(errors.New("invalid input syntax"))
	mock.ExpectRollback()

	n, err := repo.UpsertTrips(context.Background(), []domain.TripRow{{ID: "t1"}})

	assert.Zero(t, n)
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRun(t *testing.T) {
	mock, repo := setupMockDB(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO etl_logs`).
		WithArgs("run-1", "success", 3, 0, from, nil, int64(120), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.LogRun(context.Background(), domain.RunLog{
		RunID:           "run-1",
		Status:          "success",
		RecordsInserted: 3,
		FromDate:        &from,
		DurationMS:      120,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	repo := New(sqlx.NewDb(mockDB, "pgx"))

	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = repo.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWatermarks(t *testing.T) {
	mock, repo := setupMockDB(t)
	faults := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	trips := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT source, last_timestamp FROM sync_state ORDER BY source`)).
		WillReturnRows(sqlmock.NewRows([]string{"source", "last_timestamp"}).
			AddRow("fault_data", faults).
			AddRow("trip", trips))

	got, err := repo.ListWatermarks(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SourceFaultData, got[0].Source)
	assert.True(t, faults.Equal(got[0].LastTimestamp))
	assert.Equal(t, domain.SourceTrip, got[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWatermarks_DatabaseError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT source, last_timestamp FROM sync_state`).
		WillReturnError(errors.New("relation \"sync_state\" does not exist"))

	_, err := repo.ListWatermarks(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
}

func TestCountFaults(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM fault_data`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.CountFaults(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountFaults_DatabaseError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM fault_data`)).
		WillReturnError(errors.New("timeout"))

	_, err := repo.CountFaults(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
}
