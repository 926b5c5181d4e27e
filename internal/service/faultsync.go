package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/mapper"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/metrics"
)

// FaultSync copies new FaultData records into fault_data and advances the
// fault_data watermark to the latest dateTime seen.
type FaultSync struct {
	inc       *incremental
	sink      FaultSink
	runs      RunLogger
	publisher Publisher
	logger    zerolog.Logger
}

// NewFaultSync wires the pipeline. limit is passed to the API as resultsLimit
// when positive; runs may be nil.
func NewFaultSync(store WatermarkStore, fetcher Fetcher, sink FaultSink, runs RunLogger, limit int, logger zerolog.Logger) *FaultSync {
	s := &FaultSync{
		sink:   sink,
		runs:   runs,
		logger: logger.With().Str("component", "faultsync").Logger(),
	}
	s.inc = &incremental{
		source:    domain.SourceFaultData,
		typeName:  domain.EntityFaultData,
		timeField: "dateTime",
		limit:     limit,
		store:     store,
		fetcher:   fetcher,
		apply:     s.insert,
		logger:    s.logger,
	}
	return s
}

// WithPublisher sends committed faults to p after each successful run.
func (s *FaultSync) WithPublisher(p Publisher) *FaultSync {
	s.publisher = p
	return s
}

// WithNotifier reports failed runs to n.
func (s *FaultSync) WithNotifier(n Notifier) *FaultSync {
	s.inc.notifier = n
	return s
}

// Run performs one complete sync and records it in the run log. The returned
// result is non-nil even on failure and carries the state the run stopped in.
func (s *FaultSync) Run(ctx context.Context) (*domain.SyncResult, error) {
	res, err := s.inc.run(ctx, nil)
	s.record(ctx, res, err)
	return res, err
}

// RunWithSession is Run on an existing session, without a run log entry.
func (s *FaultSync) RunWithSession(ctx context.Context, sess *geotab.Session) (*domain.SyncResult, error) {
	return s.inc.run(ctx, sess)
}

func (s *FaultSync) insert(ctx context.Context, runID string, records []domain.Record) (int, error) {
	metrics.FaultsFetched.Add(float64(len(records)))

	rows := s.insertable(runID, records)
	if len(rows) == 0 {
		return 0, nil
	}
	inserted, err := s.sink.InsertFaults(ctx, rows)
	if err != nil {
		return 0, err
	}
	metrics.FaultsInserted.Add(float64(len(inserted)))

	if s.publisher != nil && len(inserted) > 0 {
		if err := s.publisher.PublishFaults(runID, inserted); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("publishing inserted faults failed")
		}
	}
	return len(inserted), nil
}

// insertable maps records to rows, dropping those the fault_data table would
// reject: no id, or a dateTime Postgres cannot cast. A missing dateTime is
// kept and stored as NULL.
func (s *FaultSync) insertable(runID string, records []domain.Record) []domain.FaultRow {
	rows := make([]domain.FaultRow, 0, len(records))
	for _, rec := range records {
		row := mapper.MapFaultRecord(rec)
		if row.ID == "" {
			s.logger.Warn().Str("run_id", runID).Interface("record", rec).Msg("skipping FaultData record without id")
			continue
		}
		if row.OccurredAt != nil {
			if _, ok := mapper.ParseTime(*row.OccurredAt); !ok {
				s.logger.Warn().Str("run_id", runID).Str("id", row.ID).Str("dateTime", *row.OccurredAt).
					Msg("skipping FaultData record with unparseable dateTime")
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *FaultSync) record(ctx context.Context, res *domain.SyncResult, runErr error) {
	if s.runs == nil {
		return
	}
	if err := s.runs.LogRun(ctx, runLog(res, runErr)); err != nil {
		s.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("etl log not written")
	}
}

func runLog(res *domain.SyncResult, runErr error) domain.RunLog {
	l := domain.RunLog{
		RunID:           res.RunID,
		Status:          "success",
		RecordsInserted: res.Inserted,
		DurationMS:      res.DurationMS,
		ToDate:          res.To,
	}
	if !res.From.IsZero() {
		l.FromDate = timePtr(res.From)
	}
	if runErr != nil {
		msg := runErr.Error()
		l.Status = "error"
		l.ErrorMessage = &msg
	}
	l.Raw, _ = json.Marshal(res)
	return l
}

func timePtr(t time.Time) *time.Time { return &t }
