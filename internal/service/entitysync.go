package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/mapper"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/metrics"
)

const (
	listLimit      = 10000
	tripLimit      = 500
	maxTripBatches = 50
)

// EntitySync runs every sync on one session: faults incrementally, then a
// full refresh of Device, User, Zone and Rule, then trips incrementally on
// their stop time. The first failure aborts the run.
type EntitySync struct {
	fetcher Fetcher
	sink    EntitySink
	faults  *FaultSync
	trips   *incremental
	runs    RunLogger
	logger  zerolog.Logger
}

// NewEntitySync creates a new full sync service
func NewEntitySync(store WatermarkStore, fetcher Fetcher, sink EntitySink, faults *FaultSync, runs RunLogger, logger zerolog.Logger) *EntitySync {
	s := &EntitySync{
		fetcher: fetcher,
		sink:    sink,
		faults:  faults,
		runs:    runs,
		logger:  logger.With().Str("component", "entitysync").Logger(),
	}
	s.trips = &incremental{
		source:    domain.SourceTrip,
		typeName:  domain.EntityTrip,
		timeField: "stop",
		limit:     tripLimit,
		store:     store,
		fetcher:   fetcher,
		apply:     s.upsertTrips,
		logger:    s.logger,
	}
	return s
}

type refresh struct {
	typeName string
	limit    int
	upsert   func(ctx context.Context, records []domain.Record) (int, error)
}

func (s *EntitySync) refreshes() []refresh {
	return []refresh{
		{domain.EntityDevice, listLimit, func(ctx context.Context, records []domain.Record) (int, error) {
			rows := make([]domain.DeviceRow, 0, len(records))
			for _, r := range records {
				rows = append(rows, mapper.MapDevice(r))
			}
			return s.sink.UpsertDevices(ctx, rows)
		}},
		{domain.EntityUser, listLimit, func(ctx context.Context, records []domain.Record) (int, error) {
			rows := make([]domain.UserRow, 0, len(records))
			for _, r := range records {
				rows = append(rows, mapper.MapUser(r))
			}
			return s.sink.UpsertUsers(ctx, rows)
		}},
		{domain.EntityZone, 0, func(ctx context.Context, records []domain.Record) (int, error) {
			rows := make([]domain.ZoneRow, 0, len(records))
			for _, r := range records {
				rows = append(rows, mapper.MapZone(r))
			}
			return s.sink.UpsertZones(ctx, rows)
		}},
		{domain.EntityRule, 0, func(ctx context.Context, records []domain.Record) (int, error) {
			rows := make([]domain.RuleRow, 0, len(records))
			for _, r := range records {
				rows = append(rows, mapper.MapRule(r))
			}
			return s.sink.UpsertRules(ctx, rows)
		}},
	}
}

func (s *EntitySync) upsertTrips(ctx context.Context, _ string, records []domain.Record) (int, error) {
	rows := make([]domain.TripRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, mapper.MapTrip(r))
	}
	n, err := s.sink.UpsertTrips(ctx, rows)
	if err == nil {
		metrics.EntitiesProcessed.WithLabelValues(domain.EntityTrip).Add(float64(n))
	}
	return n, err
}

// Run authenticates once and syncs everything. The run log gets one row for
// the whole pass.
func (s *EntitySync) Run(ctx context.Context) (*domain.FullSyncResult, error) {
	start := time.Now()
	out := &domain.FullSyncResult{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", out.RunID).Logger()

	err := s.execute(ctx, out, logger)
	out.DurationMS = time.Since(start).Milliseconds()
	s.record(ctx, out, err)
	if err != nil {
		logger.Error().Err(err).Msg("full sync failed")
		return out, err
	}

	logger.Info().Int64("duration_ms", out.DurationMS).Msg("full sync complete")
	return out, nil
}

func (s *EntitySync) execute(ctx context.Context, out *domain.FullSyncResult, logger zerolog.Logger) error {
	sess, err := s.fetcher.Authenticate(ctx)
	if err != nil {
		return err
	}

	out.Faults, err = s.faults.RunWithSession(ctx, sess)
	if err != nil {
		return err
	}

	for _, r := range s.refreshes() {
		n, err := s.refresh(ctx, sess, r)
		if err != nil {
			return fmt.Errorf("%s sync: %w", r.typeName, err)
		}
		logger.Info().Str("type", r.typeName).Int("processed", n).Msg("entity refreshed")
		out.Entities = append(out.Entities, domain.EntityResult{EntityType: r.typeName, Processed: n})
	}

	out.Trips, err = s.syncTrips(ctx, sess)
	return err
}

// SyncTrips authenticates and runs only the trip batches, with its own run
// log row.
func (s *EntitySync) SyncTrips(ctx context.Context) (*domain.SyncResult, error) {
	start := time.Now()
	res := &domain.SyncResult{RunID: uuid.NewString(), Source: domain.SourceTrip, State: domain.StateFailed}

	sess, err := s.fetcher.Authenticate(ctx)
	if err == nil {
		res, err = s.syncTrips(ctx, sess)
	}
	res.DurationMS = time.Since(start).Milliseconds()

	if s.runs != nil {
		if lerr := s.runs.LogRun(ctx, runLog(res, err)); lerr != nil {
			s.logger.Warn().Err(lerr).Str("run_id", res.RunID).Msg("etl log not written")
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("trip sync failed")
		return res, err
	}
	s.logger.Info().
		Int("batches", res.Batches).
		Int("inserted", res.Inserted).
		Msg("trip sync complete")
	return res, nil
}

// syncTrips repeats the trip batch while full pages come back, at most
// maxTripBatches times. A batch that leaves the watermark where it was ends
// the loop.
func (s *EntitySync) syncTrips(ctx context.Context, sess *geotab.Session) (*domain.SyncResult, error) {
	var total *domain.SyncResult
	for i := 0; i < maxTripBatches; i++ {
		res, err := s.trips.run(ctx, sess)
		if total == nil {
			total = &domain.SyncResult{RunID: res.RunID, Source: res.Source, From: res.From}
		}
		total.Batches++
		total.State = res.State
		total.Fetched += res.Fetched
		total.Inserted += res.Inserted
		total.DurationMS += res.DurationMS
		if res.To != nil {
			total.To = res.To
		}
		if err != nil {
			return total, err
		}
		if res.Fetched < tripLimit || res.To == nil || !res.To.After(res.From) {
			break
		}
	}
	return total, nil
}

func (s *EntitySync) refresh(ctx context.Context, sess *geotab.Session, r refresh) (int, error) {
	records, err := s.fetcher.Get(ctx, sess, r.typeName, r.limit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	n, err := r.upsert(ctx, records)
	if err != nil {
		return 0, err
	}
	metrics.EntitiesProcessed.WithLabelValues(r.typeName).Add(float64(n))
	return n, nil
}

func (s *EntitySync) record(ctx context.Context, out *domain.FullSyncResult, runErr error) {
	if s.runs == nil {
		return
	}
	l := domain.RunLog{
		RunID:      out.RunID,
		Status:     "success",
		DurationMS: out.DurationMS,
	}
	if f := out.Faults; f != nil {
		l.RecordsInserted = f.Inserted
		l.ToDate = f.To
		if !f.From.IsZero() {
			l.FromDate = timePtr(f.From)
		}
	}
	for _, e := range out.Entities {
		if e.EntityType == domain.EntityDevice {
			l.DevicesProcessed = e.Processed
		}
	}
	if runErr != nil {
		msg := runErr.Error()
		l.Status = "error"
		l.ErrorMessage = &msg
	}
	l.Raw, _ = json.Marshal(out)

	if err := s.runs.LogRun(ctx, l); err != nil {
		s.logger.Warn().Err(err).Str("run_id", out.RunID).Msg("etl log not written")
	}
}
