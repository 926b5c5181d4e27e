package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/mapper"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/metrics"
)

// applyFunc persists one fetched batch and reports how many rows it added.
type applyFunc func(ctx context.Context, runID string, records []domain.Record) (int, error)

// incremental runs the watermark-driven pipeline for one source:
// read watermark, authenticate, fetch since watermark, apply, advance.
type incremental struct {
	source    string
	typeName  string
	timeField string
	limit     int

	store    WatermarkStore
	fetcher  Fetcher
	apply    applyFunc
	notifier Notifier
	logger   zerolog.Logger
}

type run struct {
	res    *domain.SyncResult
	logger zerolog.Logger
}

func (r *run) to(next domain.SyncState) error {
	if !r.res.State.CanTransition(next) {
		return fmt.Errorf("invalid sync transition %s -> %s", r.res.State, next)
	}
	r.logger.Debug().Str("from", string(r.res.State)).Str("to", string(next)).Msg("state")
	r.res.State = next
	return nil
}

// run executes one pass. A nil session makes it authenticate on its own.
func (s *incremental) run(ctx context.Context, sess *geotab.Session) (*domain.SyncResult, error) {
	start := time.Now()
	res := &domain.SyncResult{
		RunID:  uuid.NewString(),
		Source: s.source,
		State:  domain.StateIdle,
	}
	r := &run{res: res, logger: s.logger.With().Str("run_id", res.RunID).Str("source", s.source).Logger()}

	res, err := s.execute(ctx, r, sess)
	res.DurationMS = time.Since(start).Milliseconds()
	metrics.SyncRuns.WithLabelValues(s.source, string(res.State)).Inc()

	if err != nil {
		r.logger.Error().Err(err).Str("state", string(res.State)).Msg("sync failed")
		if s.notifier != nil {
			if nerr := s.notifier.NotifySyncFailure(ctx, res, err); nerr != nil {
				r.logger.Warn().Err(nerr).Msg("failure notification not sent")
			}
		}
		return res, err
	}

	r.logger.Info().
		Int("fetched", res.Fetched).
		Int("inserted", res.Inserted).
		Time("from", res.From).
		Int64("duration_ms", res.DurationMS).
		Msg("sync complete")
	return res, nil
}

func (s *incremental) execute(ctx context.Context, r *run, sess *geotab.Session) (*domain.SyncResult, error) {
	res := r.res
	fail := func(err error) (*domain.SyncResult, error) {
		res.State = domain.StateFailed
		return res, err
	}

	from, err := s.store.GetLastTimestamp(ctx, s.source)
	if err != nil {
		return fail(err)
	}
	res.From = from

	if err := r.to(domain.StateAuthPending); err != nil {
		return fail(err)
	}
	if sess == nil {
		if sess, err = s.fetcher.Authenticate(ctx); err != nil {
			return fail(err)
		}
	}

	if err := r.to(domain.StateFetching); err != nil {
		return fail(err)
	}
	records, err := s.fetcher.FetchSince(ctx, sess, s.typeName, from, s.limit)
	if err != nil {
		return fail(err)
	}
	res.Fetched = len(records)

	if len(records) == 0 {
		r.logger.Info().Time("from", from).Msg("nothing new, watermark unchanged")
		if err := r.to(domain.StateDone); err != nil {
			return fail(err)
		}
		return res, nil
	}

	if err := r.to(domain.StateInserting); err != nil {
		return fail(err)
	}
	inserted, err := s.apply(ctx, res.RunID, records)
	if err != nil {
		return fail(err)
	}
	res.Inserted = inserted

	if err := r.to(domain.StateWatermarkUpdate); err != nil {
		return fail(err)
	}
	latest, ok := mapper.MaxEventTime(records, s.timeField)
	switch {
	case !ok:
		r.logger.Warn().Str("field", s.timeField).Msg("no record carried a usable timestamp, watermark unchanged")
	case latest.After(from):
		if err := s.store.SetLastTimestamp(ctx, s.source, latest); err != nil {
			return fail(err)
		}
		res.To = &latest
	default:
		res.To = &from
	}

	if err := r.to(domain.StateDone); err != nil {
		return fail(err)
	}
	return res, nil
}
