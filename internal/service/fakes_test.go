package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
)

type fakeStore struct {
	marks map[string]time.Time
	sets  int
}

func newFakeStore(marks map[string]time.Time) *fakeStore {
	return &fakeStore{marks: marks}
}

func (s *fakeStore) GetLastTimestamp(_ context.Context, source string) (time.Time, error) {
	ts, ok := s.marks[source]
	if !ok {
		return time.Time{}, domain.Errorf(domain.KindNotFound, "fake", "no watermark for %s", source)
	}
	return ts, nil
}

func (s *fakeStore) SetLastTimestamp(_ context.Context, source string, ts time.Time) error {
	if _, ok := s.marks[source]; !ok {
		return domain.Errorf(domain.KindNotFound, "fake", "no watermark for %s", source)
	}
	s.sets++
	s.marks[source] = ts
	return nil
}

type fakeFetcher struct {
	authErr   error
	authCalls int

	since    map[string][]domain.Record
	sinceErr error
	from     map[string]time.Time
	calls    map[string]int

	lists   map[string][]domain.Record
	listErr map[string]error

	feeds   map[string][][]domain.Record
	feedErr map[string]error
}

func (f *fakeFetcher) Authenticate(context.Context) (*geotab.Session, error) {
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &geotab.Session{Server: "my.geotab.com"}, nil
}

// FetchSince returns records at or after from. With a positive limit it
// behaves like a server honouring resultsLimit: earliest records first, at
// most limit of them.
func (f *fakeFetcher) FetchSince(_ context.Context, _ *geotab.Session, typeName string, from time.Time, limit int) ([]domain.Record, error) {
	if f.from == nil {
		f.from = map[string]time.Time{}
		f.calls = map[string]int{}
	}
	f.from[typeName] = from
	f.calls[typeName]++
	if f.sinceErr != nil {
		return nil, f.sinceErr
	}
	var out []domain.Record
	for _, r := range f.since[typeName] {
		ts, err := time.Parse(time.RFC3339, eventTime(r))
		if err != nil || !ts.Before(from) {
			out = append(out, r)
		}
	}
	if limit > 0 {
		sort.SliceStable(out, func(i, j int) bool { return eventTime(out[i]) < eventTime(out[j]) })
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

func eventTime(r domain.Record) string {
	if t, ok := r["dateTime"].(string); ok {
		return t
	}
	t, _ := r["stop"].(string)
	return t
}

func (f *fakeFetcher) Get(_ context.Context, _ *geotab.Session, typeName string, _ int) ([]domain.Record, error) {
	if err := f.listErr[typeName]; err != nil {
		return nil, err
	}
	return f.lists[typeName], nil
}

func (f *fakeFetcher) Feed(_ *geotab.Session, typeName string, _ int) geotab.Pager {
	return &fakePager{pages: f.feeds[typeName], err: f.feedErr[typeName]}
}

type fakePager struct {
	pages [][]domain.Record
	pos   int
	err   error
}

func (p *fakePager) Next(context.Context) bool {
	if p.pos >= len(p.pages) {
		return false
	}
	p.pos++
	return true
}

func (p *fakePager) Page() []domain.Record { return p.pages[p.pos-1] }

// Err reports the configured failure once every page has been served.
func (p *fakePager) Err() error {
	if p.pos >= len(p.pages) {
		return p.err
	}
	return nil
}

func (p *fakePager) Version() string { return "" }

type fakeFaultSink struct {
	rows map[string]domain.FaultRow
	err  error
}

func (s *fakeFaultSink) InsertFaults(_ context.Context, rows []domain.FaultRow) ([]domain.FaultRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.rows == nil {
		s.rows = map[string]domain.FaultRow{}
	}
	var inserted []domain.FaultRow
	for _, r := range rows {
		if _, ok := s.rows[r.ID]; ok {
			continue
		}
		s.rows[r.ID] = r
		inserted = append(inserted, r)
	}
	return inserted, nil
}

type fakeEntitySink struct {
	devices []domain.DeviceRow
	users   []domain.UserRow
	zones   []domain.ZoneRow
	rules   []domain.RuleRow
	trips   map[string]domain.TripRow
}

func (s *fakeEntitySink) UpsertDevices(_ context.Context, rows []domain.DeviceRow) (int, error) {
	s.devices = append(s.devices, rows...)
	return len(rows), nil
}

func (s *fakeEntitySink) UpsertUsers(_ context.Context, rows []domain.UserRow) (int, error) {
	s.users = append(s.users, rows...)
	return len(rows), nil
}

func (s *fakeEntitySink) UpsertZones(_ context.Context, rows []domain.ZoneRow) (int, error) {
	s.zones = append(s.zones, rows...)
	return len(rows), nil
}

func (s *fakeEntitySink) UpsertRules(_ context.Context, rows []domain.RuleRow) (int, error) {
	s.rules = append(s.rules, rows...)
	return len(rows), nil
}

func (s *fakeEntitySink) UpsertTrips(_ context.Context, rows []domain.TripRow) (int, error) {
	if s.trips == nil {
		s.trips = map[string]domain.TripRow{}
	}
	for _, r := range rows {
		s.trips[r.ID] = r
	}
	return len(rows), nil
}

type fakeRuns struct{ logs []domain.RunLog }

func (r *fakeRuns) LogRun(_ context.Context, l domain.RunLog) error {
	r.logs = append(r.logs, l)
	return nil
}

type fakePublisher struct {
	runID string
	rows  []domain.FaultRow
}

func (p *fakePublisher) PublishFaults(runID string, rows []domain.FaultRow) error {
	p.runID = runID
	p.rows = append(p.rows, rows...)
	return errors.New("broker gone")
}

type fakeNotifier struct {
	res *domain.SyncResult
	err error
}

func (n *fakeNotifier) NotifySyncFailure(_ context.Context, res *domain.SyncResult, runErr error) error {
	n.res, n.err = res, runErr
	return nil
}

type fakeUploader struct{ files []string }

func (u *fakeUploader) UploadExport(_ context.Context, path string) (string, error) {
	u.files = append(u.files, path)
	return "exports/" + path, nil
}
