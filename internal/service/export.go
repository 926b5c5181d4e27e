package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/metrics"
)

const fileTimeLayout = "20060102_150405"

// Exporter dumps whole entity types to CSV, one file per type.
type Exporter struct {
	fetcher   Fetcher
	uploader  Uploader
	dir       string
	batchSize int
	logger    zerolog.Logger
	now       func() time.Time

	// OnProgress, when set, is called every batchSize records.
	OnProgress func(entityType string, fetched int)
}

// NewExporter creates a new CSV exporter
func NewExporter(fetcher Fetcher, cfg config.ExportConfig, logger zerolog.Logger) *Exporter {
	return &Exporter{
		fetcher:   fetcher,
		dir:       cfg.Directory,
		batchSize: cfg.BatchSize,
		logger:    logger.With().Str("component", "export").Logger(),
		now:       time.Now,
	}
}

// WithUploader copies every written file through u. Upload failures are
// logged and do not fail the entity type.
func (e *Exporter) WithUploader(u Uploader) *Exporter {
	e.uploader = u
	return e
}

// Run exports every type in domain.ExportEntityTypes. A failed or empty type
// is counted and skipped; only an authentication failure stops the export.
func (e *Exporter) Run(ctx context.Context) (*domain.ExportSummary, error) {
	summary := &domain.ExportSummary{Directory: e.dir}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return summary, domain.E(domain.KindConfiguration, "export", fmt.Errorf("create export directory: %w", err))
	}

	e.logger.Info().Msg("authenticating with Geotab")
	sess, err := e.fetcher.Authenticate(ctx)
	if err != nil {
		return summary, err
	}
	e.logger.Info().Msg("authentication successful")

	for _, typeName := range domain.ExportEntityTypes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		logger := e.logger.With().Str("type", typeName).Logger()
		logger.Info().Msg("processing entity type")

		path, n, err := e.exportType(ctx, sess, typeName, logger)
		switch {
		case err != nil:
			summary.Failed++
			logger.Error().Err(err).Msg("export failed")
			continue
		case n == 0:
			summary.Failed++
			logger.Warn().Msg("no data to export, skipping")
			continue
		}

		summary.Successful++
		summary.Files = append(summary.Files, path)
		metrics.ExportedRecords.WithLabelValues(typeName).Add(float64(n))
		logger.Info().Str("file", filepath.Base(path)).Int("records", n).Msg("exported")

		if e.uploader != nil {
			key, err := e.uploader.UploadExport(ctx, path)
			if err != nil {
				logger.Warn().Err(err).Msg("upload failed")
			} else {
				logger.Info().Str("key", key).Msg("uploaded")
			}
		}
	}

	ev := e.logger.Info()
	if summary.Failed > 0 {
		ev = e.logger.Warn()
	}
	ev.Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Str("directory", e.dir).
		Msg("export process completed")
	return summary, nil
}

// exportType spools the feed to a temporary JSON-lines file while collecting
// the field names, then writes the CSV from the spool. It returns the CSV
// path and record count; an empty type writes nothing.
func (e *Exporter) exportType(ctx context.Context, sess *geotab.Session, typeName string, logger zerolog.Logger) (string, int, error) {
	spool, err := os.CreateTemp(e.dir, "."+typeName+"-*.jsonl")
	if err != nil {
		return "", 0, fmt.Errorf("create spool: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	fields := make(map[string]struct{})
	count := 0
	w := bufio.NewWriter(spool)
	enc := json.NewEncoder(w)

	pager := e.fetcher.Feed(sess, typeName, e.batchSize)
	for pager.Next(ctx) {
		for _, rec := range pager.Page() {
			if err := enc.Encode(rec); err != nil {
				return "", 0, fmt.Errorf("spool record: %w", err)
			}
			for k := range rec {
				fields[k] = struct{}{}
			}
			count++
			if count%e.batchSize == 0 {
				logger.Info().Int("fetched", count).Msg("progress")
				if e.OnProgress != nil {
					e.OnProgress(typeName, count)
				}
			}
		}
	}
	if err := pager.Err(); err != nil {
		return "", 0, err
	}
	logger.Info().Int("fetched", count).Msg("fetch completed")
	if count == 0 {
		return "", 0, nil
	}

	if err := w.Flush(); err != nil {
		return "", 0, fmt.Errorf("flush spool: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewind spool: %w", err)
	}

	header := make([]string, 0, len(fields))
	for k := range fields {
		header = append(header, k)
	}
	sort.Strings(header)

	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", typeName, e.now().Format(fileTimeLayout)))
	if err := writeCSV(path, header, spool); err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, count, nil
}

func writeCSV(path string, header []string, spool io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	dec := json.NewDecoder(spool)
	dec.UseNumber()
	row := make([]string, len(header))
	for {
		var rec domain.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read spool: %w", err)
		}
		for i, k := range header {
			row[i] = cell(rec[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// cell renders one value. Missing fields are empty and nested values are
// JSON.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
