package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/database"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/logging"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/repository"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/service"
)

const exportLogFile = "geotab_export.log"

var (
	seedFlag string
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "geotab-sync",
	Short:         "Sync Geotab telemetry into Postgres and export entities to CSV",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy new FaultData records and advance the fault_data watermark",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svcs *service.Services) error {
			res, err := svcs.Faults.Run(ctx)
			if err != nil {
				return err
			}
			ev := logger.Info().
				Str("run_id", res.RunID).
				Int("fetched", res.Fetched).
				Int("inserted", res.Inserted).
				Time("from", res.From)
			if res.To != nil {
				ev = ev.Time("watermark", *res.To)
			}
			ev.Msg("fault sync finished")
			return nil
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync faults, devices, users, zones, rules and trips in one pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svcs *service.Services) error {
			res, err := svcs.Entities.Run(ctx)
			if err != nil {
				return err
			}
			for _, e := range res.Entities {
				logger.Info().Str("type", e.EntityType).Int("processed", e.Processed).Msg("entity")
			}
			logger.Info().Str("run_id", res.RunID).Int64("duration_ms", res.DurationMS).Msg("full sync finished")
			return nil
		})
	},
}

var syncTripsCmd = &cobra.Command{
	Use:   "sync-trips",
	Short: "Copy new trips in batches and advance the trip watermark",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svcs *service.Services) error {
			res, err := svcs.Entities.SyncTrips(ctx)
			if err != nil {
				return err
			}
			ev := logger.Info().
				Str("run_id", res.RunID).
				Int("batches", res.Batches).
				Int("fetched", res.Fetched).
				Int("upserted", res.Inserted)
			if res.To != nil {
				ev = ev.Time("watermark", *res.To)
			}
			ev.Msg("trip sync finished")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored watermarks and the fault_data row count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)

		return printStatus(cmd.Context(), cmd.OutOrStdout(), repository.New(db))
	},
}

type statusReader interface {
	ListWatermarks(ctx context.Context) ([]domain.Watermark, error)
	CountFaults(ctx context.Context) (int, error)
}

func printStatus(ctx context.Context, w io.Writer, r statusReader) error {
	marks, err := r.ListWatermarks(ctx)
	if err != nil {
		return err
	}
	n, err := r.CountFaults(ctx)
	if err != nil {
		return err
	}
	for _, m := range marks {
		fmt.Fprintf(w, "%-12s %s\n", m.Source, m.LastTimestamp.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "%-12s %d\n", "fault rows", n)
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every supported entity type to timestamped CSV files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireGeotab(); err != nil {
			return err
		}

		fileLogger, f, err := logging.WithFile(cfg.LogLevel, os.Stdout, cfg.Export.Directory, exportLogFile)
		if err != nil {
			return domain.E(domain.KindConfiguration, "export", err)
		}
		defer f.Close()
		logger = fileLogger
		logger.Info().Msg("starting Geotab data export")

		svcs, err := service.New(cmd.Context(), cfg, nil, logger)
		if err != nil {
			return err
		}
		defer svcs.Close()

		_, err = svcs.Export.Run(cmd.Context())
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and optionally seed the watermark rows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var seed time.Time
		if seedFlag != "" {
			t, err := time.Parse(time.RFC3339, seedFlag)
			if err != nil {
				return domain.Errorf(domain.KindConfiguration, "migrate", "bad --seed %q: %v", seedFlag, err)
			}
			seed = t
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db, seed); err != nil {
			return err
		}
		logger.Info().Bool("seeded", !seed.IsZero()).Msg("schema ready")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&seedFlag, "seed", "", "initial watermark for fault_data and trip (RFC3339)")
	rootCmd.AddCommand(syncCmd, syncAllCmd, syncTripsCmd, statusCmd, exportCmd, migrateCmd)
}

func withServices(ctx context.Context, fn func(context.Context, *service.Services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger = logging.New(cfg.LogLevel, logging.Console(os.Stdout))

	if err := cfg.RequireGeotab(); err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	svcs, err := service.New(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer svcs.Close()

	return fn(ctx, svcs)
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing database")
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	logger = logging.New("info", logging.Console(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	switch kind := domain.KindOf(err); kind {
	case domain.KindConfiguration:
		logger.Error().Err(err).Msg("configuration error")
	case domain.KindAuthentication:
		logger.Error().Err(err).Msg("authentication failed, check GEOTAB_USERNAME, GEOTAB_PASSWORD and GEOTAB_DATABASE")
	case domain.KindUnknown:
		logger.Error().Err(err).Msg("unexpected error")
		fmt.Fprintln(os.Stderr, err)
	default:
		logger.Error().Err(err).Str("kind", kind.String()).Msg("run failed")
	}
	os.Exit(1)
}
