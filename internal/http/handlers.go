package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/metrics"
)

// FaultSyncer runs one incremental FaultData pass.
type FaultSyncer interface {
	Run(ctx context.Context) (*domain.SyncResult, error)
}

// FullSyncer runs the fault, entity and trip passes on one session.
type FullSyncer interface {
	Run(ctx context.Context) (*domain.FullSyncResult, error)
}

// TripSyncer runs the batched trip pass.
type TripSyncer interface {
	SyncTrips(ctx context.Context) (*domain.SyncResult, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes holds the handlers' dependencies. Only Faults is required.
type Routes struct {
	Faults FaultSyncer
	All    FullSyncer
	Trips  TripSyncer
	Health Pinger
}

// SyncResponse is the success body of a fault sync trigger.
type SyncResponse struct {
	Status       string  `json:"status"`
	RunID        string  `json:"runId"`
	Inserted     int     `json:"inserted"`
	Fetched      int     `json:"fetched"`
	FromDateUsed string  `json:"fromDateUsed"`
	ToDate       *string `json:"toDate"`
	DurationMS   int64   `json:"durationMs"`
}

// NewSyncResponse builds the success body from a finished run.
func NewSyncResponse(res *domain.SyncResult) SyncResponse {
	out := SyncResponse{
		Status:       "ok",
		RunID:        res.RunID,
		Inserted:     res.Inserted,
		Fetched:      res.Fetched,
		FromDateUsed: res.From.UTC().Format(time.RFC3339),
		DurationMS:   res.DurationMS,
	}
	if res.To != nil {
		to := res.To.UTC().Format(time.RFC3339)
		out.ToDate = &to
	}
	return out
}

// Register mounts the sync triggers, health and metrics.
func Register(app *fiber.App, r Routes, logger zerolog.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if r.Health != nil {
			if err := r.Health.Ping(c.UserContext()); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
				return c.Status(fiber.StatusServiceUnavailable).SendString("database unreachable")
			}
		}
		return c.SendString("ok")
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	api.Get("/sync_fault_data", func(c *fiber.Ctx) error {
		res, err := r.Faults.Run(c.UserContext())
		if err != nil {
			logger.Error().Err(err).Msg("sync_fault_data failed")
			return plainError(c, err)
		}
		return c.JSON(NewSyncResponse(res))
	})

	if r.Trips != nil {
		api.Get("/sync_trip", func(c *fiber.Ctx) error {
			res, err := r.Trips.SyncTrips(c.UserContext())
			if err != nil {
				logger.Error().Err(err).Msg("sync_trip failed")
				return plainError(c, err)
			}
			return c.JSON(fiber.Map{
				"status":          "ok",
				"runId":           res.RunID,
				"batchesExecuted": res.Batches,
				"totalFetched":    res.Fetched,
				"totalInserted":   res.Inserted,
				"toDate":          NewSyncResponse(res).ToDate,
				"durationMs":      res.DurationMS,
			})
		})
	}

	if r.All != nil {
		api.Get("/sync", func(c *fiber.Ctx) error {
			res, err := r.All.Run(c.UserContext())
			if err != nil {
				logger.Error().Err(err).Msg("sync failed")
				return plainError(c, err)
			}
			return c.JSON(fiber.Map{
				"status":     "ok",
				"runId":      res.RunID,
				"faults":     res.Faults,
				"entities":   res.Entities,
				"trips":      res.Trips,
				"durationMs": res.DurationMS,
			})
		})
	}
}

func plainError(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
}
