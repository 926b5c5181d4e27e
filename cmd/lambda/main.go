package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/geotab-fault-sync/internal/http"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/service"
)

// handler serves API Gateway proxy events with the same contract as
// GET /api/sync_fault_data.
type handler struct {
	faults httpHandlers.FaultSyncer
}

// Handle runs one fault sync per API Gateway request.
func (h *handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != http.MethodGet {
		return plain(http.StatusMethodNotAllowed, "method not allowed"), nil
	}

	res, err := h.faults.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sync_fault_data failed")
		return plain(http.StatusInternalServerError, err.Error()), nil
	}

	body, err := json.Marshal(httpHandlers.NewSyncResponse(res))
	if err != nil {
		return plain(http.StatusInternalServerError, err.Error()), nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func plain(code int, msg string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: code,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       msg,
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.RequireGeotab(); err != nil {
		log.Fatal().Err(err).Msg("geotab configuration incomplete")
	}

	// The connection outlives a single invocation.
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	svcs, err := service.New(ctx, cfg, db, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}

	h := &handler{faults: svcs.Faults}
	lambda.Start(h.Handle)
}
