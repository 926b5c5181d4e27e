package service

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/cloud"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/events"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/geotab"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/repository"
)

// Services is everything a surface (CLI, HTTP, Lambda) needs. Faults and
// Entities are nil when no database handle was given.
type Services struct {
	Repos    *repository.Repos
	Geotab   *geotab.Client
	Faults   *FaultSync
	Entities *EntitySync
	Export   *Exporter

	publisher *events.Publisher
}

// New wires the services from cfg. AWS and MQTT clients are only created
// when the matching settings are present.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) (*Services, error) {
	if err := cfg.RequireGeotab(); err != nil {
		return nil, err
	}

	client := geotab.NewClient(cfg.Geotab, logger)
	svcs := &Services{
		Geotab: client,
		Export: NewExporter(client, cfg.Export, logger),
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := cloud.LoadConfig(ctx, cfg.AWS.Region)
			if err != nil {
				return aws.Config{}, err
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	if cfg.AWS.ExportBucket != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		svcs.Export.WithUploader(cloud.NewS3Client(c, cfg.AWS.ExportBucket))
	}

	if db == nil {
		return svcs, nil
	}

	svcs.Repos = repository.New(db)

	var store WatermarkStore = svcs.Repos
	if cfg.WatermarkBackend == config.WatermarkDynamoDB {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		store = cloud.NewDynamoDBWatermarkStore(c, cfg.AWS.DynamoDBTable)
	}

	svcs.Faults = NewFaultSync(store, client, svcs.Repos, svcs.Repos, cfg.Geotab.ResultsLimit, logger)

	if cfg.AWS.SNSTopicArn != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		svcs.Faults.WithNotifier(cloud.NewSNSClient(c, cfg.AWS.SNSTopicArn))
	}

	if cfg.MQTT.Broker != "" {
		pub, err := events.Connect(cfg.MQTT.Broker, cfg.MQTT.FaultTopic, logger)
		if err != nil {
			// Publishing is optional; a dead broker must not stop syncing.
			logger.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("mqtt unavailable, fault events disabled")
		} else {
			svcs.publisher = pub
			svcs.Faults.WithPublisher(pub)
		}
	}

	svcs.Entities = NewEntitySync(store, client, svcs.Repos, svcs.Faults, svcs.Repos, logger)
	return svcs, nil
}

// Close releases the broker connection.
func (s *Services) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}
