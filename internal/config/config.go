package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

const (
	WatermarkPostgres = "postgres"
	WatermarkDynamoDB = "dynamodb"
)

// Config is built once at process start and handed to every component.
type Config struct {
	DatabaseURL string

	Geotab GeotabConfig
	Export ExportConfig
	AWS    AWSConfig
	MQTT   MQTTConfig

	APIAddr          string
	LogLevel         string
	WatermarkBackend string
}

// GeotabConfig holds the MyGeotab credentials and call settings.
type GeotabConfig struct {
	Username     string
	Password     string
	Database     string
	Server       string
	Timeout      time.Duration
	ResultsLimit int
}

// ExportConfig controls the CSV export output.
type ExportConfig struct {
	Directory string
	BatchSize int
}

// AWSConfig holds the optional AWS integrations.
type AWSConfig struct {
	Region        string
	ExportBucket  string
	SNSTopicArn   string
	DynamoDBTable string
}

// MQTTConfig holds the optional fault event broker settings.
type MQTTConfig struct {
	Broker     string
	FaultTopic string
}

// Load reads configuration from .env, the environment and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("GEOTAB_SERVER", "my.geotab.com")
	v.SetDefault("GEOTAB_TIMEOUT", "60s")
	v.SetDefault("GEOTAB_RESULTS_LIMIT", 0)

	// Bulk export
	v.SetDefault("EXPORT_DIRECTORY", "./exports")
	v.SetDefault("MAX_RECORDS_PER_BATCH", 500)

	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WATERMARK_BACKEND", WatermarkPostgres)

	// AWS Configuration
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("EXPORT_S3_BUCKET", "")
	v.SetDefault("SNS_TOPIC_ARN", "")
	v.SetDefault("DYNAMODB_SYNC_TABLE", "SyncState")

	v.SetDefault("MQTT_BROKER", "")
	v.SetDefault("MQTT_FAULT_TOPIC", "geotab/faults")

	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL: v.GetString("DATABASE_URL"),
		Geotab: GeotabConfig{
			Username:     v.GetString("GEOTAB_USERNAME"),
			Password:     v.GetString("GEOTAB_PASSWORD"),
			Database:     v.GetString("GEOTAB_DATABASE"),
			Server:       v.GetString("GEOTAB_SERVER"),
			Timeout:      v.GetDuration("GEOTAB_TIMEOUT"),
			ResultsLimit: v.GetInt("GEOTAB_RESULTS_LIMIT"),
		},
		Export: ExportConfig{
			Directory: v.GetString("EXPORT_DIRECTORY"),
			BatchSize: v.GetInt("MAX_RECORDS_PER_BATCH"),
		},
		AWS: AWSConfig{
			Region:        v.GetString("AWS_REGION"),
			ExportBucket:  v.GetString("EXPORT_S3_BUCKET"),
			SNSTopicArn:   v.GetString("SNS_TOPIC_ARN"),
			DynamoDBTable: v.GetString("DYNAMODB_SYNC_TABLE"),
		},
		MQTT: MQTTConfig{
			Broker:     v.GetString("MQTT_BROKER"),
			FaultTopic: v.GetString("MQTT_FAULT_TOPIC"),
		},
		APIAddr:          v.GetString("API_ADDR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		WatermarkBackend: strings.ToLower(v.GetString("WATERMARK_BACKEND")),
	}

	if cfg.Export.BatchSize <= 0 {
		return nil, domain.Errorf(domain.KindConfiguration, "config.Load",
			"MAX_RECORDS_PER_BATCH must be positive, got %d", cfg.Export.BatchSize)
	}
	if cfg.Geotab.ResultsLimit < 0 {
		return nil, domain.Errorf(domain.KindConfiguration, "config.Load",
			"GEOTAB_RESULTS_LIMIT must not be negative, got %d", cfg.Geotab.ResultsLimit)
	}
	switch cfg.WatermarkBackend {
	case WatermarkPostgres, WatermarkDynamoDB:
	default:
		return nil, domain.Errorf(domain.KindConfiguration, "config.Load",
			"unknown WATERMARK_BACKEND %q", cfg.WatermarkBackend)
	}
	return cfg, nil
}

// RequireGeotab fails with a configuration error naming every missing
// credential.
func (c *Config) RequireGeotab() error {
	var missing []string
	if c.Geotab.Username == "" {
		missing = append(missing, "GEOTAB_USERNAME")
	}
	if c.Geotab.Database == "" {
		missing = append(missing, "GEOTAB_DATABASE")
	}
	if c.Geotab.Password == "" {
		missing = append(missing, "GEOTAB_PASSWORD")
	}
	if len(missing) > 0 {
		return domain.Errorf(domain.KindConfiguration, "config",
			"missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireDatabase reports a configuration error when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return domain.Errorf(domain.KindConfiguration, "config",
			"missing required environment variable: DATABASE_URL")
	}
	return nil
}
