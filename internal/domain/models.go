package domain

import (
	"encoding/json"
	"time"
)

// Geotab entity type names as accepted by the API's typeName parameter.
const (
	EntityDevice    = "Device"
	EntityTrip      = "Trip"
	EntityUser      = "User"
	EntityZone      = "Zone"
	EntityRule      = "Rule"
	EntityFaultData = "FaultData"
)

// Watermark sources, one sync_state row each.
const (
	SourceFaultData = "fault_data"
	SourceTrip      = "trip"
)

// ExportEntityTypes are the entity types written by the bulk export. LogRecord
// and StatusData are left out on purpose: they run to millions of records.
var ExportEntityTypes = []string{
	EntityDevice,
	EntityTrip,
	EntityUser,
	EntityZone,
	EntityRule,
	EntityFaultData,
}

// Watermark is one sync_state row.
type Watermark struct {
	Source        string    `db:"source" json:"source"`
	LastTimestamp time.Time `db:"last_timestamp" json:"last_timestamp"`
}

// FaultRow is the flat fault_data row. Nullable columns are pointers.
type FaultRow struct {
	ID           string  `db:"id" json:"id"`
	DeviceID     *string `db:"device_id" json:"device_id"`
	OccurredAt   *string `db:"occurred_at" json:"occurred_at"`
	Code         *string `db:"code" json:"code"`
	Source       *string `db:"source" json:"source"`
	Description  *string `db:"description" json:"description"`
	Severity     *string `db:"severity" json:"severity"`
	ControllerID *string `db:"controller_id" json:"controller_id"`
	IsActive     bool    `db:"is_active" json:"is_active"`
}

// DeviceRow is the flat devices row.
type DeviceRow struct {
	ID           string          `db:"id"`
	Name         *string         `db:"name"`
	SerialNumber *string         `db:"serial_number"`
	DeviceType   *string         `db:"device_type"`
	LicensePlate *string         `db:"license_plate"`
	VIN          *string         `db:"vin"`
	ActiveFrom   *string         `db:"active_from"`
	ActiveTo     *string         `db:"active_to"`
	IsActive     *bool           `db:"is_active"`
	TimeZone     *string         `db:"time_zone"`
	SpeedingOn   *float64        `db:"speeding_on"`
	SpeedingOff  *float64        `db:"speeding_off"`
	EngineType   *string         `db:"engine_type"`
	Raw          json.RawMessage `db:"raw"`
}

// UserRow is the flat users row.
type UserRow struct {
	ID        string          `db:"id"`
	Name      *string         `db:"name"`
	FirstName *string         `db:"first_name"`
	LastName  *string         `db:"last_name"`
	Email     *string         `db:"email"`
	IsActive  bool            `db:"is_active"`
	Raw       json.RawMessage `db:"raw"`
}

// ZoneRow is the flat zones row.
type ZoneRow struct {
	ID       string          `db:"id"`
	Name     *string         `db:"name"`
	ZoneType *string         `db:"zone_type"`
	Color    *string         `db:"color"`
	Active   bool            `db:"active"`
	Raw      json.RawMessage `db:"raw"`
}

// RuleRow is the flat rules row.
type RuleRow struct {
	ID          string          `db:"id"`
	Name        *string         `db:"name"`
	Description *string         `db:"description"`
	IsActive    bool            `db:"is_active"`
	RuleType    *string         `db:"rule_type"`
	Raw         json.RawMessage `db:"raw"`
}

// TripRow is the flat trips row.
type TripRow struct {
	ID                string          `db:"id"`
	DeviceID          *string         `db:"device_id"`
	DriverID          *string         `db:"driver_id"`
	StartTime         *string         `db:"start_time"`
	EndTime           *string         `db:"end_time"`
	DistanceKm        *float64        `db:"distance_km"`
	TopSpeedKph       *float64        `db:"top_speed_kph"`
	IdleTimeSeconds   *int64          `db:"idle_time_seconds"`
	MovingTimeSeconds *int64          `db:"moving_time_seconds"`
	StopTimeSeconds   *int64          `db:"stop_time_seconds"`
	StartLocation     json.RawMessage `db:"start_location"`
	EndLocation       json.RawMessage `db:"end_location"`
	Raw               json.RawMessage `db:"raw"`
}

// SyncResult describes one incremental sync run.
type SyncResult struct {
	RunID      string     `json:"run_id"`
	Source     string     `json:"source"`
	State      SyncState  `json:"state"`
	Fetched    int        `json:"fetched"`
	Inserted   int        `json:"inserted"`
	Batches    int        `json:"batches,omitempty"`
	From       time.Time  `json:"from_date"`
	To         *time.Time `json:"to_date,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

// EntityResult counts the rows upserted for one full-refresh entity type.
type EntityResult struct {
	EntityType string `json:"entity_type"`
	Processed  int    `json:"processed"`
}

// FullSyncResult is the outcome of syncing every entity type in one run.
type FullSyncResult struct {
	RunID      string         `json:"run_id"`
	Faults     *SyncResult    `json:"fault_result"`
	Trips      *SyncResult    `json:"trip_result"`
	Entities   []EntityResult `json:"entity_results"`
	DurationMS int64          `json:"duration_ms"`
}

// ExportSummary tallies a bulk export across entity types.
type ExportSummary struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Files      []string `json:"files"`
	Directory  string   `json:"directory"`
}

// RunLog is one etl_logs row.
type RunLog struct {
	RunID            string          `db:"run_id"`
	Status           string          `db:"status"`
	RecordsInserted  int             `db:"records_inserted"`
	DevicesProcessed int             `db:"device_records_processed"`
	FromDate         *time.Time      `db:"from_date"`
	ToDate           *time.Time      `db:"to_date"`
	DurationMS       int64           `db:"duration_ms"`
	ErrorMessage     *string         `db:"error_message"`
	Raw              json.RawMessage `db:"raw_log"`
}

// Record is one loosely-typed entity as decoded from the Geotab API. Numbers
// are json.Number.
type Record map[string]any
