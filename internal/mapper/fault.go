package mapper

import "github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"

// MapFaultRecord flattens a FaultData record into a fault_data row. It never
// fails: missing or malformed nested objects produce nil columns.
func MapFaultRecord(raw domain.Record) domain.FaultRow {
	row := domain.FaultRow{
		DeviceID:     nestedID(raw, "device"),
		Code:         nestedID(raw, "diagnostic"),
		ControllerID: nestedID(raw, "controller"),
		OccurredAt:   stringPtr(raw["dateTime"]),
		Description:  stringPtr(raw["description"]),
		Source:       nil,
	}
	if id, ok := raw["id"].(string); ok {
		row.ID = id
	}

	// faultStates wins whenever it is an object, even without effectiveStatus.
	if states, ok := raw["faultStates"].(map[string]any); ok {
		row.Severity = stringPtr(states["effectiveStatus"])
	} else {
		row.Severity = stringPtr(raw["faultState"])
	}

	state, _ := raw["faultState"].(string)
	row.IsActive = state == "Active"

	return row
}
