package mapper

import "github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"

func recordID(raw domain.Record) string {
	id, _ := raw["id"].(string)
	return id
}

// MapDevice flattens a Device record into a devices row
func MapDevice(raw domain.Record) domain.DeviceRow {
	return domain.DeviceRow{
		ID:           recordID(raw),
		Name:         nonEmpty(raw["name"]),
		SerialNumber: nonEmpty(raw["serialNumber"]),
		DeviceType:   refOrString(raw["deviceType"]),
		LicensePlate: nonEmpty(raw["licensePlate"]),
		VIN:          nonEmpty(raw["vehicleIdentificationNumber"]),
		ActiveFrom:   nonEmpty(raw["activeFrom"]),
		ActiveTo:     nonEmpty(raw["activeTo"]),
		IsActive:     boolPtr(raw["isActiveTrackingEnabled"]),
		TimeZone:     nonEmpty(raw["timeZoneId"]),
		SpeedingOn:   floatPtr(raw["speedingOn"]),
		SpeedingOff:  floatPtr(raw["speedingOff"]),
		EngineType:   refOrString(raw["engineType"]),
		Raw:          rawJSON(map[string]any(raw)),
	}
}

// MapUser flattens a User record into a users row
func MapUser(raw domain.Record) domain.UserRow {
	return domain.UserRow{
		ID:        recordID(raw),
		Name:      nonEmpty(raw["name"]),
		FirstName: nonEmpty(raw["firstName"]),
		LastName:  nonEmpty(raw["lastName"]),
		Email:     nonEmpty(raw["email"]),
		IsActive:  isTrue(raw["active"]),
		Raw:       rawJSON(map[string]any(raw)),
	}
}

// MapZone flattens a Zone record into a zones row
func MapZone(raw domain.Record) domain.ZoneRow {
	return domain.ZoneRow{
		ID:       recordID(raw),
		Name:     nonEmpty(raw["name"]),
		ZoneType: refOrString(raw["zoneTypeId"]),
		Color:    text(raw["color"]),
		Active:   isTrue(raw["active"]),
		Raw:      rawJSON(map[string]any(raw)),
	}
}

// MapRule flattens a Rule record into a rules row
func MapRule(raw domain.Record) domain.RuleRow {
	return domain.RuleRow{
		ID:          recordID(raw),
		Name:        nonEmpty(raw["name"]),
		Description: nonEmpty(raw["comment"]),
		IsActive:    isTrue(raw["active"]),
		RuleType:    refOrString(raw["ruleTypeId"]),
		Raw:         rawJSON(map[string]any(raw)),
	}
}

// MapTrip flattens a Trip. Duration fields accept both the API names
// (idlingDuration, drivingDuration) and the short aliases.
func MapTrip(raw domain.Record) domain.TripRow {
	return domain.TripRow{
		ID:                recordID(raw),
		DeviceID:          nestedID(raw, "device"),
		DriverID:          nestedID(raw, "driver"),
		StartTime:         nonEmpty(raw["start"]),
		EndTime:           nonEmpty(raw["stop"]),
		DistanceKm:        floatPtr(raw["distance"]),
		TopSpeedKph:       floatPtr(raw["maximumSpeed"]),
		IdleTimeSeconds:   ParseDuration(first(raw, "idlingDuration", "idleDuration")),
		MovingTimeSeconds: ParseDuration(first(raw, "drivingDuration", "driveDuration")),
		StopTimeSeconds:   ParseDuration(raw["stopDuration"]),
		StartLocation:     rawJSON(raw["startPosition"]),
		EndLocation:       rawJSON(first(raw, "stopPosition", "stopPoint")),
		Raw:               rawJSON(map[string]any(raw)),
	}
}
