package mapper

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// nestedID returns raw[key].id when raw[key] is an object carrying a string
// id, and nil otherwise.
func nestedID(raw domain.Record, key string) *string {
	obj, ok := raw[key].(map[string]any)
	if !ok {
		return nil
	}
	return stringPtr(obj["id"])
}

// stringPtr returns v as a string pointer when v is a string.
func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// nonEmpty is stringPtr that also drops empty strings.
func nonEmpty(v any) *string {
	p := stringPtr(v)
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// refOrString accepts either a plain string or a {"id": ...} reference.
func refOrString(v any) *string {
	if obj, ok := v.(map[string]any); ok {
		return stringPtr(obj["id"])
	}
	return nonEmpty(v)
}

// text renders scalars as-is and objects or arrays as JSON.
func text(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return nonEmpty(t)
	case json.Number:
		s := t.String()
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s := string(b)
		return &s
	}
}

func floatPtr(v any) *float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return &f
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	default:
		return nil
	}
}

func boolPtr(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// rawJSON encodes v for a JSONB column. Nil and unencodable values map to nil.
func rawJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func first(raw domain.Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses a Geotab timestamp. Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EventTime parses raw[field] as a timestamp.
func EventTime(raw domain.Record, field string) (time.Time, bool) {
	s, ok := raw[field].(string)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(s)
}

// MaxEventTime is the latest parseable raw[field] across records. Records
// without a usable timestamp are ignored; ok is false when none had one.
func MaxEventTime(records []domain.Record, field string) (latest time.Time, ok bool) {
	for _, r := range records {
		t, valid := EventTime(r, field)
		if !valid {
			continue
		}
		if !ok || t.After(latest) {
			latest, ok = t, true
		}
	}
	return latest, ok
}

// ParseDuration converts a Geotab TimeSpan ("[d.]hh:mm:ss[.fffffff]") to whole
// seconds, rounding fractions. It returns nil for anything else.
func ParseDuration(v any) *int64 {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil
	}

	var days int64
	hourPart := parts[0]
	if i := strings.IndexByte(hourPart, '.'); i >= 0 {
		d, err := strconv.ParseInt(hourPart[:i], 10, 64)
		if err != nil {
			return nil
		}
		days, hourPart = d, hourPart[i+1:]
	}
	hours, err := strconv.ParseInt(hourPart, 10, 64)
	if err != nil {
		return nil
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil
	}

	total := days*86400 + hours*3600 + minutes*60 + int64(seconds+0.5)
	return &total
}
