package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// drainageCMPerM is the fixed drainage unit conversion shared with model training.
const drainageCMPerM = 100.0

var validate = validator.New(validator.WithRequiredStructEnabled())

// timestampLayouts are accepted in payloads and CSV exports, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseRawEvent deserializes a RawEvent's value into a SensorReading.
// When the payload has no timestamp the message timestamp is used.
func ParseRawEvent(raw RawEvent) (SensorReading, error) {
	var rec RawReadingRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return SensorReading{}, fmt.Errorf("%w: parse payload: %w", ErrInvalidReading, err)
	}
	if rec.Timestamp == "" && !raw.Timestamp.IsZero() {
		rec.Timestamp = raw.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return ParseRecord(rec)
}

// ParseRecord validates a raw record and converts it to a SensorReading.
func ParseRecord(rec RawReadingRecord) (SensorReading, error) {
	rec.UnitID = strings.TrimSpace(rec.UnitID)
	if err := validate.Struct(rec); err != nil {
		return SensorReading{}, fmt.Errorf("%w: %s", ErrInvalidReading, describeValidation(err))
	}

	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return SensorReading{}, fmt.Errorf("%w: unit %s: %w", ErrInvalidReading, rec.UnitID, err)
	}

	return SensorReading{
		UnitID:          rec.UnitID,
		Timestamp:       ts,
		RainfallMMPerHr: *rec.RainfallMMPerHr,
		DrainageLevelCM: *rec.DrainageLevelCM,
		FlowRateLPS:     *rec.FlowRateLPS,
	}, nil
}

// ParseCSVFields builds a record from string columns as found in the sensor CSV export.
// Empty or non-numeric values are left nil so ParseRecord rejects them.
func ParseCSVFields(unitID, timestamp, rainfall, drainage, flow string) RawReadingRecord {
	return RawReadingRecord{
		UnitID:          unitID,
		Timestamp:       timestamp,
		RainfallMMPerHr: parseFloatOrNil(rainfall),
		DrainageLevelCM: parseFloatOrNil(drainage),
		FlowRateLPS:     parseFloatOrNil(flow),
	}
}

// ParseTimestamp accepts RFC 3339 and the space-separated layout of the CSV export.
// Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Normalize converts a reading into the feature vector the regressor expects.
// It fails with ErrInvalidReading on an empty unit id or a negative or non-finite value.
func Normalize(r SensorReading) (FeatureVector, error) {
	if err := validate.Struct(r); err != nil {
		return FeatureVector{}, fmt.Errorf("%w: %s", ErrInvalidReading, describeValidation(err))
	}
	for name, v := range map[string]float64{
		"rainfall_mm_hr":    r.RainfallMMPerHr,
		"drainage_level_cm": r.DrainageLevelCM,
		"flow_rate_lps":     r.FlowRateLPS,
	} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return FeatureVector{}, fmt.Errorf("%w: %s is not finite", ErrInvalidReading, name)
		}
	}

	return FeatureVector{
		RainfallMMPerHr: r.RainfallMMPerHr,
		DrainageLevelM:  r.DrainageLevelCM / drainageCMPerM,
		FlowRateLPS:     r.FlowRateLPS,
	}, nil
}

// describeValidation flattens validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// parseFloatOrNil parses a string as float64, returning nil when empty or invalid.
func parseFloatOrNil(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}
