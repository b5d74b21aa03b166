package domain

import (
	"context"
	"time"
)

// RawReadingRecord is the flat JSON payload published by sensor gateways.
// Numeric fields are pointers so a missing field is distinguishable from zero.
type RawReadingRecord struct {
	UnitID          string   `json:"unit_id" validate:"required"`
	Timestamp       string   `json:"timestamp"`
	RainfallMMPerHr *float64 `json:"rainfall_mm_hr" validate:"required,gte=0"`
	DrainageLevelCM *float64 `json:"drainage_level_cm" validate:"required,gte=0"`
	FlowRateLPS     *float64 `json:"flow_rate_lps" validate:"required,gte=0"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// SensorReading is one measurement from a unit. Values are never mutated after parsing.
type SensorReading struct {
	UnitID          string    `json:"unit_id" db:"unit_id" validate:"required"`
	Timestamp       time.Time `json:"timestamp" db:"recorded_at"`
	RainfallMMPerHr float64   `json:"rainfall_mm_hr" db:"rainfall_mm_hr" validate:"gte=0"`
	DrainageLevelCM float64   `json:"drainage_level_cm" db:"drainage_level_cm" validate:"gte=0"`
	FlowRateLPS     float64   `json:"flow_rate_lps" db:"flow_rate_lps" validate:"gte=0"`

	// SyntheticLevelM is the sampled water level of a demo reading. When set,
	// assessment classifies it directly instead of running the predictor.
	SyntheticLevelM *float64 `json:"-" db:"-"`
}

// FeatureVector is the model input derived from a reading by Normalize.
type FeatureVector struct {
	RainfallMMPerHr float64
	DrainageLevelM  float64
	FlowRateLPS     float64
}

// RiskState is the discrete severity derived from a predicted water level.
type RiskState string

const (
	RiskSafe    RiskState = "safe"
	RiskWarning RiskState = "warning"
	RiskDanger  RiskState = "danger"
)

// Location represents a WGS-84 latitude/longitude coordinate pair.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// RiskAssessment is produced fresh on every evaluation and never updated in place.
type RiskAssessment struct {
	UnitID               string        `json:"unit_id"`
	PredictedWaterLevelM float64       `json:"predicted_water_level_m"`
	RiskState            RiskState     `json:"risk_state"`
	Location             Location      `json:"location"`
	Timestamp            time.Time     `json:"timestamp"`
	Reading              SensorReading `json:"reading"`

	// Place enrichment fields.
	PlaceName string `json:"place_name,omitempty"`
	GeoSource string `json:"geo_source,omitempty"` // "reverse", "original", "failed"

	AssessedAt time.Time `json:"assessed_at"`
}
