package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUnit = "DRAIN_A01"

func TestParseRawEvent(t *testing.T) {
	msgTime := time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC)

	t.Run("complete payload", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_A01","timestamp":"2025-07-14T09:15:00Z","rainfall_mm_hr":50,"drainage_level_cm":200,"flow_rate_lps":30}`)
		r, err := ParseRawEvent(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, testUnit, r.UnitID)
		assert.Equal(t, time.Date(2025, time.July, 14, 9, 15, 0, 0, time.UTC), r.Timestamp)
		assert.Equal(t, 50.0, r.RainfallMMPerHr)
		assert.Equal(t, 200.0, r.DrainageLevelCM)
		assert.Equal(t, 30.0, r.FlowRateLPS)
	})

	t.Run("missing timestamp uses message time", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_B02","rainfall_mm_hr":0,"drainage_level_cm":0,"flow_rate_lps":0}`)
		r, err := ParseRawEvent(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, msgTime, r.Timestamp)
		assert.Equal(t, 0.0, r.RainfallMMPerHr)
	})

	t.Run("missing field", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_A01","timestamp":"2025-07-14T09:15:00Z","rainfall_mm_hr":50,"flow_rate_lps":30}`)
		_, err := ParseRawEvent(RawEvent{Value: data})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidReading)
		assert.Contains(t, err.Error(), "DrainageLevelCM")
	})

	t.Run("non-numeric field", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_A01","timestamp":"2025-07-14T09:15:00Z","rainfall_mm_hr":"heavy","drainage_level_cm":200,"flow_rate_lps":30}`)
		_, err := ParseRawEvent(RawEvent{Value: data})

		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("negative field", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_A01","timestamp":"2025-07-14T09:15:00Z","rainfall_mm_hr":-5,"drainage_level_cm":200,"flow_rate_lps":30}`)
		_, err := ParseRawEvent(RawEvent{Value: data})

		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("missing unit id", func(t *testing.T) {
		data := []byte(`{"unit_id":"  ","timestamp":"2025-07-14T09:15:00Z","rainfall_mm_hr":1,"drainage_level_cm":2,"flow_rate_lps":3}`)
		_, err := ParseRawEvent(RawEvent{Value: data})

		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte("{invalid json")})

		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		data := []byte(`{"unit_id":"DRAIN_A01","timestamp":"yesterday","rainfall_mm_hr":1,"drainage_level_cm":2,"flow_rate_lps":3}`)
		_, err := ParseRawEvent(RawEvent{Value: data})

		assert.ErrorIs(t, err, ErrInvalidReading)
	})
}

func TestParseCSVFields(t *testing.T) {
	rec := ParseCSVFields("DRAIN_C03", "2025-07-14 09:15:00", "12.5", "80", "4")
	r, err := ParseRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "DRAIN_C03", r.UnitID)
	assert.Equal(t, time.Date(2025, time.July, 14, 9, 15, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, 12.5, r.RainfallMMPerHr)

	for name, rec := range map[string]RawReadingRecord{
		"empty":       ParseCSVFields("DRAIN_C03", "2025-07-14 09:15:00", "", "80", "4"),
		"non-numeric": ParseCSVFields("DRAIN_C03", "2025-07-14 09:15:00", "12.5", "n/a", "4"),
		"NaN":         ParseCSVFields("DRAIN_C03", "2025-07-14 09:15:00", "12.5", "80", "NaN"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecord(rec)
			assert.ErrorIs(t, err, ErrInvalidReading)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-07-14T09:15:00Z", time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)},
		{"2025-07-14T14:45:00+05:30", time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)},
		{"2025-07-14 09:15:00", time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)},
		{"2025-07-14 09:15", time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTimestamp("")
	assert.Error(t, err)
}

func TestNormalize_DrainageConversion(t *testing.T) {
	// The regressor was trained on metres; this mapping must not drift.
	fv, err := Normalize(SensorReading{
		UnitID:          testUnit,
		RainfallMMPerHr: 10,
		DrainageLevelCM: 150,
		FlowRateLPS:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, fv.DrainageLevelM)
	assert.Equal(t, 10.0, fv.RainfallMMPerHr)
	assert.Equal(t, 5.0, fv.FlowRateLPS)
}

func TestNormalize_Invalid(t *testing.T) {
	base := SensorReading{UnitID: testUnit, RainfallMMPerHr: 10, DrainageLevelCM: 150, FlowRateLPS: 5}

	tests := []struct {
		name   string
		mutate func(r *SensorReading)
	}{
		{"negative rainfall", func(r *SensorReading) { r.RainfallMMPerHr = -5 }},
		{"negative drainage", func(r *SensorReading) { r.DrainageLevelCM = -0.1 }},
		{"negative flow", func(r *SensorReading) { r.FlowRateLPS = -1 }},
		{"NaN rainfall", func(r *SensorReading) { r.RainfallMMPerHr = math.NaN() }},
		{"infinite flow", func(r *SensorReading) { r.FlowRateLPS = math.Inf(1) }},
		{"empty unit", func(r *SensorReading) { r.UnitID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			_, err := Normalize(r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidReading))
		})
	}
}

func TestNormalize_ZeroValuesAllowed(t *testing.T) {
	fv, err := Normalize(SensorReading{UnitID: testUnit})
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{}, fv)
}
