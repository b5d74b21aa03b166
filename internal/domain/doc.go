// Package domain models flood-risk telemetry and the pure rules that turn a
// sensor reading into a risk assessment and an advisory.
//
// # Data Source
//
// Each monitored unit (a drain, culvert or street-level gauge) reports three
// measurements. Readings arrive either from the sensor CSV export loaded by
// cmd/seed or as flat JSON on the Kafka source topic:
//
//	{"unit_id":"DRAIN_A01","timestamp":"2025-07-14T09:30:00Z",
//	 "rainfall_mm_hr":50,"drainage_level_cm":200,"flow_rate_lps":30}
//
// # Units
//
//	rainfall_mm_hr     millimetres of rain per hour, as reported
//	drainage_level_cm  drain fill level in centimetres, as reported
//	flow_rate_lps      drain flow in litres per second, as reported
//
// The regressor was trained on drainage level in metres. [Normalize] performs
// the cm -> m conversion (divide by 100) and is the only place it happens. A
// model trained with a different conversion still produces numbers, just wrong
// ones, so tests pin the exact mapping.
//
// # Risk States
//
// The predicted water level (metres) maps to three states with fixed bands:
//
//	level > 1.8         danger
//	0.9 < level <= 1.8  warning
//	level <= 0.9        safe
//
// A boundary value belongs to the lower band. See [Classify].
//
// # Advisories
//
// Advisories are graded on the continuous level, not the three states, so the
// warning band splits in two at 1.2 m. See [Advise] and [CanonicalAdvisoryThresholds].
package domain
