package alert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const messageTimeLayout = "2006-01-02 15:04:05"

// FormatMessage builds the alert body for a dangerous assessment.
func FormatMessage(r domain.SensorReading, a domain.RiskAssessment) string {
	return fmt.Sprintf("⚠️ FLOOD ALERT: %s\nWater level (predicted): %.2f m\nRainfall: %s mm/hr\nFlow rate: %s lps\nTime: %s",
		a.UnitID,
		a.PredictedWaterLevelM,
		formatValue(r.RainfallMMPerHr),
		formatValue(r.FlowRateLPS),
		r.Timestamp.UTC().Format(messageTimeLayout),
	)
}

// FormatNoDataMessage builds the operator alert sent for a unit without readings.
func FormatNoDataMessage(unitID string) string {
	return fmt.Sprintf("⚠️ ALERT: High flood risk reported at %s (no historical row found). Please check the dashboard.", unitID)
}

// formatValue prints the shortest exact decimal, keeping one fractional
// digit on whole numbers ("50.0", "12.34").
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
