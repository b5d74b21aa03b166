package domain

// Risk band thresholds in metres of predicted water level.
const (
	DangerThresholdM  = 1.8
	WarningThresholdM = 0.9
)

// Classify maps a predicted water level to a risk state. Boundary values
// belong to the lower band: exactly 1.8 is warning, exactly 0.9 is safe.
func Classify(levelM float64) RiskState {
	switch {
	case levelM > DangerThresholdM:
		return RiskDanger
	case levelM > WarningThresholdM:
		return RiskWarning
	default:
		return RiskSafe
	}
}
