package domain

import "fmt"

// AdvisoryThresholds are the level cut-offs (metres) for graded mitigation advice.
type AdvisoryThresholds struct {
	Monitor  float64 // above: monitor water levels
	Prepare  float64 // above: prepare pumps, diversion and rerouting
	Activate float64 // above: activate pumps, open diversion, reroute traffic
}

// CanonicalAdvisoryThresholds is the four-tier level-only scheme. The
// activate and monitor cut-offs coincide with the risk bands so danger always
// activates pumps and safe never asks for action.
var CanonicalAdvisoryThresholds = AdvisoryThresholds{
	Monitor:  WarningThresholdM,
	Prepare:  1.2,
	Activate: DangerThresholdM,
}

// NoDataAdvisory is returned for units without a reading.
var NoDataAdvisory = []string{"No data available"}

// Advise returns the ordered mitigation actions for a predicted level at a
// location, most severe action first. rainfall is accepted for rules layered
// on top of the level bands; the canonical scheme ignores it.
func Advise(levelM, rainfall float64, location string) []string {
	return CanonicalAdvisoryThresholds.Advise(levelM, rainfall, location)
}

// Advise applies the thresholds. The result is recomputed on every call.
func (t AdvisoryThresholds) Advise(levelM, _ float64, location string) []string {
	switch {
	case levelM > t.Activate:
		return []string{
			fmt.Sprintf("Activate pumps at %s.", location),
			fmt.Sprintf("Open diversion channels near %s.", location),
			fmt.Sprintf("Reroute traffic away from %s via safe routes.", location),
		}
	case levelM > t.Prepare:
		return []string{
			fmt.Sprintf("Prepare pumps at %s.", location),
			fmt.Sprintf("Consider opening diversion channels near %s.", location),
			fmt.Sprintf("Monitor traffic near %s and prepare rerouting if needed.", location),
		}
	case levelM > t.Monitor:
		return []string{fmt.Sprintf("Monitor water levels at %s.", location)}
	default:
		return []string{fmt.Sprintf("No immediate action required at %s.", location)}
	}
}
