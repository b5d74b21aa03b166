package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlace attempts to attach a place name to an assessment.
// If geocoder is nil or geocoding fails, the assessment is returned with
// GeoSource set accordingly (graceful degradation).
func EnrichWithPlace(ctx context.Context, a RiskAssessment, geocoder Geocoder, logger *slog.Logger) RiskAssessment {
	if geocoder == nil {
		return a
	}

	if a.Location.Lat == 0 && a.Location.Lon == 0 {
		a.GeoSource = "original"
		return a
	}

	result, err := geocoder.ReverseGeocode(ctx, a.Location.Lat, a.Location.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"unit_id", a.UnitID,
			"lat", a.Location.Lat,
			"lon", a.Location.Lon,
			"error", err,
		)
		a.GeoSource = "failed"
		return a
	}
	if result.FormattedAddress == "" {
		a.GeoSource = "original"
		return a
	}

	a.PlaceName = result.PlaceName
	if a.PlaceName == "" {
		a.PlaceName = result.FormattedAddress
	}
	a.GeoSource = "reverse"
	return a
}
