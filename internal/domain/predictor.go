package domain

import (
	"context"
	"fmt"
	"math"
)

// Predictor scores a feature vector, returning a water level in metres.
// Implementations wrap scoring failures with ErrPrediction.
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (float64, error)
}

// LinearModel is a linear regressor over the normalized features. The
// reference coefficients match the target the training job simulates when
// no measured water level is available.
type LinearModel struct {
	Intercept    float64
	RainfallCoef float64
	DrainageCoef float64
	FlowRateCoef float64
}

// ReferenceModel is used when no trained model is configured.
var ReferenceModel = LinearModel{
	RainfallCoef: 0.05,
	DrainageCoef: 0.8,
	FlowRateCoef: 0.002,
}

// Predict implements Predictor.
func (m LinearModel) Predict(_ context.Context, f FeatureVector) (float64, error) {
	level := m.Intercept +
		m.RainfallCoef*f.RainfallMMPerHr +
		m.DrainageCoef*f.DrainageLevelM +
		m.FlowRateCoef*f.FlowRateLPS
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return 0, fmt.Errorf("%w: non-finite level", ErrPrediction)
	}
	return level, nil
}
