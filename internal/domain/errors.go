package domain

import "errors"

var (
	// ErrInvalidReading marks a reading with a missing, non-numeric or negative field.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrPrediction marks a model that could not score a feature vector.
	ErrPrediction = errors.New("prediction failed")

	// ErrDispatchFailed marks a notification the transport did not accept.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrNotFound marks a unit with no reading.
	ErrNotFound = errors.New("no reading for unit")
)
