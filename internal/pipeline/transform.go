package pipeline

import (
	"context"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// ReadingStore persists sensor readings.
type ReadingStore interface {
	SaveReadings(ctx context.Context, readings []domain.SensorReading) error
}

// ReadingTransformer implements Transformer with domain.ParseRawEvent.
type ReadingTransformer struct{}

// NewTransformer creates a ReadingTransformer.
func NewTransformer() *ReadingTransformer {
	return &ReadingTransformer{}
}

// Transform implements Transformer.
func (ReadingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.SensorReading, error) {
	r, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.SensorReading{}, err
	}
	// Reject values the evaluator could not score.
	if _, err := domain.Normalize(r); err != nil {
		return domain.SensorReading{}, err
	}
	return r, nil
}

// StoreLoader implements BatchLoader on top of a ReadingStore.
type StoreLoader struct {
	store ReadingStore
}

// NewStoreLoader adapts a ReadingStore to BatchLoader.
func NewStoreLoader(store ReadingStore) *StoreLoader {
	return &StoreLoader{store: store}
}

// LoadBatch implements BatchLoader.
func (l *StoreLoader) LoadBatch(ctx context.Context, readings []domain.SensorReading) error {
	return l.store.SaveReadings(ctx, readings)
}
