// Package feed provides the latest reading per unit, filling in synthetic
// readings for demo units that have no live telemetry.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Synthetic reading ranges. The sampled water level rides on the reading
// and is assessed as-is; rainfall and flow are display values only.
const (
	MaxSyntheticLevelM   = 2.5
	MaxSyntheticRainfall = 60.0
	MaxSyntheticFlow     = 40.0
)

// ReadingStore is the persistence the feed reads live telemetry from.
type ReadingStore interface {
	LatestReading(ctx context.Context, unitID string) (domain.SensorReading, error)
	LatestReadings(ctx context.Context) ([]domain.SensorReading, error)
}

// Feed answers latest-reading queries from a store and a set of demo units.
type Feed struct {
	store     ReadingStore
	demoUnits []string
	demo      map[string]bool

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Feed. rng may be nil, in which case a randomly seeded source is used.
func New(store ReadingStore, demoUnits []string, rng *rand.Rand) *Feed {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	demo := make(map[string]bool, len(demoUnits))
	units := make([]string, 0, len(demoUnits))
	for _, u := range demoUnits {
		if u == "" || demo[u] {
			continue
		}
		demo[u] = true
		units = append(units, u)
	}
	return &Feed{store: store, demoUnits: units, demo: demo, rng: rng}
}

// DemoUnits returns the configured demo unit ids.
func (f *Feed) DemoUnits() []string {
	return append([]string(nil), f.demoUnits...)
}

// LatestReading returns the unit's most recent live reading. Demo units
// without live data get a synthetic reading; other units without data
// return domain.ErrNotFound.
func (f *Feed) LatestReading(ctx context.Context, unitID string) (domain.SensorReading, error) {
	r, err := f.store.LatestReading(ctx, unitID)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, domain.ErrNotFound) && f.demo[unitID] {
		return f.SyntheticReading(unitID), nil
	}
	return domain.SensorReading{}, err
}

// LatestReadings returns one reading per known unit: live units in store
// order followed by synthetic readings for demo units lacking live data.
func (f *Feed) LatestReadings(ctx context.Context) ([]domain.SensorReading, error) {
	live, err := f.store.LatestReadings(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest readings: %w", err)
	}

	seen := make(map[string]bool, len(live))
	for _, r := range live {
		seen[r.UnitID] = true
	}
	for _, u := range f.demoUnits {
		if !seen[u] {
			live = append(live, f.SyntheticReading(u))
		}
	}
	return live, nil
}

// SyntheticReading produces a demo reading whose water level is uniform in
// [0, MaxSyntheticLevelM] metres, timestamped now.
func (f *Feed) SyntheticReading(unitID string) domain.SensorReading {
	f.mu.Lock()
	level := f.rng.Float64() * MaxSyntheticLevelM
	rainfall := f.rng.Float64() * MaxSyntheticRainfall
	flow := f.rng.Float64() * MaxSyntheticFlow
	f.mu.Unlock()

	return domain.SensorReading{
		UnitID:          unitID,
		Timestamp:       domain.Now().UTC(),
		RainfallMMPerHr: rainfall,
		DrainageLevelCM: level * 100,
		FlowRateLPS:     flow,
		SyntheticLevelM: &level,
	}
}
