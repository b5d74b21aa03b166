package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// --- mock store ---

type mockStore struct {
	readings map[string]domain.SensorReading
	order    []string
	err      error
}

func newMockStore(readings ...domain.SensorReading) *mockStore {
	s := &mockStore{readings: make(map[string]domain.SensorReading)}
	for _, r := range readings {
		s.readings[r.UnitID] = r
		s.order = append(s.order, r.UnitID)
	}
	return s
}

func (s *mockStore) LatestReading(_ context.Context, unitID string) (domain.SensorReading, error) {
	if s.err != nil {
		return domain.SensorReading{}, s.err
	}
	r, ok := s.readings[unitID]
	if !ok {
		return domain.SensorReading{}, fmt.Errorf("%w: %s", domain.ErrNotFound, unitID)
	}
	return r, nil
}

func (s *mockStore) LatestReadings(_ context.Context) ([]domain.SensorReading, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.SensorReading, 0, len(s.order))
	for _, u := range s.order {
		out = append(out, s.readings[u])
	}
	return out, nil
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

var liveA01 = domain.SensorReading{
	UnitID:          "DRAIN_A01",
	Timestamp:       time.Date(2025, time.July, 14, 9, 15, 0, 0, time.UTC),
	RainfallMMPerHr: 50,
	DrainageLevelCM: 200,
	FlowRateLPS:     30,
}

func TestLatestReading_Live(t *testing.T) {
	f := New(newMockStore(liveA01), []string{"DELHI_01"}, seeded())

	r, err := f.LatestReading(context.Background(), "DRAIN_A01")
	require.NoError(t, err)
	assert.Equal(t, liveA01, r)
}

func TestLatestReading_DemoFallback(t *testing.T) {
	f := New(newMockStore(), []string{"DELHI_01"}, seeded())

	r, err := f.LatestReading(context.Background(), "DELHI_01")
	require.NoError(t, err)
	assert.Equal(t, "DELHI_01", r.UnitID)
}

func TestLatestReading_LiveDataWinsForDemoUnit(t *testing.T) {
	live := liveA01
	live.UnitID = "DELHI_01"
	f := New(newMockStore(live), []string{"DELHI_01"}, seeded())

	r, err := f.LatestReading(context.Background(), "DELHI_01")
	require.NoError(t, err)
	assert.Equal(t, live, r)
}

func TestLatestReading_NotFound(t *testing.T) {
	f := New(newMockStore(), []string{"DELHI_01"}, seeded())

	_, err := f.LatestReading(context.Background(), "GHOST_99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLatestReading_StoreErrorNotMasked(t *testing.T) {
	s := newMockStore()
	s.err = errors.New("database is locked")
	f := New(s, []string{"DELHI_01"}, seeded())

	_, err := f.LatestReading(context.Background(), "DELHI_01")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestLatestReadings_LiveThenDemo(t *testing.T) {
	live := liveA01
	live.UnitID = "BLR_01"
	f := New(newMockStore(liveA01, live), []string{"DELHI_01", "BLR_01", "KOL_01", "DELHI_01"}, seeded())

	got, err := f.LatestReadings(context.Background())
	require.NoError(t, err)

	units := make([]string, 0, len(got))
	for _, r := range got {
		units = append(units, r.UnitID)
	}
	assert.Equal(t, []string{"DRAIN_A01", "BLR_01", "DELHI_01", "KOL_01"}, units)
	assert.Equal(t, []string{"DELHI_01", "BLR_01", "KOL_01"}, f.DemoUnits())
}

func TestLatestReadings_StoreError(t *testing.T) {
	s := newMockStore()
	s.err = errors.New("connection reset")
	f := New(s, nil, seeded())

	_, err := f.LatestReadings(context.Background())
	assert.Error(t, err)
}

func TestSyntheticReading_Ranges(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, time.July, 14, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	f := New(newMockStore(), nil, seeded())
	for range 500 {
		r := f.SyntheticReading("KOL_01")

		assert.Equal(t, fake.Now(), r.Timestamp)
		fv, err := domain.Normalize(r)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fv.DrainageLevelM, 0.0)
		assert.LessOrEqual(t, fv.DrainageLevelM, MaxSyntheticLevelM)
		require.NotNil(t, r.SyntheticLevelM)
		assert.InDelta(t, fv.DrainageLevelM, *r.SyntheticLevelM, 1e-9)
		assert.Less(t, r.RainfallMMPerHr, MaxSyntheticRainfall)
		assert.Less(t, r.FlowRateLPS, MaxSyntheticFlow)
	}
}

func TestSyntheticReading_Reproducible(t *testing.T) {
	a := New(newMockStore(), nil, seeded()).SyntheticReading("CHN_01")
	b := New(newMockStore(), nil, seeded()).SyntheticReading("CHN_01")

	assert.Equal(t, a.DrainageLevelCM, b.DrainageLevelCM)
	assert.Equal(t, a.RainfallMMPerHr, b.RainfallMMPerHr)
	assert.Equal(t, a.FlowRateLPS, b.FlowRateLPS)
	assert.Equal(t, *a.SyntheticLevelM, *b.SyntheticLevelM)
}
