// Package evaluator runs the flood risk pipeline: reading, features,
// predicted level, risk state, advisory, and alert decision.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// Feed provides the latest reading per unit.
type Feed interface {
	LatestReading(ctx context.Context, unitID string) (domain.SensorReading, error)
	LatestReadings(ctx context.Context) ([]domain.SensorReading, error)
}

// Alerter decides and dispatches alerts.
type Alerter interface {
	Evaluate(ctx context.Context, reading domain.SensorReading, a domain.RiskAssessment) (alert.Decision, error)
	Force(ctx context.Context, reading domain.SensorReading, a domain.RiskAssessment) (alert.Decision, error)
	DispatchNoData(ctx context.Context, unitID string) (alert.Decision, error)
	Snapshot() []alert.State
}

// Publisher emits assessments and alert decisions downstream.
type Publisher interface {
	PublishAssessments(ctx context.Context, assessments []domain.RiskAssessment) error
	PublishDecisions(ctx context.Context, decisions []alert.Decision) error
}

// Options holds the optional collaborators and tuning for an Evaluator.
type Options struct {
	// Workers bounds concurrent per-unit evaluations. Values below 1 mean 1.
	Workers   int
	Geocoder  domain.Geocoder
	Publisher Publisher
}

// Evaluator wires the feed, predictor, locator and alert coordinator together.
type Evaluator struct {
	feed      Feed
	predictor domain.Predictor
	locator   domain.Locator
	alerter   Alerter
	geocoder  domain.Geocoder
	publisher Publisher
	workers   int
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates an Evaluator.
func New(feed Feed, predictor domain.Predictor, locator domain.Locator, alerter Alerter, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Evaluator{
		feed:      feed,
		predictor: predictor,
		locator:   locator,
		alerter:   alerter,
		geocoder:  opts.Geocoder,
		publisher: opts.Publisher,
		workers:   opts.Workers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Assess scores one reading. It fails with domain.ErrInvalidReading or
// domain.ErrPrediction; place enrichment failures never fail the assessment.
func (e *Evaluator) Assess(ctx context.Context, r domain.SensorReading) (domain.RiskAssessment, error) {
	features, err := domain.Normalize(r)
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	level, err := e.predict(ctx, r, features)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return domain.RiskAssessment{}, fmt.Errorf("%w: non-finite level %v", domain.ErrPrediction, level)
	}

	a := domain.RiskAssessment{
		UnitID:               r.UnitID,
		PredictedWaterLevelM: level,
		RiskState:            domain.Classify(level),
		Location:             e.locator.Locate(r.UnitID),
		Timestamp:            r.Timestamp,
		Reading:              r,
		AssessedAt:           domain.Now(),
	}
	return domain.EnrichWithPlace(ctx, a, e.geocoder, e.logger), nil
}

// predict returns the water level for a reading. Demo readings carry their
// sampled level and skip the model.
func (e *Evaluator) predict(ctx context.Context, r domain.SensorReading, features domain.FeatureVector) (float64, error) {
	if r.SyntheticLevelM != nil {
		return *r.SyntheticLevelM, nil
	}

	start := time.Now()
	level, err := e.predictor.Predict(ctx, features)
	e.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, domain.ErrPrediction) {
			err = fmt.Errorf("%w: %w", domain.ErrPrediction, err)
		}
		return 0, err
	}
	return level, nil
}

// Assessments scores the latest reading of every known unit. Units that
// fail are logged and left out; the rest keep the feed's order.
func (e *Evaluator) Assessments(ctx context.Context) ([]domain.RiskAssessment, error) {
	readings, err := e.feed.LatestReadings(ctx)
	if err != nil {
		return nil, err
	}

	results := e.evaluateAll(ctx, readings, false)
	out := make([]domain.RiskAssessment, 0, len(results))
	for _, res := range results {
		if res.err == nil {
			out = append(out, res.assessment)
		}
	}
	return out, nil
}

// Advisory returns the ordered mitigation actions for a unit's latest
// reading, or domain.NoDataAdvisory when the unit has none.
func (e *Evaluator) Advisory(ctx context.Context, unitID string) ([]string, error) {
	r, err := e.feed.LatestReading(ctx, unitID)
	if errors.Is(err, domain.ErrNotFound) {
		return append([]string(nil), domain.NoDataAdvisory...), nil
	}
	if err != nil {
		return nil, err
	}

	a, err := e.Assess(ctx, r)
	if err != nil {
		e.logger.Warn("advisory assessment failed", "unit_id", unitID, "error", err)
		return nil, err
	}
	return domain.Advise(a.PredictedWaterLevelM, r.RainfallMMPerHr, unitID), nil
}

// TriggerAlert dispatches an operator-requested alert for a unit. Units
// without a reading get the generic no-data alert.
func (e *Evaluator) TriggerAlert(ctx context.Context, unitID string) (alert.Decision, error) {
	r, err := e.feed.LatestReading(ctx, unitID)
	if errors.Is(err, domain.ErrNotFound) {
		d, err := e.alerter.DispatchNoData(ctx, unitID)
		e.publishDecisions(ctx, []alert.Decision{d})
		return d, err
	}
	if err != nil {
		return alert.Decision{}, err
	}

	a, err := e.Assess(ctx, r)
	if err != nil {
		e.logger.Warn("operator alert assessment failed", "unit_id", unitID, "error", err)
		return alert.Decision{}, err
	}

	d, err := e.alerter.Force(ctx, r, a)
	e.publishDecisions(ctx, []alert.Decision{d})
	return d, err
}

// AlertStates returns the coordinator's per-unit alert memory.
func (e *Evaluator) AlertStates() []alert.State {
	return e.alerter.Snapshot()
}

// CheckReadiness returns nil once an evaluation cycle has completed.
func (e *Evaluator) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no evaluation cycle has completed yet")
	}
	return nil
}

// unitResult is the outcome of evaluating one reading.
type unitResult struct {
	reading    domain.SensorReading
	assessment domain.RiskAssessment
	decision   *alert.Decision
	err        error
	alertErr   error
}

// evaluateAll scores readings on a bounded worker pool, optionally driving
// the alert coordinator. results[i] belongs to readings[i].
func (e *Evaluator) evaluateAll(ctx context.Context, readings []domain.SensorReading, withAlerts bool) []unitResult {
	results := make([]unitResult, len(readings))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, r := range readings {
		g.Go(func() error {
			results[i] = e.evaluateUnit(ctx, r, withAlerts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Evaluator) evaluateUnit(ctx context.Context, r domain.SensorReading, withAlerts bool) unitResult {
	res := unitResult{reading: r}

	a, err := e.Assess(ctx, r)
	if err != nil {
		res.err = err
		e.metrics.Evaluations.WithLabelValues(failureOutcome(err)).Inc()
		e.logger.Warn("unit evaluation failed, skipping", "unit_id", r.UnitID, "error", err)
		return res
	}
	res.assessment = a
	e.metrics.Evaluations.WithLabelValues("ok").Inc()

	if withAlerts {
		d, err := e.alerter.Evaluate(ctx, r, a)
		res.decision = &d
		res.alertErr = err
	}
	return res
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidReading):
		return "invalid_reading"
	case errors.Is(err, domain.ErrPrediction):
		return "prediction_error"
	default:
		return "error"
	}
}

func (e *Evaluator) publishDecisions(ctx context.Context, decisions []alert.Decision) {
	if e.publisher == nil || len(decisions) == 0 {
		return
	}
	if err := e.publisher.PublishDecisions(ctx, decisions); err != nil {
		e.logger.Warn("publish alert decisions failed", "error", err, "count", len(decisions))
	}
}
