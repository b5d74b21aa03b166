package evaluator

import (
	"context"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	StartedAt        time.Time
	Duration         time.Duration
	Units            int
	Assessed         int
	Failed           int
	ByState          map[domain.RiskState]int
	Assessments      []domain.RiskAssessment
	Decisions        []alert.Decision
	DispatchFailures int
}

// RunCycle assesses every known unit, drives the alert coordinator for each
// assessment, and publishes the results. Per-unit failures are logged and
// counted; only a feed failure fails the cycle.
func (e *Evaluator) RunCycle(ctx context.Context) (CycleReport, error) {
	start := time.Now()
	report := CycleReport{
		StartedAt: domain.Now(),
		ByState: map[domain.RiskState]int{
			domain.RiskSafe:    0,
			domain.RiskWarning: 0,
			domain.RiskDanger:  0,
		},
	}

	readings, err := e.feed.LatestReadings(ctx)
	if err != nil {
		e.logger.Error("evaluation cycle failed", "error", err)
		return report, err
	}
	report.Units = len(readings)

	var published []alert.Decision
	for _, res := range e.evaluateAll(ctx, readings, true) {
		if res.err != nil {
			report.Failed++
			continue
		}
		report.Assessed++
		report.ByState[res.assessment.RiskState]++
		report.Assessments = append(report.Assessments, res.assessment)

		if res.decision == nil {
			continue
		}
		report.Decisions = append(report.Decisions, *res.decision)
		if res.alertErr != nil {
			report.DispatchFailures++
		}
		if res.decision.Outcome != alert.OutcomeNotRequired {
			published = append(published, *res.decision)
		}
	}

	for state, n := range report.ByState {
		e.metrics.UnitsByRiskState.WithLabelValues(string(state)).Set(float64(n))
	}

	if e.publisher != nil && len(report.Assessments) > 0 {
		if err := e.publisher.PublishAssessments(ctx, report.Assessments); err != nil {
			e.logger.Warn("publish assessments failed", "error", err, "count", len(report.Assessments))
		} else {
			e.metrics.AssessmentsPublished.Add(float64(len(report.Assessments)))
		}
	}
	e.publishDecisions(ctx, published)

	report.Duration = time.Since(start)
	e.metrics.CycleDuration.Observe(report.Duration.Seconds())
	e.ready.Store(true)

	e.logger.Info("evaluation cycle complete",
		"units", report.Units,
		"assessed", report.Assessed,
		"failed", report.Failed,
		"danger", report.ByState[domain.RiskDanger],
		"warning", report.ByState[domain.RiskWarning],
		"dispatch_failures", report.DispatchFailures,
		"duration", report.Duration,
	)
	return report, nil
}
