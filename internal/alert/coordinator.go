package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// Policy selects how repeated DANGER assessments are handled.
type Policy int

const (
	// PolicyAlertOnce dispatches once per danger episode and suppresses
	// repeats until the unit drops out of DANGER.
	PolicyAlertOnce Policy = iota
	// PolicyAlertEveryCycle dispatches on every DANGER assessment.
	PolicyAlertEveryCycle
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "once":
		return PolicyAlertOnce, nil
	case "every":
		return PolicyAlertEveryCycle, nil
	default:
		return 0, fmt.Errorf("unknown alert policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyAlertEveryCycle {
		return "every"
	}
	return "once"
}

// Outcome is what the coordinator did with an assessment.
type Outcome string

const (
	OutcomeNotRequired    Outcome = "not_required"
	OutcomeRearmed        Outcome = "rearmed"
	OutcomeSuppressed     Outcome = "suppressed"
	OutcomeDispatched     Outcome = "dispatched"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
)

// Decision is the structured result of an alert evaluation. It is also the
// payload published to the alert topic.
type Decision struct {
	ID         string           `json:"id"`
	UnitID     string           `json:"unit_id"`
	Outcome    Outcome          `json:"outcome"`
	RiskState  domain.RiskState `json:"risk_state,omitempty"`
	Manual     bool             `json:"manual,omitempty"`
	Message    string           `json:"message,omitempty"`
	Recipient  string           `json:"recipient,omitempty"`
	StatusCode int              `json:"status_code,omitempty"`
	Response   string           `json:"response,omitempty"`
	Error      string           `json:"error,omitempty"`
	DecidedAt  time.Time        `json:"decided_at"`
}

// Attempted reports whether a dispatch was requested.
func (d Decision) Attempted() bool {
	return d.Outcome == OutcomeDispatched || d.Outcome == OutcomeDispatchFailed
}

// Config holds coordinator settings.
type Config struct {
	Policy    Policy
	Recipient string
	// DispatchTimeout bounds each transport call, including any rate-limit wait.
	DispatchTimeout time.Duration
	// RatePerMinute caps dispatches across all units. Zero disables the limit.
	RatePerMinute int
}

// Coordinator owns the per-unit alert memory and the notification transport.
type Coordinator struct {
	transport Transport
	cfg       Config
	limiter   *rate.Limiter
	store     *stateStore
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCoordinator creates a Coordinator that dispatches through transport.
func NewCoordinator(transport Transport, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	c := &Coordinator{
		transport: transport,
		cfg:       cfg,
		store:     newStateStore(),
		logger:    logger,
		metrics:   metrics,
	}
	if cfg.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return c
}

// Evaluate runs the state machine for the assessment's unit and dispatches an
// alert when the transition calls for one. A failed dispatch returns the
// decision together with an error wrapping domain.ErrDispatchFailed.
func (c *Coordinator) Evaluate(ctx context.Context, reading domain.SensorReading, a domain.RiskAssessment) (Decision, error) {
	d := c.newDecision(a.UnitID)
	d.RiskState = a.RiskState

	e := c.store.entry(a.UnitID)
	e.mu.Lock()
	send := c.transition(&e.state, &d, a.RiskState)
	e.mu.Unlock()

	if !send {
		c.record(d)
		return d, nil
	}

	d.Message = FormatMessage(reading, a)
	return c.dispatch(ctx, e, d)
}

// transition applies the state machine and reports whether to dispatch.
// Callers hold the entry lock.
func (c *Coordinator) transition(st *State, d *Decision, risk domain.RiskState) bool {
	st.LastKnownState = risk

	if risk != domain.RiskDanger {
		if st.Status == StatusAlerted {
			st.Status = StatusUnalerted
			d.Outcome = OutcomeRearmed
			return false
		}
		d.Outcome = OutcomeNotRequired
		return false
	}

	if st.Status == StatusAlerted && c.cfg.Policy == PolicyAlertOnce {
		d.Outcome = OutcomeSuppressed
		return false
	}
	st.Status = StatusAlerted
	return true
}

// Force dispatches the formatted alert for an assessment regardless of the
// unit's state. The unit's status and last known state are left unchanged.
func (c *Coordinator) Force(ctx context.Context, reading domain.SensorReading, a domain.RiskAssessment) (Decision, error) {
	d := c.newDecision(a.UnitID)
	d.RiskState = a.RiskState
	d.Manual = true
	d.Message = FormatMessage(reading, a)
	return c.dispatch(ctx, c.store.entry(a.UnitID), d)
}

// DispatchNoData sends the generic no-data alert for a unit that has no
// reading. It bypasses the state machine.
func (c *Coordinator) DispatchNoData(ctx context.Context, unitID string) (Decision, error) {
	d := c.newDecision(unitID)
	d.Manual = true
	d.Message = FormatNoDataMessage(unitID)
	return c.dispatch(ctx, c.store.entry(unitID), d)
}

// Snapshot returns a copy of every unit's alert state, ordered by unit id.
func (c *Coordinator) Snapshot() []State {
	return c.store.snapshot()
}

// Policy returns the configured repeat policy.
func (c *Coordinator) Policy() Policy {
	return c.cfg.Policy
}

func (c *Coordinator) newDecision(unitID string) Decision {
	return Decision{
		ID:        uuid.NewString(),
		UnitID:    unitID,
		Recipient: c.cfg.Recipient,
		DecidedAt: domain.Now(),
	}
}

// dispatch calls the transport outside the unit lock and records the result.
func (c *Coordinator) dispatch(ctx context.Context, e *unitEntry, d Decision) (Decision, error) {
	start := time.Now()
	receipt, err := c.send(ctx, d.Message)
	c.metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	d.StatusCode = receipt.StatusCode
	d.Response = receipt.Body
	if err == nil && !receipt.Success() {
		err = fmt.Errorf("transport returned status %d", receipt.StatusCode)
	}

	e.mu.Lock()
	if err != nil {
		e.state.LastDispatchError = err.Error()
	} else {
		sentAt := domain.Now()
		e.state.LastAlertSentAt = &sentAt
		e.state.LastDispatchError = ""
	}
	e.mu.Unlock()

	if err != nil {
		d.Outcome = OutcomeDispatchFailed
		d.Error = err.Error()
		c.record(d)
		c.logger.Warn("alert dispatch failed", "unit_id", d.UnitID, "decision_id", d.ID, "error", err)
		return d, fmt.Errorf("%w: unit %s: %w", domain.ErrDispatchFailed, d.UnitID, err)
	}

	d.Outcome = OutcomeDispatched
	c.record(d)
	c.logger.Info("alert dispatched", "unit_id", d.UnitID, "decision_id", d.ID, "status_code", d.StatusCode, "manual", d.Manual)
	return d, nil
}

// send waits for the rate limiter and calls the transport, giving up when the
// dispatch timeout elapses even if the transport ignores cancellation.
func (c *Coordinator) send(ctx context.Context, message string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Receipt{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	type result struct {
		receipt Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := c.transport.Send(ctx, message, c.cfg.Recipient)
		done <- result{r, err}
	}()

	select {
	case res := <-done:
		return res.receipt, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Receipt{}, fmt.Errorf("dispatch timed out after %s", c.cfg.DispatchTimeout)
		}
		return Receipt{}, ctx.Err()
	}
}

func (c *Coordinator) record(d Decision) {
	c.metrics.AlertDecisions.WithLabelValues(string(d.Outcome)).Inc()
}
