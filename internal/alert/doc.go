// Package alert decides, per unit, whether a flood alert is dispatched and
// owns the per-unit alert memory that prevents redundant notifications.
//
// Each unit moves between two states. A DANGER assessment moves an
// unalerted unit to alerted and requests exactly one dispatch; any WARNING
// or SAFE assessment re-arms it. Under [PolicyAlertOnce] further DANGER
// assessments are suppressed until the unit re-arms; under
// [PolicyAlertEveryCycle] each one dispatches again.
//
// Decisions are taken under a per-unit lock and recorded before the
// transport is called, so concurrent DANGER detections for the same unit
// dispatch once. A failed dispatch keeps the recorded transition and is
// reported to the caller as [domain.ErrDispatchFailed]; it is never retried
// here.
package alert
