// Package task implements the TaskBoard engine: a prioritized, persisted,
// timeout-enforcing scheduler for long-running analysis and reasoning work.
// It decouples slow operations from the synchronous protocol layer, ensuring
// they don't block request handling and can recover from restarts.
//
// Cancellation is cooperative: the engine raises a context signal and
// commits to reclassifying an overdue task, but it cannot force-stop a
// handler. Callers must not assume an abandoned handler's side effects
// stopped.
package task
