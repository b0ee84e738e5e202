// Package callback owns the event-slot plumbing between the identity
// engine and the screens.
//
// Allowed here:
// - the single-consumer slot registry (one handler per event name)
// - the chained save/restore convention and its stack-based replacement
// - the watchdog for events a caller has chosen to wait on with a deadline
//
// Not allowed here:
// - event payload shapes or domain error interpretation (internal/sdk)
// - any buffering, replay, or retry of events
package callback
