// Package sdk is the boundary to the identity engine.
//
// Allowed here:
// - event names, payload shapes, and the two error channels (sync acks
//   vs in-event error/status pairs)
// - challenge-mode decoding into its closed variant set
// - the Client that pairs an outbound engine with the callback registry
//
// Not allowed here:
// - engine behavior (internal/sdk/sim)
// - screen logic or navigation (internal/tui)
package sdk
