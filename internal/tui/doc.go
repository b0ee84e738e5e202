// Package tui contains app-wide contracts and state orchestration.
//
// Allowed here:
// - model routing, message contracts, screen stack
// - the bridge between engine events and the message loop
// - theme and shared styles
//
// Not allowed here:
// - concrete screen implementations (those live in tui/screens)
// - engine or storage logic
package tui
