package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/callback"
	"github.com/uniken-public/codelab-go/internal/sdk"
)

// Bridge joins the engine's event registry to the bubbletea message
// loop. Wire installs a forwarding handler per event; screens that need
// mode-filtered delivery layer chained handlers or stack entries on top
// of the shared password slot through the helpers here.
type Bridge struct {
	client *sdk.Client
	send   func(tea.Msg)

	challenges *callback.Stack

	// Profile and InitTimeout come from configuration; the splash screen
	// reads both when it kicks off bring-up.
	Profile     sdk.ConnectionProfile
	InitTimeout time.Duration
}

func NewBridge(client *sdk.Client) *Bridge {
	return &Bridge{client: client}
}

// Client exposes the outbound call surface to screens.
func (b *Bridge) Client() *sdk.Client {
	return b.client
}

// Bind sets the message sink and installs the base forwarders. Call
// with p.Send once the program exists, before any outbound call.
func (b *Bridge) Bind(send func(tea.Msg)) {
	b.send = send
	for _, event := range []string{
		sdk.EventInitProgress,
		sdk.EventInitialized,
		sdk.EventInitError,
		sdk.EventThreats,
		sdk.EventUser,
		sdk.EventActivationCode,
		sdk.EventPassword,
		sdk.EventConsent,
		sdk.EventLoggedIn,
		sdk.EventLoggedOff,
		sdk.EventAuthReset,
		sdk.EventNotifications,
		sdk.EventNotificationUpdate,
		sdk.EventSessionTimeout,
	} {
		b.client.Events.SetHandler(event, b.Forward(event))
	}
}

// Forward returns a handler that turns dispatched payloads into
// EventMsg values.
func (b *Bridge) Forward(event string) callback.Handler {
	return func(payload any) {
		b.send(EventMsg{Event: event, Payload: payload})
	}
}

// AttachChallenge layers a mode-filtered chained handler over the
// shared password slot. Matching challenges are delivered through
// handle; everything else flows to whoever held the slot before.
// Detach the result when the screen leaves.
func (b *Bridge) AttachChallenge(mode sdk.ChallengeMode, handle callback.Handler) *callback.Chained {
	return callback.Attach(b.client.Events, sdk.EventPassword, sdk.ChallengeMatcher(mode), handle)
}

// Challenges is the interceptor stack on the shared password slot, for
// screens that take and give back challenge handling in LIFO order.
func (b *Bridge) Challenges() *callback.Stack {
	if b.challenges == nil {
		b.challenges = callback.NewStack(b.client.Events, sdk.EventPassword)
	}
	return b.challenges
}

// ArmInitWatchdog puts a deadline on session bring-up. If the engine
// never reports ready, a synthetic timeout arrives on the same slot.
// A non-positive deadline arms nothing; waiting forever stays the
// default.
func (b *Bridge) ArmInitWatchdog(d time.Duration) {
	if d <= 0 {
		return
	}
	b.client.Watch.Arm(sdk.EventInitialized, d, sdk.Initialized{
		Error: sdk.EventError{Code: sdk.ErrTimeout, Message: "initialization timed out"},
	})
}

func (b *Bridge) DisarmInitWatchdog() {
	b.client.Watch.Disarm(sdk.EventInitialized)
}
