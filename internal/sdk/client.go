package sdk

import (
	"github.com/uniken-public/codelab-go/internal/callback"
)

// Engine is the outbound half of the boundary: named asynchronous
// request methods whose return value acknowledges acceptance only.
// Every true outcome arrives later as an event. Implemented by the
// bundled simulator; a vendor engine binding would satisfy the same
// interface.
type Engine interface {
	Initialize(profile ConnectionProfile) Ack
	SetUser(name string) Ack
	SetActivationCode(code string) Ack
	SetPassword(value string, mode ChallengeMode) Ack
	SetConsent(granted bool) Ack
	TakeActionOnThreats(action ThreatAction) Ack
	GetNotifications() Ack
	UpdateNotification(id, action string) Ack
	ResetAuthState() Ack
	LogOff() Ack
}

// Client pairs an Engine with the registry its events are delivered
// through. The registry is the sole path from engine to application
// logic; the client adds nothing on the inbound side except challenge
// routing to variant topics.
type Client struct {
	engine Engine

	// Events is the slot registry screens register against.
	Events *callback.Registry
	// Watch lets callers put a deadline on an awaited event.
	Watch *callback.Watchdog
}

// NewClient returns a client with an empty registry. Bind an engine
// before making outbound calls.
func NewClient() *Client {
	reg := callback.NewRegistry()
	return &Client{
		Events: reg,
		Watch:  callback.NewWatchdog(reg),
	}
}

// Bind attaches the outbound engine.
func (c *Client) Bind(e Engine) {
	c.engine = e
}

// Emit delivers an engine event into the registry. It satisfies the
// emitter side of the simulator's constructor. Password challenges are
// decoded variants and go through per-variant routing; everything else
// is dispatched on its own slot.
func (c *Client) Emit(event string, payload any) {
	if event == EventPassword {
		if ch, ok := payload.(PasswordChallenge); ok {
			RouteChallenge(c.Events, ch)
			return
		}
	}
	c.Events.Dispatch(event, payload)
}

// Teardown clears every slot and pending deadline. Called on logoff and
// process exit; after it, events are dropped until screens re-register.
func (c *Client) Teardown() {
	c.Watch.Stop()
	c.Events.Reset()
}

func (c *Client) ack() (Ack, bool) {
	if c.engine == nil {
		return Ack{Code: AckNotBound, Message: "no engine bound"}, false
	}
	return Ack{}, true
}

// Initialize starts session bring-up against the profile.
func (c *Client) Initialize(profile ConnectionProfile) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.Initialize(profile)
}

// SetUser answers a user challenge.
func (c *Client) SetUser(name string) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.SetUser(name)
}

// SetActivationCode answers an activation challenge.
func (c *Client) SetActivationCode(code string) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.SetActivationCode(code)
}

// SetPassword answers a password challenge for the given mode.
func (c *Client) SetPassword(value string, mode ChallengeMode) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.SetPassword(value, mode)
}

// SetConsent answers the local-authentication consent challenge.
func (c *Client) SetConsent(granted bool) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.SetConsent(granted)
}

// TakeActionOnThreats acknowledges the threat report.
func (c *Client) TakeActionOnThreats(action ThreatAction) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.TakeActionOnThreats(action)
}

// GetNotifications requests the open notification set.
func (c *Client) GetNotifications() Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.GetNotifications()
}

// UpdateNotification applies an action to a notification.
func (c *Client) UpdateNotification(id, action string) Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.UpdateNotification(id, action)
}

// ResetAuthState abandons the current flow and returns to the user
// challenge.
func (c *Client) ResetAuthState() Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.ResetAuthState()
}

// LogOff ends the logged-in session.
func (c *Client) LogOff() Ack {
	if a, ok := c.ack(); !ok {
		return a
	}
	return c.engine.LogOff()
}
