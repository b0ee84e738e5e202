package callback

// Chained is the save/restore convention the sample screens use to share
// one event slot: on attach it saves whatever handler is registered,
// installs a filtering wrapper, and on detach restores the saved handler
// — but only if the slot still holds its own wrapper. The conditional
// restore matters: if a later screen installed itself on top, an
// unconditional restore would silently destroy that registration.
//
// New code should prefer Stack, which enforces the same discipline
// structurally instead of leaving the ordering to each caller.
type Chained struct {
	reg       *Registry
	event     string
	match     func(payload any) bool
	handle    Handler
	prev      Handler
	prevOwner any
	attached  bool
}

// Attach saves the current handler for event and installs a wrapper that
// handles payloads accepted by match and forwards everything else to the
// saved handler. A nil match accepts every payload. Forwarding to an
// absent previous handler drops the event; that is the documented no-op,
// never a fault.
func Attach(reg *Registry, event string, match func(payload any) bool, handle Handler) *Chained {
	c := &Chained{reg: reg, event: event, match: match, handle: handle}
	c.prev, c.prevOwner = reg.handlerAndOwner(event)
	reg.setOwned(event, c.invoke, c)
	c.attached = true
	return c
}

func (c *Chained) invoke(payload any) {
	if c.match == nil || c.match(payload) {
		c.handle(payload)
		return
	}
	if c.prev != nil {
		c.prev(payload)
	}
}

// Detach restores the handler that was registered before Attach, if and
// only if the slot still holds this chain's wrapper. When another
// registration has replaced the wrapper in the meantime the slot is left
// untouched. Detach is idempotent.
func (c *Chained) Detach() {
	if !c.attached {
		return
	}
	c.attached = false
	if c.reg.ownedBy(c.event, c) {
		c.reg.setOwned(c.event, c.prev, c.prevOwner)
	}
}

// Attached reports whether Detach has not yet run.
func (c *Chained) Attached() bool {
	return c.attached
}
