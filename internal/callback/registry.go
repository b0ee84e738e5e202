package callback

import "sync"

// Handler consumes one event payload. Handlers are invoked synchronously
// on the dispatching goroutine and must not re-dispatch the same event
// from inside themselves; the slot has no reentrancy guard.
type Handler func(payload any)

// slot is the registration point for one event name. The handler and its
// owner token always change together: the token is how chained handlers
// and stack entries recognise whether the slot still holds their own
// registration without comparing function values.
type slot struct {
	handler Handler
	owner   any
}

// Registry maps event names to at most one handler each. Setting a
// handler fully replaces the previous one (last write wins); the
// registry keeps no list, queue, or history. Dispatching an event with
// no handler is a silent no-op — there is no buffering or replay, so
// consumers must register before the events they rely on can fire.
//
// The engine emits from its own goroutine while screens register from
// the UI loop, so access is serialised with a mutex. Handler invocation
// itself happens outside the lock.
type Registry struct {
	mu    sync.Mutex
	slots map[string]slot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]slot)}
}

// Handler returns the currently registered handler for event, or nil.
func (r *Registry) Handler(event string) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[event].handler
}

// SetHandler replaces the handler for event. A nil handler clears the
// slot; clearing an already-empty slot is a no-op.
func (r *Registry) SetHandler(event string, h Handler) {
	r.setOwned(event, h, nil)
}

// Dispatch invokes the current handler for event with payload. Absent a
// handler the event is dropped.
func (r *Registry) Dispatch(event string, payload any) {
	r.mu.Lock()
	h := r.slots[event].handler
	r.mu.Unlock()
	if h != nil {
		h(payload)
	}
}

// Reset clears every slot. Called on session teardown/logoff.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = make(map[string]slot)
}

// setOwned installs a handler together with its identity token.
// Plain SetHandler registrations carry a nil token.
func (r *Registry) setOwned(event string, h Handler, owner any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		delete(r.slots, event)
		return
	}
	r.slots[event] = slot{handler: h, owner: owner}
}

// handlerAndOwner returns the slot contents for event.
func (r *Registry) handlerAndOwner(event string) (Handler, any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[event]
	return s.handler, s.owner
}

// ownedBy reports whether the slot for event currently holds a
// registration with the given token.
func (r *Registry) ownedBy(event string, owner any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[event]
	return ok && s.owner == owner
}
