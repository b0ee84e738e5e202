package callback

import "sync"

// Stack turns the ad-hoc save/restore convention into a structural
// invariant for one event name: screens push on activate and release on
// deactivate, in any order. The top entry owns the slot; releasing the
// top reinstalls the entry below it (or whatever handler predates the
// stack), and releasing a buried entry just splices it out of the
// forwarding chain. A release never clobbers a registration the stack
// does not own.
type Stack struct {
	reg   *Registry
	event string

	mu        sync.Mutex
	entries   []*StackEntry // bottom..top
	base      Handler       // slot contents before the first push
	baseOwner any
}

// StackEntry is one pushed handler. Release it when the owning screen
// deactivates.
type StackEntry struct {
	stack    *Stack
	match    func(payload any) bool
	handle   Handler
	released bool
}

// NewStack returns a stack bound to one event slot of reg.
func NewStack(reg *Registry, event string) *Stack {
	return &Stack{reg: reg, event: event}
}

// Push installs handle as the slot's handler. A non-nil match makes the
// entry filtering: payloads it rejects are forwarded down the stack and
// ultimately to the pre-stack handler, mirroring the chaining
// convention. A nil match consumes everything.
func (s *Stack) Push(match func(payload any) bool, handle Handler) *StackEntry {
	e := &StackEntry{stack: s, match: match, handle: handle}
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.base, s.baseOwner = s.reg.handlerAndOwner(s.event)
	}
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.reg.setOwned(s.event, e.invoke, e)
	return e
}

// Len returns the number of live entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (e *StackEntry) invoke(payload any) {
	if e.match == nil || e.match(payload) {
		e.handle(payload)
		return
	}
	// Forward below. The entry underneath is resolved at dispatch time so
	// that pushes and releases between dispatches stay correct.
	below, base := e.stack.below(e)
	if below != nil {
		below.invoke(payload)
		return
	}
	if base != nil {
		base(payload)
	}
}

// below returns the live entry directly under e, or the pre-stack base
// handler when e is the bottom entry.
func (s *Stack) below(e *StackEntry) (*StackEntry, Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.entries {
		if cur == e {
			if i == 0 {
				return nil, s.base
			}
			return s.entries[i-1], nil
		}
	}
	return nil, s.base
}

// Release removes the entry from the stack. If the entry was on top and
// the slot still holds its registration, the slot is handed to the new
// top (or back to the pre-stack handler when the stack empties). If
// something outside the stack has overwritten the slot, it is left
// alone. Release is idempotent.
func (e *StackEntry) Release() {
	s := e.stack
	s.mu.Lock()
	if e.released {
		s.mu.Unlock()
		return
	}
	e.released = true
	idx := -1
	for i, cur := range s.entries {
		if cur == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	wasTop := idx == len(s.entries)-1
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	var top *StackEntry
	if len(s.entries) > 0 {
		top = s.entries[len(s.entries)-1]
	}
	base, baseOwner := s.base, s.baseOwner
	s.mu.Unlock()

	if !wasTop {
		return
	}
	if !s.reg.ownedBy(s.event, e) {
		return
	}
	if top != nil {
		s.reg.setOwned(s.event, top.invoke, top)
		return
	}
	s.reg.setOwned(s.event, base, baseOwner)
}
