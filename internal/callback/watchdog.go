package callback

import (
	"sync"
	"time"
)

// Watchdog covers the gap the callback model leaves open: an outbound
// call is accepted (ack code 0) but the engine never fires the event, so
// a screen's loading state would spin forever. A caller that starts
// waiting on an event may arm a deadline; if the deadline passes before
// Disarm, the timeout payload is dispatched through the normal slot so
// the waiting handler observes it like any other outcome. Nothing arms
// a watchdog implicitly — waiting forever remains the default.
type Watchdog struct {
	reg *Registry

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatchdog returns a watchdog dispatching into reg.
func NewWatchdog(reg *Registry) *Watchdog {
	return &Watchdog{reg: reg, timers: make(map[string]*time.Timer)}
}

// Arm schedules timeoutPayload to be dispatched on event after d unless
// Disarm runs first. Re-arming an already armed event resets its timer.
func (w *Watchdog) Arm(event string, d time.Duration, timeoutPayload any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[event]; ok {
		t.Stop()
	}
	w.timers[event] = time.AfterFunc(d, func() {
		w.mu.Lock()
		delete(w.timers, event)
		w.mu.Unlock()
		w.reg.Dispatch(event, timeoutPayload)
	})
}

// Disarm cancels a pending deadline for event. Callers disarm from the
// handler that received the real event; disarming an event that is not
// armed is a no-op.
func (w *Watchdog) Disarm(event string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[event]; ok {
		t.Stop()
		delete(w.timers, event)
	}
}

// Stop cancels every pending deadline.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for event, t := range w.timers {
		t.Stop()
		delete(w.timers, event)
	}
}
