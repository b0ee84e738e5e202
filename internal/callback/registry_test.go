package callback

import "testing"

func TestDispatchWithoutHandlerIsNoOp(t *testing.T) {
	r := NewRegistry()
	// Must not panic and must not create state.
	r.Dispatch("password", map[string]any{"mode": 1})
	if h := r.Handler("password"); h != nil {
		t.Fatalf("Handler(%q) = non-nil after bare dispatch, want nil", "password")
	}
}

func TestSetHandlerReplacesNeverMerges(t *testing.T) {
	r := NewRegistry()
	var calledA, calledB int
	r.SetHandler("user", func(any) { calledA++ })
	r.SetHandler("user", func(any) { calledB++ })

	r.Dispatch("user", nil)
	r.Dispatch("user", nil)

	if calledA != 0 {
		t.Fatalf("replaced handler invoked %d times, want 0", calledA)
	}
	if calledB != 2 {
		t.Fatalf("current handler invoked %d times, want 2", calledB)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.SetHandler("user", func(any) {})
	r.SetHandler("user", nil)
	r.SetHandler("user", nil)
	if h := r.Handler("user"); h != nil {
		t.Fatal("slot not empty after double clear")
	}
	r.Dispatch("user", nil) // still a safe no-op
}

func TestDispatchPassesPayloadThrough(t *testing.T) {
	r := NewRegistry()
	var got any
	r.SetHandler("notification", func(p any) { got = p })

	want := map[string]any{"id": "n-1", "action": "Approve"}
	r.Dispatch("notification", want)

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", got)
	}
	if m["id"] != "n-1" || m["action"] != "Approve" {
		t.Fatalf("payload = %v, want %v", m, want)
	}
}

func TestSlotsAreIndependentPerEventName(t *testing.T) {
	r := NewRegistry()
	var user, password int
	r.SetHandler("user", func(any) { user++ })
	r.SetHandler("password", func(any) { password++ })

	r.Dispatch("user", nil)
	r.Dispatch("password", nil)
	r.Dispatch("password", nil)

	if user != 1 || password != 2 {
		t.Fatalf("user=%d password=%d, want 1 and 2", user, password)
	}
}

// Dispatch resolves the handler at call time and holds no lock while
// invoking it, so a handler may re-register and re-dispatch its own
// event without deadlocking. Unbounded re-dispatch still recurses;
// that is the caller's problem.
func TestDispatchFromInsideAHandler(t *testing.T) {
	r := NewRegistry()
	var replacement int
	r.SetHandler("user", func(any) {
		r.SetHandler("user", func(any) { replacement++ })
		r.Dispatch("user", nil)
	})

	r.Dispatch("user", nil)
	if replacement != 1 {
		t.Fatalf("replacement handler calls = %d, want 1", replacement)
	}
}

func TestResetClearsEverySlot(t *testing.T) {
	r := NewRegistry()
	events := []string{"user", "password", "notification"}
	for _, e := range events {
		r.SetHandler(e, func(any) { t.Fatalf("handler for %q survived Reset", e) })
	}
	r.Reset()
	for _, e := range events {
		if r.Handler(e) != nil {
			t.Fatalf("Handler(%q) non-nil after Reset", e)
		}
		r.Dispatch(e, nil)
	}
}
