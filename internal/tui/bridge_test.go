package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
)

func collectingBridge() (*Bridge, *[]tea.Msg) {
	b := NewBridge(sdk.NewClient())
	msgs := &[]tea.Msg{}
	b.Bind(func(m tea.Msg) { *msgs = append(*msgs, m) })
	return b, msgs
}

func TestBridgeForwardsEvents(t *testing.T) {
	b, msgs := collectingBridge()

	b.Client().Emit(sdk.EventUser, sdk.UserChallenge{AttemptsLeft: 3})
	if len(*msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(*msgs))
	}
	ev, ok := (*msgs)[0].(EventMsg)
	if !ok || ev.Event != sdk.EventUser {
		t.Fatalf("msg = %#v", (*msgs)[0])
	}
	if ev.Payload.(sdk.UserChallenge).AttemptsLeft != 3 {
		t.Fatal("payload should pass through unchanged")
	}
}

func TestBridgeChainedChallengeFiltersMode(t *testing.T) {
	b, msgs := collectingBridge()

	var intercepted []sdk.PasswordChallenge
	chain := b.AttachChallenge(sdk.ModeVerify, func(p any) {
		intercepted = append(intercepted, p.(sdk.PasswordChallenge))
	})

	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeVerify})
	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeSetNew})

	if len(intercepted) != 1 || intercepted[0].Mode != sdk.ModeVerify {
		t.Fatalf("intercepted = %+v, want one verify challenge", intercepted)
	}
	// The unmatched challenge flowed to the base forwarder.
	if len(*msgs) != 1 {
		t.Fatalf("forwarded = %d, want 1", len(*msgs))
	}
	if (*msgs)[0].(EventMsg).Payload.(sdk.PasswordChallenge).Mode != sdk.ModeSetNew {
		t.Fatal("base forwarder should have received the set-new challenge")
	}

	chain.Detach()
	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeVerify})
	if len(intercepted) != 1 {
		t.Fatal("detached chain should not intercept")
	}
	if len(*msgs) != 2 {
		t.Fatalf("forwarded = %d, want 2 after restore", len(*msgs))
	}
}

func TestBridgeChallengeStackInterceptsStepUp(t *testing.T) {
	b, msgs := collectingBridge()

	var stepUps int
	entry := b.Challenges().Push(sdk.ChallengeMatcher(sdk.ModeStepUp), func(any) { stepUps++ })

	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeStepUp})
	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeVerify})
	if stepUps != 1 {
		t.Fatalf("stepUps = %d, want 1", stepUps)
	}
	if len(*msgs) != 1 {
		t.Fatalf("forwarded = %d, want 1 (the verify challenge)", len(*msgs))
	}

	entry.Release()
	b.Client().Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: sdk.ModeStepUp})
	if stepUps != 1 || len(*msgs) != 2 {
		t.Fatalf("after release stepUps = %d forwarded = %d, want 1 and 2", stepUps, len(*msgs))
	}
}

func TestBridgeInitWatchdogDeliversTimeout(t *testing.T) {
	b := NewBridge(sdk.NewClient())
	got := make(chan tea.Msg, 1)
	b.Bind(func(m tea.Msg) { got <- m })

	b.ArmInitWatchdog(10 * time.Millisecond)
	select {
	case m := <-got:
		in := m.(EventMsg).Payload.(sdk.Initialized)
		if in.Error.Code != sdk.ErrTimeout {
			t.Fatalf("error = %d, want %d", in.Error.Code, sdk.ErrTimeout)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watchdog")
	}

	// A disarmed watchdog stays quiet.
	b.ArmInitWatchdog(10 * time.Millisecond)
	b.DisarmInitWatchdog()
	select {
	case m := <-got:
		t.Fatalf("unexpected message %#v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridgeZeroInitTimeoutNeverArms(t *testing.T) {
	b := NewBridge(sdk.NewClient())
	got := make(chan tea.Msg, 1)
	b.Bind(func(m tea.Msg) { got <- m })

	b.ArmInitWatchdog(0)
	select {
	case m := <-got:
		t.Fatalf("unexpected message %#v", m)
	case <-time.After(50 * time.Millisecond):
	}
}
