package sdk

import "github.com/uniken-public/codelab-go/internal/callback"

// ChallengeMode discriminates which sub-flow a password challenge
// belongs to. It is the integer the engine attaches to every
// EventPassword payload.
type ChallengeMode int

const (
	// ModeVerify is the ordinary login check.
	ModeVerify ChallengeMode = 0
	// ModeSetNew asks for a first password after activation.
	ModeSetNew ChallengeMode = 1
	// ModeStepUp re-authenticates a specific action, carried in the
	// challenge's action fields.
	ModeStepUp ChallengeMode = 2
	// ModeExpiredUpdate replaces a credential past its expiry.
	ModeExpiredUpdate ChallengeMode = 3
)

func (m ChallengeMode) String() string {
	switch m {
	case ModeVerify:
		return "verify"
	case ModeSetNew:
		return "setnew"
	case ModeStepUp:
		return "stepup"
	case ModeExpiredUpdate:
		return "expiredupdate"
	default:
		return "unknown"
	}
}

// PasswordChallenge is the payload of EventPassword, decoded once at the
// boundary so no screen ever re-inspects a raw discriminator field.
type PasswordChallenge struct {
	Mode         ChallengeMode
	AttemptsLeft int
	// CooldownSeconds is set with StatusCoolingPeriod.
	CooldownSeconds int
	// Action fields are set for ModeStepUp only.
	ActionNotificationID string
	ActionLabel          string
	Error                EventError
	Status               EventStatus
}

// ChallengeTopic returns the per-variant event name for a mode. Handlers
// registered on a variant topic receive only that sub-flow's challenges,
// with no filtering logic of their own.
func ChallengeTopic(m ChallengeMode) string {
	return EventPassword + "." + m.String()
}

// ChallengeMatcher returns a payload predicate for the chaining
// convention on the shared EventPassword slot.
func ChallengeMatcher(m ChallengeMode) func(payload any) bool {
	return func(payload any) bool {
		ch, ok := payload.(PasswordChallenge)
		return ok && ch.Mode == m
	}
}

// RouteChallenge delivers a challenge to its variant topic when that
// slot has a consumer, falling back to the shared EventPassword slot
// otherwise. The challenge is never dispatched to both.
func RouteChallenge(reg *callback.Registry, ch PasswordChallenge) {
	topic := ChallengeTopic(ch.Mode)
	if reg.Handler(topic) != nil {
		reg.Dispatch(topic, ch)
		return
	}
	reg.Dispatch(EventPassword, ch)
}
