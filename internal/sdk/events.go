package sdk

import "time"

// Event names. Each names one registry slot; the payload type dispatched
// on a slot is fixed and documented next to the name.
const (
	EventInitProgress       = "initialize.progress"    // InitProgress
	EventInitialized        = "initialize.done"        // Initialized
	EventInitError          = "initialize.error"       // InitFailure
	EventThreats            = "threats.detected"       // Threats
	EventUser               = "user.requested"         // UserChallenge
	EventActivationCode     = "activationcode.requested" // ActivationChallenge
	EventPassword           = "password.requested"     // PasswordChallenge
	EventConsent            = "consent.requested"      // ConsentChallenge
	EventLoggedIn           = "user.loggedin"          // LoggedIn
	EventLoggedOff          = "user.loggedoff"         // LoggedOff
	EventAuthReset          = "auth.reset"             // AuthReset
	EventNotifications      = "notifications.delivered" // Notifications
	EventNotificationUpdate = "notification.updated"   // NotificationUpdate
	EventSessionTimeout     = "session.timeout"        // SessionTimeout
)

// InitProgress reports a stage of session bring-up.
type InitProgress struct {
	Stage string
}

// Initialized means the engine is ready for the auth flow.
type Initialized struct {
	Error  EventError
	Status EventStatus
}

// InitFailure means bring-up failed terminally.
type InitFailure struct {
	Error EventError
}

// Threat is one finding of the engine's device scan.
type Threat struct {
	ID          string
	Name        string
	Severity    string
	Remediation string
}

// Threats is dispatched when the scan found something the user must
// decide on before the flow continues.
type Threats struct {
	Items []Threat
}

// ThreatAction is the user's decision on reported threats.
type ThreatAction int

const (
	ThreatProceed ThreatAction = iota
	ThreatExit
)

// UserChallenge asks the app for a username. A soft-failure status
// (unknown user) re-asks with the attempts budget updated.
type UserChallenge struct {
	AttemptsLeft int
	Error        EventError
	Status       EventStatus
}

// ActivationChallenge asks for the activation code issued to the device.
type ActivationChallenge struct {
	AttemptsLeft int
	// DemoCode is filled by the bundled simulator so the codelab is
	// self-contained. A production engine delivers codes out of band and
	// leaves it empty.
	DemoCode string
	Error    EventError
	Status   EventStatus
}

// ConsentChallenge asks whether the user grants local device
// authentication on this device.
type ConsentChallenge struct {
	Prompt string
}

// LoggedIn reports a completed login.
type LoggedIn struct {
	User        string
	SessionID   string
	LastLoginAt time.Time
	Error       EventError
	Status      EventStatus
}

// LoggedOff reports session end initiated by LogOff.
type LoggedOff struct {
	User string
}

// AuthReset reports a flow reset back to the user challenge.
type AuthReset struct {
	User string
}

// SessionTimeout reports a logged-in session that expired on its own.
// The flow returns to the user challenge right after.
type SessionTimeout struct {
	User string
}

// Notification is one actionable message for the logged-in user.
type Notification struct {
	ID        string
	Subject   string
	Body      string
	Actions   []string
	ExpiresAt time.Time
	Status    string // "open" or the action it was closed with
}

// Notifications carries the open notification set.
type Notifications struct {
	Items  []Notification
	Error  EventError
	Status EventStatus
}

// NotificationUpdate reports the outcome of UpdateNotification.
type NotificationUpdate struct {
	ID     string
	Action string
	Error  EventError
	Status EventStatus
}
