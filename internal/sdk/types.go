package sdk

// Ack is the immediate, synchronous return of every outbound call. It
// reports only that the request was accepted for processing. A non-zero
// code means the request was rejected and no event will ever fire for
// it — callers must surface that at once instead of waiting.
type Ack struct {
	Code    int
	Message string
}

// Accepted reports whether the request was taken for processing.
func (a Ack) Accepted() bool { return a.Code == AckOK }

// Sync acceptance codes.
const (
	AckOK             = 0
	AckNotBound       = 1 // no engine attached to the client
	AckNotInitialized = 2 // call before Initialize completed
	AckBusy           = 3 // a request of this kind is already in flight
	AckInvalidArgs    = 4
	AckNoSession      = 5 // call requires a logged-in session
)

// EventError is the hard-error channel inside event payloads. Code 0
// means no error. Callers must check it before looking at the status:
// with a non-zero code the status fields may be meaningless.
type EventError struct {
	Code    int
	Message string
}

// Ok reports the absence of a hard error.
func (e EventError) Ok() bool { return e.Code == 0 }

// Hard error codes carried in event payloads.
const (
	ErrNone              = 0
	ErrSessionTerminated = 110 // attempts exhausted or forced logoff
	ErrTimeout           = 120 // synthetic, produced by an armed watchdog
	ErrInternal          = 130
)

// EventStatus is the soft-outcome channel inside event payloads: 100 is
// success, anything else is an event-specific soft failure the flow can
// usually recover from (retry, wait out a cooldown, set a new password).
type EventStatus struct {
	Code    int
	Message string
}

// Success reports a 100 status.
func (s EventStatus) Success() bool { return s.Code == StatusSuccess }

// Status codes.
const (
	StatusSuccess           = 100
	StatusInvalidCredential = 101
	StatusAttemptsExhausted = 102
	StatusCoolingPeriod     = 103
	StatusCredentialExpired = 104
	StatusPolicyViolation   = 105
	StatusUnknownUser       = 106
	StatusCodeExpired       = 107
	StatusUnknownAction     = 108
)

// ConnectionProfile identifies the engine deployment the app connects
// to. ProfileID is an opaque credential blob as far as the app is
// concerned; it is parsed from bundled configuration, never built.
type ConnectionProfile struct {
	Host      string
	Port      int
	ProfileID string
}

// Valid reports whether the profile has the fields Initialize needs.
func (p ConnectionProfile) Valid() bool {
	return p.Host != "" && p.Port > 0 && p.ProfileID != ""
}
