// Package sim is a stand-in engine for codelab use. It implements the
// sdk.Engine contract against a local sqlite store, so every flow the
// screens exercise — activation, login, cooling periods, step-up,
// expired credentials, notifications — behaves like the real thing
// without a gateway.
//
// All engine state changes happen on one worker goroutine. Outbound
// calls only validate and enqueue; outcomes arrive as events through
// the bound emitter, exactly as they would from a remote engine.
package sim

import (
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uniken-public/codelab-go/internal/database/repository"
	"github.com/uniken-public/codelab-go/internal/sdk"
)

// Emitter receives the engine's events. *sdk.Client satisfies it.
type Emitter interface {
	Emit(event string, payload any)
}

// Config carries the simulator's behavior knobs.
type Config struct {
	// DemoUser is provisioned on startup so the codelab has a known
	// account to log in with.
	DemoUser string

	// UserAttempts bounds unknown-user answers before termination.
	UserAttempts int

	ActivationAttempts int
	ActivationTTL      time.Duration

	PasswordAttempts int
	Cooldown         time.Duration
	// PasswordTTL is the credential lifetime; a verify against an older
	// credential succeeds but forces an expired-update challenge.
	PasswordTTL time.Duration
	// SessionTTL expires a logged-in session on its own; zero disables.
	SessionTTL time.Duration
	// MinPasswordDistance is the smallest edit distance a new password
	// must keep from the username and from the credential it replaces.
	// A candidate at exactly this distance is acceptable.
	MinPasswordDistance int

	SeedNotifications bool
	SimulateThreats   bool
}

type phase int

const (
	phaseIdle phase = iota
	phaseThreats
	phaseUser
	phaseActivation
	phasePassword
	phaseConsent
	phaseStepUp
	phaseLoggedIn
)

type state struct {
	phase     phase
	user      string
	deviceID  string
	sessionID string

	pendingMode  sdk.ChallengeMode
	userAttempts int
	passAttempts int
	coolingUntil time.Time

	// oldPassword holds the just-verified credential for the duration of
	// an expired-update challenge, for the distance check. Never stored.
	oldPassword string

	stepUpID     string
	stepUpAction string

	prevLoginAt  *time.Time
	sessionTimer *time.Timer
}

// clear resets the flow state, stopping any pending session timer.
func (st *state) clear() {
	if st.sessionTimer != nil {
		st.sessionTimer.Stop()
	}
	*st = state{}
}

// Engine is the simulator. Construct with New, Start before first use,
// Close on shutdown.
type Engine struct {
	cfg  Config
	emit Emitter
	log  *zap.Logger

	db      *sql.DB
	users   *repository.UserRepo
	devices *repository.DeviceRepo
	notes   *repository.NotificationRepo

	cmds chan func()
	quit chan struct{}
	wg   sync.WaitGroup

	mu sync.Mutex
	st state
}

// New wires the simulator to its store and event sink.
func New(cfg Config, emit Emitter, db *sql.DB, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		emit:    emit,
		log:     log,
		db:      db,
		users:   repository.NewUserRepo(db),
		devices: repository.NewDeviceRepo(db),
		notes:   repository.NewNotificationRepo(db),
		cmds:    make(chan func(), 16),
		quit:    make(chan struct{}),
	}
}

// Start launches the worker goroutine and provisions the demo account.
func (e *Engine) Start() error {
	if err := e.provision(); err != nil {
		return err
	}
	e.wg.Add(1)
	go e.run()
	return nil
}

// Close stops the worker. Pending commands are dropped.
func (e *Engine) Close() {
	close(e.quit)
	e.wg.Wait()
	e.mu.Lock()
	if e.st.sessionTimer != nil {
		e.st.sessionTimer.Stop()
	}
	e.mu.Unlock()
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quit:
			return
		case fn := <-e.cmds:
			fn()
		}
	}
}

// submit queues work for the worker. Returns false after Close.
func (e *Engine) submit(fn func()) bool {
	select {
	case e.cmds <- fn:
		return true
	case <-e.quit:
		return false
	}
}

func (e *Engine) phaseIs(want ...phase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range want {
		if e.st.phase == p {
			return true
		}
	}
	return false
}

func (e *Engine) setPhase(p phase) {
	e.mu.Lock()
	e.st.phase = p
	e.mu.Unlock()
}

// Initialize starts session bring-up. Only valid before a session
// exists; a second call while one is up is rejected as busy.
func (e *Engine) Initialize(profile sdk.ConnectionProfile) sdk.Ack {
	if !profile.Valid() {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "incomplete connection profile"}
	}
	if !e.phaseIs(phaseIdle) {
		return sdk.Ack{Code: sdk.AckBusy, Message: "already initialized"}
	}
	e.submit(func() { e.doInitialize(profile) })
	return sdk.Ack{}
}

// TakeActionOnThreats resolves a pending threat report.
func (e *Engine) TakeActionOnThreats(action sdk.ThreatAction) sdk.Ack {
	if !e.phaseIs(phaseThreats) {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "no threat report pending"}
	}
	e.submit(func() { e.doThreatAction(action) })
	return sdk.Ack{}
}

// SetUser answers the user challenge.
func (e *Engine) SetUser(name string) sdk.Ack {
	if name == "" {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "empty user name"}
	}
	if !e.phaseIs(phaseUser) {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "no user challenge pending"}
	}
	e.submit(func() { e.doSetUser(name) })
	return sdk.Ack{}
}

// SetActivationCode answers the activation challenge.
func (e *Engine) SetActivationCode(code string) sdk.Ack {
	if code == "" {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "empty activation code"}
	}
	if !e.phaseIs(phaseActivation) {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "no activation challenge pending"}
	}
	e.submit(func() { e.doSetActivationCode(code) })
	return sdk.Ack{}
}

// SetPassword answers the pending password challenge. The mode must
// match the challenge that was issued.
func (e *Engine) SetPassword(value string, mode sdk.ChallengeMode) sdk.Ack {
	if value == "" {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "empty password"}
	}
	e.mu.Lock()
	pending := e.st.pendingMode
	ok := e.st.phase == phasePassword || e.st.phase == phaseStepUp
	e.mu.Unlock()
	if !ok {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "no password challenge pending"}
	}
	if mode != pending {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "wrong challenge mode"}
	}
	e.submit(func() { e.doSetPassword(value, mode) })
	return sdk.Ack{}
}

// SetConsent answers the local-authentication consent challenge.
func (e *Engine) SetConsent(granted bool) sdk.Ack {
	if !e.phaseIs(phaseConsent) {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "no consent challenge pending"}
	}
	e.submit(func() { e.doSetConsent(granted) })
	return sdk.Ack{}
}

// GetNotifications requests the open notification set. Requires a
// logged-in session; a pending step-up challenge is abandoned and its
// notification stays open.
func (e *Engine) GetNotifications() sdk.Ack {
	if !e.phaseIs(phaseLoggedIn, phaseStepUp) {
		return sdk.Ack{Code: sdk.AckNoSession, Message: "not logged in"}
	}
	e.submit(func() {
		e.cancelStepUp()
		e.doGetNotifications()
	})
	return sdk.Ack{}
}

// UpdateNotification applies an action to a notification. Step-up
// notifications trigger a re-authentication challenge first; issuing a
// new update abandons any challenge still pending.
func (e *Engine) UpdateNotification(id, action string) sdk.Ack {
	if id == "" || action == "" {
		return sdk.Ack{Code: sdk.AckInvalidArgs, Message: "notification id and action required"}
	}
	if !e.phaseIs(phaseLoggedIn, phaseStepUp) {
		return sdk.Ack{Code: sdk.AckNoSession, Message: "not logged in"}
	}
	e.submit(func() {
		e.cancelStepUp()
		e.doUpdateNotification(id, action)
	})
	return sdk.Ack{}
}

// ResetAuthState abandons the current flow and returns to the user
// challenge.
func (e *Engine) ResetAuthState() sdk.Ack {
	if e.phaseIs(phaseIdle, phaseThreats) {
		return sdk.Ack{Code: sdk.AckNotInitialized, Message: "not initialized"}
	}
	e.submit(func() { e.doReset() })
	return sdk.Ack{}
}

// LogOff ends the logged-in session, step-up challenge pending or not.
func (e *Engine) LogOff() sdk.Ack {
	if !e.phaseIs(phaseLoggedIn, phaseStepUp) {
		return sdk.Ack{Code: sdk.AckNoSession, Message: "not logged in"}
	}
	e.submit(func() { e.doLogOff() })
	return sdk.Ack{}
}
