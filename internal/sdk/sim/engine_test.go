package sim

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniken-public/codelab-go/internal/database"
	"github.com/uniken-public/codelab-go/internal/database/repository"
	"github.com/uniken-public/codelab-go/internal/sdk"
)

type emitted struct {
	event   string
	payload any
}

type recorder struct {
	ch chan emitted
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan emitted, 64)}
}

func (r *recorder) Emit(event string, payload any) {
	r.ch <- emitted{event, payload}
}

// waitFor drains events until one matches, failing on timeout. Progress
// and other interleaved events are skipped on purpose.
func (r *recorder) waitFor(t *testing.T, event string) any {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-r.ch:
			if e.event == event {
				return e.payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func testConfig() Config {
	return Config{
		DemoUser:            "alice",
		UserAttempts:        3,
		ActivationAttempts:  3,
		ActivationTTL:       time.Minute,
		PasswordAttempts:    3,
		Cooldown:            30 * time.Second,
		PasswordTTL:         90 * 24 * time.Hour,
		MinPasswordDistance: 3,
		SeedNotifications:   true,
	}
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *recorder) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rec := newRecorder()
	e := New(cfg, rec, db, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, rec
}

func profile() sdk.ConnectionProfile {
	return sdk.ConnectionProfile{Host: "gateway.demo.local", Port: 443, ProfileID: "RELDEMO01"}
}

// provisionActive shortcuts the enrollment flow: account with a
// credential, activated device, consent already given.
func provisionActive(t *testing.T, e *Engine, user, password string) {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := e.users.SetPassword(ctx, user, string(hash)); err != nil {
		t.Fatalf("set password: %v", err)
	}
	d := repository.Device{ID: "dev-1", UserName: user, Status: repository.DevicePending}
	if err := e.devices.Create(ctx, d); err != nil {
		t.Fatalf("create device: %v", err)
	}
	if err := e.devices.Activate(ctx, d.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := e.devices.SetConsent(ctx, d.ID, true); err != nil {
		t.Fatalf("consent: %v", err)
	}
}

func TestEngineLifecycleNoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := New(testConfig(), newRecorder(), db, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.Close()
}

func TestFirstLoginWalksFullEnrollment(t *testing.T) {
	cfg := testConfig()
	// Length alone keeps an 8-character candidate 3 edits away from a
	// 5-character username, so the closeness rejection below needs a
	// higher floor to be reachable.
	cfg.MinPasswordDistance = 5
	e, rec := newTestEngine(t, cfg)

	if a := e.Initialize(profile()); !a.Accepted() {
		t.Fatalf("initialize rejected: %+v", a)
	}
	rec.waitFor(t, sdk.EventInitialized)
	rec.waitFor(t, sdk.EventUser)

	if a := e.SetUser("alice"); !a.Accepted() {
		t.Fatalf("set user rejected: %+v", a)
	}
	act := rec.waitFor(t, sdk.EventActivationCode).(sdk.ActivationChallenge)
	if act.DemoCode == "" {
		t.Fatal("simulator should surface the activation code")
	}

	if a := e.SetActivationCode(act.DemoCode); !a.Accepted() {
		t.Fatalf("activation rejected: %+v", a)
	}
	ch := rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Mode != sdk.ModeSetNew {
		t.Fatalf("mode = %v, want %v", ch.Mode, sdk.ModeSetNew)
	}

	// Too close to the username: rejected by policy.
	e.SetPassword("Alice123", sdk.ModeSetNew)
	ch = rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Status.Code != sdk.StatusPolicyViolation {
		t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusPolicyViolation)
	}

	e.SetPassword("Str0ngEnough", sdk.ModeSetNew)
	rec.waitFor(t, sdk.EventConsent)

	if a := e.SetConsent(true); !a.Accepted() {
		t.Fatalf("consent rejected: %+v", a)
	}
	in := rec.waitFor(t, sdk.EventLoggedIn).(sdk.LoggedIn)
	if in.User != "alice" || in.SessionID == "" {
		t.Fatalf("logged in = %+v", in)
	}
	if !in.LastLoginAt.IsZero() {
		t.Fatalf("first login should have no previous login, got %v", in.LastLoginAt)
	}
}

func TestUnknownUserExhaustsAttempts(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)

	for i := 0; i < 2; i++ {
		e.SetUser("nobody")
		ch := rec.waitFor(t, sdk.EventUser).(sdk.UserChallenge)
		if ch.Status.Code != sdk.StatusUnknownUser {
			t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusUnknownUser)
		}
	}
	e.SetUser("nobody")
	fail := rec.waitFor(t, sdk.EventInitError).(sdk.InitFailure)
	if fail.Error.Code != sdk.ErrSessionTerminated {
		t.Fatalf("error = %d, want %d", fail.Error.Code, sdk.ErrSessionTerminated)
	}
}

func TestWrongPasswordThenCoolingPeriod(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	ch := rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Mode != sdk.ModeVerify {
		t.Fatalf("mode = %v, want %v", ch.Mode, sdk.ModeVerify)
	}

	e.SetPassword("WrongOne1", sdk.ModeVerify)
	ch = rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Status.Code != sdk.StatusInvalidCredential || ch.AttemptsLeft != 2 {
		t.Fatalf("challenge = %+v", ch)
	}

	e.SetPassword("WrongOne1", sdk.ModeVerify)
	rec.waitFor(t, sdk.EventPassword)
	e.SetPassword("WrongOne1", sdk.ModeVerify)
	ch = rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Status.Code != sdk.StatusCoolingPeriod {
		t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusCoolingPeriod)
	}
	if ch.CooldownSeconds <= 0 {
		t.Fatalf("cooldown = %d, want > 0", ch.CooldownSeconds)
	}

	// Even the right password waits out the cooling period.
	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	ch = rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Status.Code != sdk.StatusCoolingPeriod {
		t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusCoolingPeriod)
	}
}

func TestExpiredPasswordForcesUpdate(t *testing.T) {
	cfg := testConfig()
	cfg.PasswordTTL = time.Nanosecond
	e, rec := newTestEngine(t, cfg)
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventPassword)

	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	ch := rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Mode != sdk.ModeExpiredUpdate || ch.Status.Code != sdk.StatusCredentialExpired {
		t.Fatalf("challenge = %+v", ch)
	}

	// New credential must keep its distance from the old one.
	e.SetPassword("Str0ngEnouf", sdk.ModeExpiredUpdate)
	ch = rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Status.Code != sdk.StatusPolicyViolation {
		t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusPolicyViolation)
	}

	e.SetPassword("Fresh9Credential", sdk.ModeExpiredUpdate)
	in := rec.waitFor(t, sdk.EventLoggedIn).(sdk.LoggedIn)
	if in.User != "alice" {
		t.Fatalf("user = %q, want alice", in.User)
	}
}

func TestStepUpNotificationAction(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventPassword)
	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	rec.waitFor(t, sdk.EventLoggedIn)

	e.GetNotifications()
	list := rec.waitFor(t, sdk.EventNotifications).(sdk.Notifications)
	var stepUp sdk.Notification
	for _, n := range list.Items {
		if n.Subject == "Payment approval" {
			stepUp = n
		}
	}
	if stepUp.ID == "" {
		t.Fatal("seeded step-up notification missing")
	}

	e.UpdateNotification(stepUp.ID, "Approve")
	ch := rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Mode != sdk.ModeStepUp || ch.ActionNotificationID != stepUp.ID {
		t.Fatalf("challenge = %+v", ch)
	}

	e.SetPassword("Str0ngEnough", sdk.ModeStepUp)
	upd := rec.waitFor(t, sdk.EventNotificationUpdate).(sdk.NotificationUpdate)
	if !upd.Status.Success() || upd.ID != stepUp.ID || upd.Action != "Approve" {
		t.Fatalf("update = %+v", upd)
	}

	e.GetNotifications()
	list = rec.waitFor(t, sdk.EventNotifications).(sdk.Notifications)
	for _, n := range list.Items {
		if n.ID == stepUp.ID {
			t.Fatal("resolved notification still listed as open")
		}
	}
}

func TestAbandonedStepUpDoesNotStrandSession(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventPassword)
	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	rec.waitFor(t, sdk.EventLoggedIn)

	e.GetNotifications()
	list := rec.waitFor(t, sdk.EventNotifications).(sdk.Notifications)
	var stepUp sdk.Notification
	for _, n := range list.Items {
		if n.Subject == "Payment approval" {
			stepUp = n
		}
	}
	if stepUp.ID == "" {
		t.Fatal("seeded step-up notification missing")
	}
	e.UpdateNotification(stepUp.ID, "Approve")
	rec.waitFor(t, sdk.EventPassword)

	// Walking away from the challenge must not strand the session:
	// listing again abandons it and the notification stays open.
	if a := e.GetNotifications(); !a.Accepted() {
		t.Fatalf("list rejected after abandoned step-up: %+v", a)
	}
	list = rec.waitFor(t, sdk.EventNotifications).(sdk.Notifications)
	open := false
	for _, n := range list.Items {
		if n.ID == stepUp.ID {
			open = true
		}
	}
	if !open {
		t.Fatal("abandoned step-up closed its notification")
	}
	if a := e.SetPassword("Str0ngEnough", sdk.ModeStepUp); a.Accepted() {
		t.Fatal("stale step-up answer accepted after abandonment")
	}

	// The action can be retried, and logoff works mid-challenge too.
	e.UpdateNotification(stepUp.ID, "Approve")
	rec.waitFor(t, sdk.EventPassword)
	if a := e.LogOff(); !a.Accepted() {
		t.Fatalf("logoff rejected during step-up: %+v", a)
	}
	rec.waitFor(t, sdk.EventLoggedOff)
}

func TestWrongActivationCodeBurnsAttempts(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	act := rec.waitFor(t, sdk.EventActivationCode).(sdk.ActivationChallenge)

	e.SetActivationCode("WRONGONE")
	retry := rec.waitFor(t, sdk.EventActivationCode).(sdk.ActivationChallenge)
	if retry.Status.Code != sdk.StatusInvalidCredential || retry.AttemptsLeft != 2 {
		t.Fatalf("challenge = %+v", retry)
	}
	if retry.DemoCode != act.DemoCode {
		t.Fatal("wrong answer should not rotate the code")
	}

	e.SetActivationCode(retry.DemoCode)
	ch := rec.waitFor(t, sdk.EventPassword).(sdk.PasswordChallenge)
	if ch.Mode != sdk.ModeSetNew {
		t.Fatalf("mode = %v, want %v after recovery", ch.Mode, sdk.ModeSetNew)
	}
}

func TestActivationExhaustionBlocksAccount(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventActivationCode)

	for i := 0; i < 3; i++ {
		e.SetActivationCode("WRONGONE")
		if i < 2 {
			rec.waitFor(t, sdk.EventActivationCode)
		}
	}
	fail := rec.waitFor(t, sdk.EventInitError).(sdk.InitFailure)
	if fail.Error.Code != sdk.ErrSessionTerminated {
		t.Fatalf("error = %d, want %d", fail.Error.Code, sdk.ErrSessionTerminated)
	}

	// The account is blocked, not just the session.
	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	ch := rec.waitFor(t, sdk.EventUser).(sdk.UserChallenge)
	if ch.Status.Code != sdk.StatusPolicyViolation {
		t.Fatalf("status = %d, want %d", ch.Status.Code, sdk.StatusPolicyViolation)
	}
}

func TestExpiredActivationCodeIsReissued(t *testing.T) {
	cfg := testConfig()
	cfg.ActivationTTL = -time.Minute
	e, rec := newTestEngine(t, cfg)

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	act := rec.waitFor(t, sdk.EventActivationCode).(sdk.ActivationChallenge)

	e.SetActivationCode(act.DemoCode)
	reissued := rec.waitFor(t, sdk.EventActivationCode).(sdk.ActivationChallenge)
	if reissued.Status.Code != sdk.StatusCodeExpired {
		t.Fatalf("status = %d, want %d", reissued.Status.Code, sdk.StatusCodeExpired)
	}
	if reissued.DemoCode == "" || reissued.DemoCode == act.DemoCode {
		t.Fatalf("expected a fresh code, got %q", reissued.DemoCode)
	}
}

func TestThreatReportGatesInitialization(t *testing.T) {
	cfg := testConfig()
	cfg.SimulateThreats = true
	e, rec := newTestEngine(t, cfg)

	e.Initialize(profile())
	th := rec.waitFor(t, sdk.EventThreats).(sdk.Threats)
	if len(th.Items) == 0 {
		t.Fatal("expected simulated findings")
	}
	e.TakeActionOnThreats(sdk.ThreatProceed)
	rec.waitFor(t, sdk.EventInitialized)
	rec.waitFor(t, sdk.EventUser)
}

func TestAckRejections(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	if a := e.SetPassword("x1234567", sdk.ModeVerify); a.Code != sdk.AckInvalidArgs && a.Code != sdk.AckNotInitialized {
		t.Fatalf("code = %d, want a rejection", a.Code)
	}
	if a := e.GetNotifications(); a.Code != sdk.AckNoSession {
		t.Fatalf("code = %d, want %d", a.Code, sdk.AckNoSession)
	}
	if a := e.Initialize(sdk.ConnectionProfile{}); a.Code != sdk.AckInvalidArgs {
		t.Fatalf("code = %d, want %d", a.Code, sdk.AckInvalidArgs)
	}

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	if a := e.Initialize(profile()); a.Code != sdk.AckBusy {
		t.Fatalf("code = %d, want %d", a.Code, sdk.AckBusy)
	}
	if a := e.SetUser(""); a.Code != sdk.AckInvalidArgs {
		t.Fatalf("code = %d, want %d", a.Code, sdk.AckInvalidArgs)
	}
}

func TestSessionExpiresOnItsOwn(t *testing.T) {
	cfg := testConfig()
	cfg.SessionTTL = 50 * time.Millisecond
	e, rec := newTestEngine(t, cfg)
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventPassword)
	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	rec.waitFor(t, sdk.EventLoggedIn)

	out := rec.waitFor(t, sdk.EventSessionTimeout).(sdk.SessionTimeout)
	if out.User != "alice" {
		t.Fatalf("user = %q, want alice", out.User)
	}
	rec.waitFor(t, sdk.EventUser)

	if a := e.GetNotifications(); a.Code != sdk.AckNoSession {
		t.Fatalf("code = %d, want %d after expiry", a.Code, sdk.AckNoSession)
	}
}

func TestLogOffReturnsToUserChallenge(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	provisionActive(t, e, "alice", "Str0ngEnough")

	e.Initialize(profile())
	rec.waitFor(t, sdk.EventUser)
	e.SetUser("alice")
	rec.waitFor(t, sdk.EventPassword)
	e.SetPassword("Str0ngEnough", sdk.ModeVerify)
	rec.waitFor(t, sdk.EventLoggedIn)

	e.LogOff()
	off := rec.waitFor(t, sdk.EventLoggedOff).(sdk.LoggedOff)
	if off.User != "alice" {
		t.Fatalf("user = %q, want alice", off.User)
	}
	rec.waitFor(t, sdk.EventUser)

	if a := e.LogOff(); a.Code != sdk.AckNoSession {
		t.Fatalf("code = %d, want %d", a.Code, sdk.AckNoSession)
	}
}
