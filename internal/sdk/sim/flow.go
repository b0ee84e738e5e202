package sim

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniken-public/codelab-go/internal/database"
	"github.com/uniken-public/codelab-go/internal/database/repository"
	"github.com/uniken-public/codelab-go/internal/sdk"
)

// provision makes sure the demo account exists. It carries no
// credential; the first login walks the full activation and set-new
// flow.
func (e *Engine) provision() error {
	if e.cfg.DemoUser == "" {
		return nil
	}
	ctx := context.Background()
	u, err := e.users.Get(ctx, e.cfg.DemoUser)
	if err != nil {
		return err
	}
	if u != nil {
		return nil
	}
	return e.users.Upsert(ctx, repository.User{Name: e.cfg.DemoUser, Status: repository.UserActive})
}

func (e *Engine) doInitialize(profile sdk.ConnectionProfile) {
	e.log.Info("initializing", zap.String("host", profile.Host), zap.Int("port", profile.Port))
	for _, stage := range []string{"connecting", "handshake", "session"} {
		e.emit.Emit(sdk.EventInitProgress, sdk.InitProgress{Stage: stage})
	}
	if e.cfg.SimulateThreats {
		e.setPhase(phaseThreats)
		e.emit.Emit(sdk.EventThreats, sdk.Threats{Items: []sdk.Threat{
			{ID: "T-001", Name: "Developer options enabled", Severity: "low", Remediation: "Disable developer options in system settings."},
			{ID: "T-002", Name: "Unknown certificate authority", Severity: "medium", Remediation: "Remove user-installed CA certificates."},
		}})
		return
	}
	e.finishInit()
}

func (e *Engine) finishInit() {
	e.emit.Emit(sdk.EventInitialized, sdk.Initialized{Status: sdk.EventStatus{Code: sdk.StatusSuccess}})
	e.issueUserChallenge(sdk.EventStatus{Code: sdk.StatusSuccess})
}

func (e *Engine) doThreatAction(action sdk.ThreatAction) {
	if action == sdk.ThreatExit {
		e.log.Warn("threat report declined, terminating")
		e.setPhase(phaseIdle)
		e.emit.Emit(sdk.EventInitError, sdk.InitFailure{
			Error: sdk.EventError{Code: sdk.ErrSessionTerminated, Message: "terminated on threat report"},
		})
		return
	}
	e.finishInit()
}

func (e *Engine) issueUserChallenge(status sdk.EventStatus) {
	e.mu.Lock()
	if e.st.userAttempts == 0 {
		e.st.userAttempts = e.cfg.UserAttempts
	}
	attempts := e.st.userAttempts
	e.st.phase = phaseUser
	e.mu.Unlock()
	e.emit.Emit(sdk.EventUser, sdk.UserChallenge{AttemptsLeft: attempts, Status: status})
}

func (e *Engine) doSetUser(name string) {
	ctx := context.Background()
	u, err := e.users.Get(ctx, name)
	if err != nil {
		e.internal("load user", err)
		return
	}
	if u == nil {
		e.mu.Lock()
		e.st.userAttempts--
		left := e.st.userAttempts
		e.mu.Unlock()
		if left <= 0 {
			e.terminate("user attempts exhausted")
			return
		}
		e.emit.Emit(sdk.EventUser, sdk.UserChallenge{
			AttemptsLeft: left,
			Status:       sdk.EventStatus{Code: sdk.StatusUnknownUser, Message: "unknown user"},
		})
		return
	}
	if u.Status == repository.UserBlocked {
		e.emit.Emit(sdk.EventUser, sdk.UserChallenge{
			Status: sdk.EventStatus{Code: sdk.StatusPolicyViolation, Message: "account blocked"},
		})
		return
	}

	e.mu.Lock()
	e.st.user = u.Name
	e.st.userAttempts = 0
	e.mu.Unlock()

	d, err := e.devices.GetByUser(ctx, u.Name)
	if err != nil {
		e.internal("load device", err)
		return
	}
	if d == nil {
		d = &repository.Device{ID: uuid.NewString(), UserName: u.Name, Status: repository.DevicePending}
		if err := e.devices.Create(ctx, *d); err != nil {
			e.internal("create device", err)
			return
		}
	}
	e.mu.Lock()
	e.st.deviceID = d.ID
	e.mu.Unlock()

	if d.Status != repository.DeviceActivated {
		e.issueActivationChallenge(ctx, d.ID, sdk.EventStatus{Code: sdk.StatusSuccess})
		return
	}
	e.issuePasswordEntry(u)
}

func (e *Engine) issueActivationChallenge(ctx context.Context, deviceID string, status sdk.EventStatus) {
	code := newActivationCode()
	expires := database.Now().Add(e.cfg.ActivationTTL)
	if err := e.devices.SetActivationChallenge(ctx, deviceID, code, &expires, e.cfg.ActivationAttempts); err != nil {
		e.internal("store activation code", err)
		return
	}
	e.log.Info("activation code issued", zap.String("device", deviceID), zap.String("code", code))
	e.setPhase(phaseActivation)
	e.emit.Emit(sdk.EventActivationCode, sdk.ActivationChallenge{
		AttemptsLeft: e.cfg.ActivationAttempts,
		DemoCode:     code,
		Status:       status,
	})
}

// newActivationCode returns a short uppercase code. Random enough for a
// simulator; a real engine mints these server-side.
func newActivationCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

func (e *Engine) doSetActivationCode(code string) {
	ctx := context.Background()
	e.mu.Lock()
	deviceID := e.st.deviceID
	e.mu.Unlock()

	d, err := e.devices.Get(ctx, deviceID)
	if err != nil || d == nil {
		e.internal("load device", err)
		return
	}
	if d.CodeExpiresAt != nil && time.Now().After(*d.CodeExpiresAt) {
		e.issueActivationChallenge(ctx, deviceID, sdk.EventStatus{Code: sdk.StatusCodeExpired, Message: "activation code expired, a new one was issued"})
		return
	}
	if !strings.EqualFold(strings.TrimSpace(code), d.ActivationCode) {
		left, err := e.devices.DecrementCodeAttempts(ctx, deviceID)
		if err != nil {
			e.internal("decrement attempts", err)
			return
		}
		if left <= 0 {
			if err := e.users.SetStatus(ctx, d.UserName, repository.UserBlocked); err != nil {
				e.internal("block account", err)
				return
			}
			e.log.Warn("account blocked", zap.String("user", d.UserName))
			e.terminate("activation attempts exhausted")
			return
		}
		e.emit.Emit(sdk.EventActivationCode, sdk.ActivationChallenge{
			AttemptsLeft: left,
			DemoCode:     d.ActivationCode,
			Status:       sdk.EventStatus{Code: sdk.StatusInvalidCredential, Message: "wrong activation code"},
		})
		return
	}
	if err := e.devices.Activate(ctx, deviceID); err != nil {
		e.internal("activate device", err)
		return
	}
	e.log.Info("device activated", zap.String("device", deviceID))

	u, err := e.users.Get(ctx, e.currentUser())
	if err != nil || u == nil {
		e.internal("load user", err)
		return
	}
	e.issuePasswordEntry(u)
}

// issuePasswordEntry picks the first password challenge of a login:
// set-new when the account has no credential yet, verify otherwise.
func (e *Engine) issuePasswordEntry(u *repository.User) {
	mode := sdk.ModeVerify
	if u.PasswordHash == "" {
		mode = sdk.ModeSetNew
	}
	e.mu.Lock()
	e.st.pendingMode = mode
	e.st.passAttempts = e.cfg.PasswordAttempts
	e.st.coolingUntil = time.Time{}
	e.st.phase = phasePassword
	attempts := e.st.passAttempts
	e.mu.Unlock()
	e.emit.Emit(sdk.EventPassword, sdk.PasswordChallenge{Mode: mode, AttemptsLeft: attempts})
}

func (e *Engine) doSetPassword(value string, mode sdk.ChallengeMode) {
	switch mode {
	case sdk.ModeVerify:
		e.verifyPassword(value, e.afterVerify)
	case sdk.ModeStepUp:
		e.verifyPassword(value, e.completeStepUp)
	case sdk.ModeSetNew:
		e.setNewPassword(value, nil)
	case sdk.ModeExpiredUpdate:
		e.mu.Lock()
		old := e.st.oldPassword
		e.mu.Unlock()
		e.setNewPassword(value, []string{old})
	}
}

// verifyPassword runs the shared verify path: cooling period, bcrypt
// compare, attempts accounting. onSuccess continues the owning flow.
func (e *Engine) verifyPassword(value string, onSuccess func(u *repository.User)) {
	ctx := context.Background()
	e.mu.Lock()
	mode := e.st.pendingMode
	cooling := e.st.coolingUntil
	e.mu.Unlock()

	if !cooling.IsZero() {
		if remaining := time.Until(cooling); remaining > 0 {
			e.emitChallenge(sdk.PasswordChallenge{
				Mode:            mode,
				CooldownSeconds: int(remaining.Seconds()) + 1,
				Status:          sdk.EventStatus{Code: sdk.StatusCoolingPeriod, Message: "too many failures, wait before retrying"},
			})
			return
		}
		e.mu.Lock()
		e.st.coolingUntil = time.Time{}
		e.st.passAttempts = e.cfg.PasswordAttempts
		e.mu.Unlock()
	}

	u, err := e.users.Get(ctx, e.currentUser())
	if err != nil || u == nil {
		e.internal("load user", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(value)) != nil {
		e.mu.Lock()
		e.st.passAttempts--
		left := e.st.passAttempts
		if left <= 0 {
			e.st.coolingUntil = time.Now().Add(e.cfg.Cooldown)
		}
		e.mu.Unlock()
		if left <= 0 {
			e.emitChallenge(sdk.PasswordChallenge{
				Mode:            mode,
				CooldownSeconds: int(e.cfg.Cooldown.Seconds()),
				Status:          sdk.EventStatus{Code: sdk.StatusCoolingPeriod, Message: "attempts exhausted, cooling period started"},
			})
			return
		}
		e.emitChallenge(sdk.PasswordChallenge{
			Mode:         mode,
			AttemptsLeft: left,
			Status:       sdk.EventStatus{Code: sdk.StatusInvalidCredential, Message: "wrong password"},
		})
		return
	}

	if mode == sdk.ModeVerify && e.passwordExpired(u) {
		e.mu.Lock()
		e.st.pendingMode = sdk.ModeExpiredUpdate
		e.st.oldPassword = value
		e.mu.Unlock()
		e.emitChallenge(sdk.PasswordChallenge{
			Mode:   sdk.ModeExpiredUpdate,
			Status: sdk.EventStatus{Code: sdk.StatusCredentialExpired, Message: "password expired, set a new one"},
		})
		return
	}
	onSuccess(u)
}

func (e *Engine) passwordExpired(u *repository.User) bool {
	if e.cfg.PasswordTTL <= 0 || u.PasswordSetAt == nil {
		return false
	}
	return time.Since(*u.PasswordSetAt) > e.cfg.PasswordTTL
}

// setNewPassword validates policy, stores the hash, and continues the
// login. extraRefs are credentials the new value must keep its distance
// from, beyond the username.
func (e *Engine) setNewPassword(value string, extraRefs []string) {
	ctx := context.Background()
	e.mu.Lock()
	mode := e.st.pendingMode
	user := e.st.user
	e.mu.Unlock()

	refs := append([]string{user}, extraRefs...)
	if reason := e.checkPolicy(value, refs); reason != "" {
		e.emitChallenge(sdk.PasswordChallenge{
			Mode:   mode,
			Status: sdk.EventStatus{Code: sdk.StatusPolicyViolation, Message: reason},
		})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		e.internal("hash password", err)
		return
	}
	if err := e.users.SetPassword(ctx, user, string(hash)); err != nil {
		e.internal("store password", err)
		return
	}
	e.mu.Lock()
	e.st.oldPassword = ""
	e.mu.Unlock()
	e.log.Info("password set", zap.String("user", user), zap.String("mode", mode.String()))

	u, err := e.users.Get(ctx, user)
	if err != nil || u == nil {
		e.internal("load user", err)
		return
	}
	e.afterVerify(u)
}

// afterVerify finishes a login once the credential question is settled:
// consent on a device that never answered it, then the session.
func (e *Engine) afterVerify(u *repository.User) {
	ctx := context.Background()
	e.mu.Lock()
	deviceID := e.st.deviceID
	e.mu.Unlock()

	d, err := e.devices.Get(ctx, deviceID)
	if err != nil || d == nil {
		e.internal("load device", err)
		return
	}
	if !d.ConsentLDA {
		e.setPhase(phaseConsent)
		e.emit.Emit(sdk.EventConsent, sdk.ConsentChallenge{
			Prompt: "Allow local device authentication on this device?",
		})
		return
	}
	e.completeLogin(u)
}

func (e *Engine) doSetConsent(granted bool) {
	ctx := context.Background()
	e.mu.Lock()
	deviceID := e.st.deviceID
	user := e.st.user
	e.mu.Unlock()

	if err := e.devices.SetConsent(ctx, deviceID, granted); err != nil {
		e.internal("store consent", err)
		return
	}
	e.log.Info("consent recorded", zap.String("user", user), zap.Bool("granted", granted))
	u, err := e.users.Get(ctx, user)
	if err != nil || u == nil {
		e.internal("load user", err)
		return
	}
	e.completeLogin(u)
}

func (e *Engine) completeLogin(u *repository.User) {
	ctx := context.Background()
	prev := u.LastLoginAt
	// The login stamp and the seeded notifications land together or not
	// at all.
	err := database.WithTx(e.db, func(tx *sql.Tx) error {
		if err := repository.NewUserRepo(tx).TouchLogin(ctx, u.Name); err != nil {
			return err
		}
		if !e.cfg.SeedNotifications {
			return nil
		}
		return e.seedNotifications(ctx, repository.NewNotificationRepo(tx), u.Name)
	})
	if err != nil {
		e.internal("complete login", err)
		return
	}
	session := uuid.NewString()
	e.mu.Lock()
	e.st.sessionID = session
	e.st.prevLoginAt = prev
	e.st.phase = phaseLoggedIn
	if e.cfg.SessionTTL > 0 {
		e.st.sessionTimer = time.AfterFunc(e.cfg.SessionTTL, func() {
			e.submit(func() { e.expireSession(session) })
		})
	}
	e.mu.Unlock()

	e.log.Info("logged in", zap.String("user", u.Name), zap.String("session", session))
	var last time.Time
	if prev != nil {
		last = *prev
	}
	e.emit.Emit(sdk.EventLoggedIn, sdk.LoggedIn{
		User:        u.Name,
		SessionID:   session,
		LastLoginAt: last,
		Status:      sdk.EventStatus{Code: sdk.StatusSuccess},
	})
}

// seedNotifications gives a fresh account something to act on. One of
// the seeded items requires step-up, so that flow is reachable too.
func (e *Engine) seedNotifications(ctx context.Context, notes *repository.NotificationRepo, user string) error {
	n, err := notes.CountOpen(ctx, user)
	if err != nil || n > 0 {
		return err
	}
	expires := database.Now().Add(24 * time.Hour)
	seed := []repository.Notification{
		{ID: uuid.NewString(), UserName: user, Subject: "Welcome", Body: "Your device is now activated.", Actions: []string{"Dismiss"}, Status: repository.NotificationOpen},
		{ID: uuid.NewString(), UserName: user, Subject: "New sign-in", Body: "A new device signed in to your account.", Actions: []string{"It was me", "Report"}, Status: repository.NotificationOpen, ExpiresAt: &expires},
		{ID: uuid.NewString(), UserName: user, Subject: "Payment approval", Body: "Transfer of 1,250.00 awaiting approval.", Actions: []string{"Approve", "Decline"}, StepUp: true, Status: repository.NotificationOpen, ExpiresAt: &expires},
	}
	for _, s := range seed {
		if err := notes.Create(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) doGetNotifications() {
	ctx := context.Background()
	rows, err := e.notes.ListOpen(ctx, e.currentUser())
	if err != nil {
		e.emit.Emit(sdk.EventNotifications, sdk.Notifications{
			Error: sdk.EventError{Code: sdk.ErrInternal, Message: "notification query failed"},
		})
		e.log.Error("list notifications", zap.Error(err))
		return
	}
	items := make([]sdk.Notification, 0, len(rows))
	for _, r := range rows {
		var exp time.Time
		if r.ExpiresAt != nil {
			exp = *r.ExpiresAt
		}
		items = append(items, sdk.Notification{
			ID:        r.ID,
			Subject:   r.Subject,
			Body:      r.Body,
			Actions:   r.Actions,
			ExpiresAt: exp,
			Status:    r.Status,
		})
	}
	e.emit.Emit(sdk.EventNotifications, sdk.Notifications{
		Items:  items,
		Status: sdk.EventStatus{Code: sdk.StatusSuccess},
	})
}

func (e *Engine) doUpdateNotification(id, action string) {
	ctx := context.Background()
	n, err := e.notes.Get(ctx, id)
	if err != nil {
		e.internal("load notification", err)
		return
	}
	if n == nil || n.Status != repository.NotificationOpen {
		e.emit.Emit(sdk.EventNotificationUpdate, sdk.NotificationUpdate{
			ID: id, Action: action,
			Status: sdk.EventStatus{Code: sdk.StatusUnknownAction, Message: "no such open notification"},
		})
		return
	}
	valid := false
	for _, a := range n.Actions {
		if strings.EqualFold(a, action) {
			valid = true
			action = a
			break
		}
	}
	if !valid {
		e.emit.Emit(sdk.EventNotificationUpdate, sdk.NotificationUpdate{
			ID: id, Action: action,
			Status: sdk.EventStatus{Code: sdk.StatusUnknownAction, Message: "action not offered by this notification"},
		})
		return
	}
	if n.StepUp {
		e.mu.Lock()
		e.st.stepUpID = id
		e.st.stepUpAction = action
		e.st.pendingMode = sdk.ModeStepUp
		e.st.passAttempts = e.cfg.PasswordAttempts
		e.st.coolingUntil = time.Time{}
		e.st.phase = phaseStepUp
		attempts := e.st.passAttempts
		e.mu.Unlock()
		e.emitChallenge(sdk.PasswordChallenge{
			Mode:                 sdk.ModeStepUp,
			AttemptsLeft:         attempts,
			ActionNotificationID: id,
			ActionLabel:          action,
		})
		return
	}
	e.closeNotification(ctx, id, action)
}

// cancelStepUp abandons a pending step-up challenge, returning the
// session to its logged-in state. The notification stays open and can
// be acted on again. No-op outside a step-up.
func (e *Engine) cancelStepUp() {
	e.mu.Lock()
	abandoned := e.st.phase == phaseStepUp
	if abandoned {
		e.st.stepUpID, e.st.stepUpAction = "", ""
		e.st.phase = phaseLoggedIn
	}
	e.mu.Unlock()
	if abandoned {
		e.log.Info("step-up challenge abandoned")
	}
}

func (e *Engine) completeStepUp(_ *repository.User) {
	ctx := context.Background()
	e.mu.Lock()
	id, action := e.st.stepUpID, e.st.stepUpAction
	e.st.stepUpID, e.st.stepUpAction = "", ""
	e.st.phase = phaseLoggedIn
	e.mu.Unlock()
	e.closeNotification(ctx, id, action)
}

func (e *Engine) closeNotification(ctx context.Context, id, action string) {
	if err := e.notes.Close(ctx, id, action); err != nil {
		e.internal("close notification", err)
		return
	}
	e.log.Info("notification resolved", zap.String("id", id), zap.String("action", action))
	e.emit.Emit(sdk.EventNotificationUpdate, sdk.NotificationUpdate{
		ID: id, Action: action,
		Status: sdk.EventStatus{Code: sdk.StatusSuccess},
	})
}

func (e *Engine) doReset() {
	e.mu.Lock()
	user := e.st.user
	e.st.clear()
	e.mu.Unlock()
	e.log.Info("auth state reset", zap.String("user", user))
	e.emit.Emit(sdk.EventAuthReset, sdk.AuthReset{User: user})
	e.issueUserChallenge(sdk.EventStatus{Code: sdk.StatusSuccess})
}

// expireSession ends a session whose TTL ran out. The session id guards
// against a stale timer firing after logoff and a fresh login.
func (e *Engine) expireSession(session string) {
	e.mu.Lock()
	if e.st.sessionID != session {
		e.mu.Unlock()
		return
	}
	user := e.st.user
	e.st.clear()
	e.mu.Unlock()
	e.log.Info("session expired", zap.String("user", user))
	e.emit.Emit(sdk.EventSessionTimeout, sdk.SessionTimeout{User: user})
	e.issueUserChallenge(sdk.EventStatus{Code: sdk.StatusSuccess})
}

func (e *Engine) doLogOff() {
	e.mu.Lock()
	user := e.st.user
	e.st.clear()
	e.mu.Unlock()
	e.log.Info("logged off", zap.String("user", user))
	e.emit.Emit(sdk.EventLoggedOff, sdk.LoggedOff{User: user})
	e.issueUserChallenge(sdk.EventStatus{Code: sdk.StatusSuccess})
}

func (e *Engine) currentUser() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.user
}

// emitChallenge sends a password challenge on the shared topic. Variant
// routing happens in the client. Step-up retries keep their action
// fields so the screen can re-describe what is being approved.
func (e *Engine) emitChallenge(ch sdk.PasswordChallenge) {
	if ch.Mode == sdk.ModeStepUp && ch.ActionNotificationID == "" {
		e.mu.Lock()
		ch.ActionNotificationID = e.st.stepUpID
		ch.ActionLabel = e.st.stepUpAction
		e.mu.Unlock()
	}
	e.emit.Emit(sdk.EventPassword, ch)
}

// terminate ends the flow hard: attempts exhausted somewhere that does
// not warrant a cooling period.
func (e *Engine) terminate(reason string) {
	e.log.Warn("session terminated", zap.String("reason", reason))
	e.mu.Lock()
	e.st.clear()
	e.mu.Unlock()
	e.emit.Emit(sdk.EventInitError, sdk.InitFailure{
		Error: sdk.EventError{Code: sdk.ErrSessionTerminated, Message: reason},
	})
}

func (e *Engine) internal(op string, err error) {
	e.log.Error(op, zap.Error(err))
	e.emit.Emit(sdk.EventInitError, sdk.InitFailure{
		Error: sdk.EventError{Code: sdk.ErrInternal, Message: op + " failed"},
	})
}
