package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/uniken-public/codelab-go/internal/database/repository"
)

func openTestDB(t *testing.T) *testDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &testDB{
		DB:            db,
		Users:         repository.NewUserRepo(db),
		Devices:       repository.NewDeviceRepo(db),
		Notifications: repository.NewNotificationRepo(db),
	}
}

type testDB struct {
	DB            *sql.DB
	Users         *repository.UserRepo
	Devices       *repository.DeviceRepo
	Notifications *repository.NotificationRepo
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if u, err := d.Users.Get(ctx, "alice"); err != nil || u != nil {
		t.Fatalf("Get(unknown) = %v, %v; want nil, nil", u, err)
	}

	if err := d.Users.Upsert(ctx, repository.User{Name: "alice", Status: repository.UserActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := d.Users.SetPassword(ctx, "alice", "hash-1"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	u, err := d.Users.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "hash-1" {
		t.Fatalf("hash = %q, want hash-1", u.PasswordHash)
	}
	if u.PasswordSetAt == nil {
		t.Fatal("password_set_at not stamped")
	}
	if u.LastLoginAt != nil {
		t.Fatal("last_login_at set before any login")
	}

	if err := d.Users.TouchLogin(ctx, "alice"); err != nil {
		t.Fatalf("touch login: %v", err)
	}
	u, _ = d.Users.Get(ctx, "alice")
	if u.LastLoginAt == nil {
		t.Fatal("last_login_at not stamped after TouchLogin")
	}
}

func TestDeviceActivationLifecycle(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Users.Upsert(ctx, repository.User{Name: "alice", Status: repository.UserActive}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	expiry := Now().Add(10 * time.Minute)
	dev := repository.Device{
		ID:               "dev-1",
		UserName:         "alice",
		Status:           repository.DevicePending,
		ActivationCode:   "482913",
		CodeExpiresAt:    &expiry,
		CodeAttemptsLeft: 3,
	}
	if err := d.Devices.Create(ctx, dev); err != nil {
		t.Fatalf("create device: %v", err)
	}

	left, err := d.Devices.DecrementCodeAttempts(ctx, "dev-1")
	if err != nil || left != 2 {
		t.Fatalf("decrement = %d, %v; want 2, nil", left, err)
	}

	if err := d.Devices.Activate(ctx, "dev-1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, err := d.Devices.GetByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if got.Status != repository.DeviceActivated {
		t.Fatalf("status = %q, want activated", got.Status)
	}
	if got.ActivationCode != "" || got.CodeExpiresAt != nil {
		t.Fatal("activation challenge not cleared")
	}

	if err := d.Devices.SetConsent(ctx, "dev-1", true); err != nil {
		t.Fatalf("set consent: %v", err)
	}
	got, _ = d.Devices.Get(ctx, "dev-1")
	if !got.ConsentLDA {
		t.Fatal("consent not persisted")
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Users.Upsert(ctx, repository.User{Name: "alice", Status: repository.UserActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	err := WithTx(d.DB, func(tx *sql.Tx) error {
		return repository.NewUserRepo(tx).SetPassword(ctx, "alice", "hash-1")
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}
	u, _ := d.Users.Get(ctx, "alice")
	if u.PasswordHash != "hash-1" {
		t.Fatalf("hash = %q, want hash-1 after commit", u.PasswordHash)
	}

	boom := errors.New("boom")
	err = WithTx(d.DB, func(tx *sql.Tx) error {
		if err := repository.NewUserRepo(tx).SetPassword(ctx, "alice", "hash-2"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the callback's error", err)
	}
	u, _ = d.Users.Get(ctx, "alice")
	if u.PasswordHash != "hash-1" {
		t.Fatalf("hash = %q, want hash-1 after rollback", u.PasswordHash)
	}
}

func TestNotificationsListAndClose(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Users.Upsert(ctx, repository.User{Name: "alice", Status: repository.UserActive}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	for _, n := range []repository.Notification{
		{ID: "n-1", UserName: "alice", Subject: "Payment approval", Actions: []string{"Approve", "Reject"}, StepUp: true, Status: repository.NotificationOpen},
		{ID: "n-2", UserName: "alice", Subject: "New device alert", Actions: []string{"Acknowledge"}, Status: repository.NotificationOpen},
	} {
		if err := d.Notifications.Create(ctx, n); err != nil {
			t.Fatalf("create %s: %v", n.ID, err)
		}
	}

	open, err := d.Notifications.ListOpen(ctx, "alice")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open = %d, want 2", len(open))
	}
	if got := open[0].Actions; len(got) == 0 {
		t.Fatal("actions lost in round trip")
	}

	if err := d.Notifications.Close(ctx, "n-1", "Approve"); err != nil {
		t.Fatalf("close: %v", err)
	}
	open, _ = d.Notifications.ListOpen(ctx, "alice")
	if len(open) != 1 || open[0].ID != "n-2" {
		t.Fatalf("open after close = %v, want only n-2", open)
	}
	count, err := d.Notifications.CountOpen(ctx, "alice")
	if err != nil || count != 1 {
		t.Fatalf("count = %d, %v; want 1, nil", count, err)
	}

	closed, err := d.Notifications.Get(ctx, "n-1")
	if err != nil {
		t.Fatalf("get closed: %v", err)
	}
	if closed.Status != "Approve" {
		t.Fatalf("closed status = %q, want the resolving action", closed.Status)
	}
}
