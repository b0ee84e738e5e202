package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DBTX is the query surface repositories need. Both *sql.DB and
// *sql.Tx satisfy it, so a repository can be bound to a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// User is an enrolled identity known to the engine.
type User struct {
	Name          string
	PasswordHash  string
	PasswordSetAt *time.Time
	LastLoginAt   *time.Time
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User statuses.
const (
	UserActive  = "active"
	UserBlocked = "blocked"
)

// Device is one enrolled app installation for a user.
type Device struct {
	ID               string
	UserName         string
	Status           string
	ActivationCode   string
	CodeExpiresAt    *time.Time
	CodeAttemptsLeft int
	ConsentLDA       bool
	CreatedAt        time.Time
	ActivatedAt      *time.Time
}

// Device statuses.
const (
	DevicePending   = "pending"
	DeviceActivated = "activated"
)

// Notification is an actionable message delivered to a logged-in user.
type Notification struct {
	ID        string
	UserName  string
	Subject   string
	Body      string
	Actions   []string
	StepUp    bool
	Status    string
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationOpen is the status of a notification awaiting an action;
// a closed notification's status is the action it was closed with.
const NotificationOpen = "open"

// joinActions flattens an action list for storage.
func joinActions(actions []string) string {
	return strings.Join(actions, ",")
}

// splitActions restores an action list from storage.
func splitActions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
