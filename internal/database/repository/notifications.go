package repository

import (
	"context"
	"database/sql"
)

// NotificationRepo handles user notifications.
type NotificationRepo struct {
	db DBTX
}

func NewNotificationRepo(db DBTX) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Get returns a notification by id, or nil when unknown.
func (r *NotificationRepo) Get(ctx context.Context, id string) (*Notification, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, user_name, subject, body, actions, step_up, status, expires_at, created_at, updated_at
	FROM notifications WHERE id = ?`, id)
	var n Notification
	var actions string
	err := row.Scan(&n.ID, &n.UserName, &n.Subject, &n.Body, &actions, &n.StepUp, &n.Status, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.Actions = splitActions(actions)
	return &n, nil
}

// ListOpen returns the user's open, unexpired notifications, newest
// first.
func (r *NotificationRepo) ListOpen(ctx context.Context, userName string) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, user_name, subject, body, actions, step_up, status, expires_at, created_at, updated_at
	FROM notifications
	WHERE user_name = ? AND status = ? AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	ORDER BY created_at DESC`, userName, NotificationOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		var actions string
		if err := rows.Scan(&n.ID, &n.UserName, &n.Subject, &n.Body, &actions, &n.StepUp, &n.Status, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.Actions = splitActions(actions)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, n Notification) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO notifications(id, user_name, subject, body, actions, step_up, status, expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		n.ID, n.UserName, n.Subject, n.Body, joinActions(n.Actions), n.StepUp, n.Status, n.ExpiresAt)
	return err
}

// Close marks a notification with the action that resolved it.
func (r *NotificationRepo) Close(ctx context.Context, id, action string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE notifications SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND status = ?`, action, id, NotificationOpen)
	return err
}

// CountOpen returns the user's open notification count.
func (r *NotificationRepo) CountOpen(ctx context.Context, userName string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM notifications
	WHERE user_name = ? AND status = ? AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`,
		userName, NotificationOpen).Scan(&n)
	return n, err
}
