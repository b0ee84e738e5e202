package repository

import (
	"context"
	"database/sql"
	"time"
)

// DeviceRepo handles device enrollments.
type DeviceRepo struct {
	db DBTX
}

func NewDeviceRepo(db DBTX) *DeviceRepo {
	return &DeviceRepo{db: db}
}

// Get returns a device by id, or nil when unknown.
func (r *DeviceRepo) Get(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, user_name, status, activation_code, code_expires_at, code_attempts_left, consent_lda, created_at, activated_at
	FROM devices WHERE id = ?`, id)
	return scanDevice(row)
}

// GetByUser returns the user's device, or nil when none is enrolled.
// The codelab flow enrolls at most one device per user.
func (r *DeviceRepo) GetByUser(ctx context.Context, userName string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, user_name, status, activation_code, code_expires_at, code_attempts_left, consent_lda, created_at, activated_at
	FROM devices WHERE user_name = ? ORDER BY created_at LIMIT 1`, userName)
	return scanDevice(row)
}

func scanDevice(row *sql.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.UserName, &d.Status, &d.ActivationCode, &d.CodeExpiresAt, &d.CodeAttemptsLeft, &d.ConsentLDA, &d.CreatedAt, &d.ActivatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a pending device with its activation challenge.
func (r *DeviceRepo) Create(ctx context.Context, d Device) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO devices(id, user_name, status, activation_code, code_expires_at, code_attempts_left, consent_lda, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		d.ID, d.UserName, d.Status, d.ActivationCode, d.CodeExpiresAt, d.CodeAttemptsLeft, d.ConsentLDA)
	return err
}

// SetActivationChallenge replaces the device's code, expiry, and budget.
func (r *DeviceRepo) SetActivationChallenge(ctx context.Context, id, code string, expiresAt *time.Time, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE devices SET activation_code = ?, code_expires_at = ?, code_attempts_left = ?, status = ?
	WHERE id = ?`, code, expiresAt, attempts, DevicePending, id)
	return err
}

// DecrementCodeAttempts burns one activation attempt and returns the
// remaining budget.
func (r *DeviceRepo) DecrementCodeAttempts(ctx context.Context, id string) (int, error) {
	_, err := r.db.ExecContext(ctx, `
	UPDATE devices SET code_attempts_left = code_attempts_left - 1
	WHERE id = ? AND code_attempts_left > 0`, id)
	if err != nil {
		return 0, err
	}
	var left int
	err = r.db.QueryRowContext(ctx, `SELECT code_attempts_left FROM devices WHERE id = ?`, id).Scan(&left)
	return left, err
}

// Activate marks the device activated and clears the challenge.
func (r *DeviceRepo) Activate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE devices SET status = ?, activation_code = '', code_expires_at = NULL, activated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, DeviceActivated, id)
	return err
}

// SetConsent records the local-authentication consent decision.
func (r *DeviceRepo) SetConsent(ctx context.Context, id string, granted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE devices SET consent_lda = ? WHERE id = ?`, granted, id)
	return err
}
