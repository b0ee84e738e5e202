package repository

import (
	"context"
	"database/sql"
)

// UserRepo handles users.
type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// Get returns a user by name, or nil when unknown.
func (r *UserRepo) Get(ctx context.Context, name string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT name, password_hash, password_set_at, last_login_at, status, created_at, updated_at
	FROM users WHERE name = ?`, name)
	var u User
	err := row.Scan(&u.Name, &u.PasswordHash, &u.PasswordSetAt, &u.LastLoginAt, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert creates or refreshes a user row.
func (r *UserRepo) Upsert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users(name, password_hash, password_set_at, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(name) DO UPDATE SET
	 password_hash=excluded.password_hash,
	 password_set_at=excluded.password_set_at,
	 status=excluded.status,
	 updated_at=CURRENT_TIMESTAMP;
	`, u.Name, u.PasswordHash, u.PasswordSetAt, u.Status)
	return err
}

// SetPassword stores a new credential hash and stamps password_set_at.
func (r *UserRepo) SetPassword(ctx context.Context, name, hash string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE users SET password_hash = ?, password_set_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	WHERE name = ?`, hash, name)
	return err
}

// TouchLogin stamps last_login_at.
func (r *UserRepo) TouchLogin(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE users SET last_login_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	WHERE name = ?`, name)
	return err
}

// SetStatus updates the account status.
func (r *UserRepo) SetStatus(ctx context.Context, name, status string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE users SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`, status, name)
	return err
}
