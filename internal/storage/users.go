package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is a row of the users table.
type User struct {
	UID          string
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}

const userColumns = `uid, email, display_name, avatar_url, password_hash, provider, created_at`

// CreateUser inserts u. Emails are unique regardless of case.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.Provider == "" {
		u.Provider = "password"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.UID, strings.TrimSpace(u.Email), u.DisplayName, u.AvatarURL, u.PasswordHash, u.Provider, u.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (r *SQLiteRepository) GetUser(ctx context.Context, uid string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
}

// UpdateUserProfile changes the display name and, when non-empty, the avatar.
func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, uid, displayName, avatarURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, avatar_url = CASE WHEN ? = '' THEN avatar_url ELSE ? END WHERE uid = ?`,
		displayName, avatarURL, avatarURL, uid)
	if err != nil {
		return fmt.Errorf("update user %s: %w", uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg any) (User, error) {
	var (
		u       User
		created int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.UID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.Provider, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created)
	return u, nil
}
