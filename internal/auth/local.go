package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "foco/internal/log"
	"foco/internal/storage"
)

const (
	minPasswordLength = 6
	bcryptCost        = 12
)

// UserStore is the persistence the providers need. *storage.SQLiteRepository
// satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, u storage.User) error
	GetUserByEmail(ctx context.Context, email string) (storage.User, error)
	GetUser(ctx context.Context, uid string) (storage.User, error)
	UpdateUserProfile(ctx context.Context, uid, displayName, avatarURL string) error
}

// LocalProvider keeps bcrypt password hashes in the users table.
type LocalProvider struct {
	users UserStore
	cost  int
}

func NewLocalProvider(users UserStore) *LocalProvider {
	return &LocalProvider{users: users, cost: bcryptCost}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if len(password) < minPasswordLength {
		return Identity{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	u := storage.User{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Provider:     "password",
	}
	if err := p.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return Identity{}, ErrEmailInUse
		}
		return Identity{}, err
	}
	slog.InfoContext(ctx, "User signed up",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldUserID, u.UID)
	return identityOf(u), nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	u, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return Identity{}, ErrUserNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	if u.PasswordHash == "" {
		// Federated account without a password.
		return Identity{}, ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Rejected sign in",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldUserID, u.UID)
		return Identity{}, ErrWrongPassword
	}
	return identityOf(u), nil
}

func (p *LocalProvider) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	err := p.users.UpdateUserProfile(ctx, uid, strings.TrimSpace(displayName), "")
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Lookup returns the identity stored for uid.
func (p *LocalProvider) Lookup(ctx context.Context, uid string) (Identity, error) {
	u, err := p.users.GetUser(ctx, uid)
	if errors.Is(err, storage.ErrUserNotFound) {
		return Identity{}, ErrUserNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return identityOf(u), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func identityOf(u storage.User) Identity {
	return Identity{UID: u.UID, Email: u.Email, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}
