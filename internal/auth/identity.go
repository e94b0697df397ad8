// Package auth signs users in and issues the session tokens the HTTP layer
// verifies. Password accounts live in the SQLite users table; Google
// accounts go through the OAuth2 authorization-code flow.
package auth

import (
	"context"
	"errors"
)

var (
	ErrEmailInUse    = errors.New("email already in use")
	ErrWrongPassword = errors.New("wrong password")
	ErrUserNotFound  = errors.New("user not found")
	ErrWeakPassword  = errors.New("password too short")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidToken  = errors.New("invalid session token")
)

// Identity is the signed-in user as the rest of the app sees it.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Provider authenticates email and password accounts.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
}

// FederatedProvider authenticates through an external authorization server.
type FederatedProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// Message maps an authentication failure to the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmailInUse):
		return "Este e-mail já está em uso."
	case errors.Is(err, ErrWrongPassword):
		return "Senha incorreta."
	case errors.Is(err, ErrUserNotFound):
		return "Usuário não encontrado."
	case errors.Is(err, ErrWeakPassword):
		return "A senha deve ter pelo menos 6 caracteres."
	default:
		return "Erro ao autenticar. Verifique seus dados."
	}
}

// GoogleMessage is shown when the federated flow fails for any reason.
const GoogleMessage = "Erro ao entrar com Google."
