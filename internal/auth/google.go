package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	applog "foco/internal/log"
	"foco/internal/storage"
)

// GoogleConfig holds the OAuth client registered in the Google console.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleProvider signs users in with their Google account. Accounts are
// recorded in the users table on first sign in so the uid stays stable.
type GoogleProvider struct {
	cfg   *oauth2.Config
	users UserStore
	// extra options for the userinfo client
	opts []option.ClientOption
}

func NewGoogleProvider(cfg GoogleConfig, users UserStore, opts ...option.ClientOption) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{googleoauth.UserinfoEmailScope, googleoauth.UserinfoProfileScope},
		},
		users: users,
		opts:  opts,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and reads the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("token exchange: %w", err)
	}
	opts := append([]option.ClientOption{option.WithTokenSource(p.cfg.TokenSource(ctx, tok))}, p.opts...)
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("userinfo: %w", err)
	}
	if info.Email == "" {
		return Identity{}, ErrInvalidEmail
	}

	id := Identity{UID: info.Id, Email: info.Email, DisplayName: info.Name, AvatarURL: info.Picture}
	if p.users == nil {
		return id, nil
	}
	return p.remember(ctx, id)
}

func (p *GoogleProvider) remember(ctx context.Context, id Identity) (Identity, error) {
	u, err := p.users.GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if id.AvatarURL != "" && id.AvatarURL != u.AvatarURL {
			if err := p.users.UpdateUserProfile(ctx, u.UID, u.DisplayName, id.AvatarURL); err != nil {
				slog.WarnContext(ctx, "Failed to refresh avatar",
					applog.FieldComponent, applog.ComponentAuth,
					applog.FieldUserID, u.UID,
					applog.FieldError, err)
			}
			u.AvatarURL = id.AvatarURL
		}
		return identityOf(u), nil
	case errors.Is(err, storage.ErrUserNotFound):
		u = storage.User{
			UID:         uuid.NewString(),
			Email:       id.Email,
			DisplayName: id.DisplayName,
			AvatarURL:   id.AvatarURL,
			Provider:    "google",
		}
		if err := p.users.CreateUser(ctx, u); err != nil {
			return Identity{}, err
		}
		slog.InfoContext(ctx, "Google user registered",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldUserID, u.UID)
		return identityOf(u), nil
	default:
		return Identity{}, err
	}
}
