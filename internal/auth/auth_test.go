package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"foco/internal/storage"
)

type fakeUsers struct {
	mu    sync.Mutex
	byUID map[string]storage.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byUID: map[string]storage.User{}} }

func (f *fakeUsers) CreateUser(_ context.Context, u storage.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byUID {
		if strings.EqualFold(existing.Email, u.Email) {
			return storage.ErrEmailTaken
		}
	}
	f.byUID[u.UID] = u
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byUID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotFound
}

func (f *fakeUsers) GetUser(_ context.Context, uid string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byUID[uid]
	if !ok {
		return storage.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateUserProfile(_ context.Context, uid, name, avatar string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byUID[uid]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.DisplayName = name
	if avatar != "" {
		u.AvatarURL = avatar
	}
	f.byUID[uid] = u
	return nil
}

func newTestProvider() (*LocalProvider, *fakeUsers) {
	users := newFakeUsers()
	p := NewLocalProvider(users)
	p.cost = bcrypt.MinCost
	return p, users
}

func TestLocalSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p, users := newTestProvider()

	id, err := p.SignUp(ctx, " ana@example.com ", "segredo1", "Ana")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.UID == "" || id.Email != "ana@example.com" || id.DisplayName != "Ana" {
		t.Fatalf("unexpected identity %+v", id)
	}
	stored, _ := users.GetUser(ctx, id.UID)
	if stored.PasswordHash == "" || stored.PasswordHash == "segredo1" {
		t.Fatal("password must be stored hashed")
	}

	got, err := p.SignIn(ctx, "ana@example.com", "segredo1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got != id {
		t.Fatalf("SignIn identity = %+v, want %+v", got, id)
	}
}

func TestLocalProviderErrors(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider()
	if _, err := p.SignUp(ctx, "bia@example.com", "segredo1", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate email", func() error { _, err := p.SignUp(ctx, "BIA@example.com", "outra123", ""); return err }, ErrEmailInUse},
		{"short password", func() error { _, err := p.SignUp(ctx, "c@example.com", "123", ""); return err }, ErrWeakPassword},
		{"bad email", func() error { _, err := p.SignUp(ctx, "not-an-email", "segredo1", ""); return err }, ErrInvalidEmail},
		{"wrong password", func() error { _, err := p.SignIn(ctx, "bia@example.com", "errada"); return err }, ErrWrongPassword},
		{"unknown user", func() error { _, err := p.SignIn(ctx, "ninguem@example.com", "segredo1"); return err }, ErrUserNotFound},
		{"update unknown", func() error { return p.UpdateDisplayName(ctx, "missing", "X") }, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateDisplayName(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider()
	id, err := p.SignUp(ctx, "caio@example.com", "segredo1", "Caio")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.UpdateDisplayName(ctx, id.UID, "  Caio Souza "); err != nil {
		t.Fatal(err)
	}
	got, err := p.Lookup(ctx, id.UID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Caio Souza" {
		t.Fatalf("display name = %q", got.DisplayName)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEmailInUse, "Este e-mail já está em uso."},
		{ErrWrongPassword, "Senha incorreta."},
		{ErrUserNotFound, "Usuário não encontrado."},
		{errors.New("boom"), "Erro ao autenticar. Verifique seus dados."},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSessions(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, err := s.Issue(Identity{UID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	other := NewSessions("another-secret", time.Hour)
	other.now = s.now
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret accepted: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}

	if _, err := s.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted: %v", err)
	}
}

func fakeGoogle(t *testing.T, email, picture string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "google-123",
			"email":   email,
			"name":    "Dora",
			"picture": picture,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server, users UserStore) *GoogleProvider {
	p := NewGoogleProvider(GoogleConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/cb"},
		users, option.WithEndpoint(srv.URL+"/"))
	p.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	return p
}

func TestGoogleExchangeRegistersOnce(t *testing.T) {
	ctx := context.Background()
	srv := fakeGoogle(t, "dora@example.com", "https://img/1.png")
	users := newFakeUsers()
	p := newTestGoogle(srv, users)

	if u := p.AuthCodeURL("st"); !strings.Contains(u, "state=st") || !strings.HasPrefix(u, srv.URL+"/auth") {
		t.Fatalf("AuthCodeURL = %s", u)
	}

	first, err := p.Exchange(ctx, "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if first.Email != "dora@example.com" || first.DisplayName != "Dora" || first.AvatarURL != "https://img/1.png" {
		t.Fatalf("identity = %+v", first)
	}
	second, err := p.Exchange(ctx, "good-code")
	if err != nil {
		t.Fatal(err)
	}
	if second.UID != first.UID {
		t.Fatalf("uid changed between sign ins: %s vs %s", first.UID, second.UID)
	}
	if len(users.byUID) != 1 {
		t.Fatalf("expected one stored user, got %d", len(users.byUID))
	}
	if u, _ := users.GetUser(ctx, first.UID); u.Provider != "google" || u.PasswordHash != "" {
		t.Fatalf("stored user = %+v", u)
	}
}

func TestGoogleExchangeFailures(t *testing.T) {
	ctx := context.Background()
	srv := fakeGoogle(t, "", "")
	p := newTestGoogle(srv, nil)

	if _, err := p.Exchange(ctx, "bad-code"); err == nil {
		t.Fatal("expected token exchange failure")
	}
	if _, err := p.Exchange(ctx, "good-code"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("profile without email: err = %v", err)
	}
}

func TestGoogleAccountCannotUsePassword(t *testing.T) {
	ctx := context.Background()
	srv := fakeGoogle(t, "eva@example.com", "")
	users := newFakeUsers()
	if _, err := newTestGoogle(srv, users).Exchange(ctx, "good-code"); err != nil {
		t.Fatal(err)
	}
	local := NewLocalProvider(users)
	if _, err := local.SignIn(ctx, "eva@example.com", "anything"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v", err)
	}
	if _, err := local.SignUp(ctx, "eva@example.com", "segredo1", ""); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("err = %v", err)
	}
}
