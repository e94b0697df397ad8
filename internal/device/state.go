package device

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"foco/internal/core"
)

// StateStore keeps the authentication summary and theme of each user of the
// device.
type StateStore struct {
	kv          KV
	systemTheme core.Theme
	now         func() time.Time
}

// NewStateStore returns a store that falls back to systemTheme when no theme
// was ever chosen.
func NewStateStore(kv KV, systemTheme core.Theme) *StateStore {
	if !systemTheme.Valid() {
		systemTheme = core.ThemeLight
	}
	return &StateStore{kv: kv, systemTheme: systemTheme, now: time.Now}
}

// GetAuth returns the stored summary of uid, or an unauthenticated one.
func (s *StateStore) GetAuth(uid string) core.AuthState {
	if uid == "" {
		return core.AuthState{}
	}
	raw, ok := s.kv.Get(UserKey(KeyAuth, uid))
	if !ok {
		return core.AuthState{}
	}
	var st core.AuthState
	if err := json.Unmarshal(raw, &st); err != nil {
		slog.Warn("Discarding unreadable auth state", "error", err)
		return core.AuthState{}
	}
	if st.UserID != uid {
		return core.AuthState{}
	}
	return st
}

// SetAuth records a signed-in user. The name defaults to the local part of
// the email. An empty email clears the state.
func (s *StateStore) SetAuth(userID, email, name, avatarURL string) core.AuthState {
	email = strings.TrimSpace(email)
	if email == "" || userID == "" {
		s.ClearAuth(userID)
		return core.AuthState{}
	}
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	st := core.AuthState{
		IsAuthenticated: true,
		UserID:          userID,
		UserEmail:       email,
		UserName:        name,
		AvatarURL:       avatarURL,
		LastLogin:       s.now().UnixMilli(),
	}
	raw, err := json.Marshal(st)
	if err != nil {
		slog.Error("Failed to encode auth state", "error", err)
		return st
	}
	s.kv.Set(UserKey(KeyAuth, userID), raw)
	return st
}

func (s *StateStore) ClearAuth(uid string) {
	if uid == "" {
		return
	}
	s.kv.Delete(UserKey(KeyAuth, uid))
}

// GetTheme returns the theme chosen by uid, or the system preference.
func (s *StateStore) GetTheme(uid string) core.Theme {
	if raw, ok := s.kv.Get(UserKey(KeyTheme, uid)); ok {
		if t := core.Theme(raw); t.Valid() {
			return t
		}
	}
	return s.systemTheme
}

func (s *StateStore) SetTheme(uid string, t core.Theme) error {
	if !t.Valid() {
		return core.ErrInvalidTheme
	}
	s.kv.Set(UserKey(KeyTheme, uid), []byte(t))
	return nil
}
