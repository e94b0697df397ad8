package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync/atomic"
	"time"

	"foco/internal/auth"
	"foco/internal/core"
	applog "foco/internal/log"
)

const oauthStateCookie = "foco_oauth_state"

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type sessionResponse struct {
	Token    string         `json:"token"`
	Identity auth.Identity  `json:"identity"`
	State    core.AuthState `json:"state"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeOrFail(w, r, &in) {
		return
	}
	id, err := s.deps.Accounts.SignUp(r.Context(), in.Email, in.Password, sanitizeInput(in.DisplayName))
	if err != nil {
		s.authFailed(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusCreated, id)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeOrFail(w, r, &in) {
		return
	}
	id, err := s.deps.Accounts.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		s.authFailed(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, id)
}

// handleSignOut clears the caller's device state when the session is still
// valid and always drops the cookie.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.deps.Gateway.State.ClearAuth(s.sessionUID(r))
	http.SetCookie(w, s.cookie(sessionCookie, "", -1))
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAuthState(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.deps.Gateway.State.GetAuth(userID(r))).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DisplayName string `json:"displayName"`
	}
	if !decodeOrFail(w, r, &in) {
		return
	}
	name := sanitizeInput(in.DisplayName)
	if err := s.deps.Accounts.UpdateDisplayName(r.Context(), userID(r), name); err != nil {
		s.authFailed(w, r, err)
		return
	}
	st := s.deps.Gateway.State.GetAuth(userID(r))
	if st.IsAuthenticated {
		st = s.deps.Gateway.State.SetAuth(st.UserID, st.UserEmail, name, st.AvatarURL)
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Google == nil {
		NotFoundError("Login com Google não configurado.").Write(w)
		return
	}
	state, err := randomState()
	if err != nil {
		InternalServerError(auth.GoogleMessage).Write(w)
		return
	}
	http.SetCookie(w, s.cookie(oauthStateCookie, state, int((10*time.Minute).Seconds())))
	http.Redirect(w, r, s.deps.Google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Google == nil {
		NotFoundError("Login com Google não configurado.").Write(w)
		return
	}
	q := r.URL.Query()
	c, err := r.Cookie(oauthStateCookie)
	if q.Get("error") != "" || err != nil || c.Value == "" || c.Value != q.Get("state") {
		s.log(r).WarnContext(r.Context(), "Google callback rejected",
			"oauth_error", q.Get("error"))
		UnauthorizedError(auth.GoogleMessage).Write(w)
		return
	}
	http.SetCookie(w, s.cookie(oauthStateCookie, "", -1))

	id, err := s.deps.Google.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.log(r).ErrorContext(r.Context(), "Google sign in failed",
			applog.FieldError, err)
		UnauthorizedError(auth.GoogleMessage).Write(w)
		return
	}
	s.startSession(w, r, http.StatusOK, id)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]core.Theme{"theme": s.deps.Gateway.State.GetTheme(userID(r))}).Write(w)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Theme core.Theme `json:"theme"`
	}
	if !decodeOrFail(w, r, &in) {
		return
	}
	if err := s.deps.Gateway.State.SetTheme(userID(r), in.Theme); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(map[string]core.Theme{"theme": in.Theme}).Write(w)
}

// startSession issues the token, sets the cookie and records the device
// auth state.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, id auth.Identity) {
	if s.deps.Sessions == nil {
		InternalServerError("Sessões não configuradas.").Write(w)
		return
	}
	token, err := s.deps.Sessions.Issue(id)
	if err != nil {
		s.log(r).ErrorContext(r.Context(), "Failed to issue session", applog.FieldError, err)
		InternalServerError(auth.Message(err)).Write(w)
		return
	}
	http.SetCookie(w, s.cookie(sessionCookie, token, int(s.deps.Sessions.TTL().Seconds())))
	st := s.deps.Gateway.State.SetAuth(id.UID, id.Email, id.DisplayName, id.AvatarURL)
	atomic.AddInt64(&s.appMetrics.signIns, 1)
	s.log(r).InfoContext(r.Context(), "User signed in",
		applog.FieldUserID, id.UID)
	NewResponse().Status(status).JSON(sessionResponse{Token: token, Identity: id, State: st}).Write(w)
}

func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorFor(err, nil)
	if resp.statusCode >= 500 {
		s.log(r).ErrorContext(r.Context(), "Authentication error", applog.FieldError, err)
		resp = InternalServerError(auth.Message(err))
	}
	resp.Write(w)
}

func (s *Server) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
