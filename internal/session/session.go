// Package session manages the per-browser cookie session: the access token,
// flash messages, and the one-shot gateway handoff payload. It replaces the
// ambient token storage of earlier client drafts with an explicit session
// passed to every authenticated call.
package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

const (
	tokenKey   = "token"
	handoffKey = "gateway_handoff"

	// fallbackName is shown when the token carries no usable email claim.
	fallbackName = "Usuario"
)

// ErrNoSession is returned when the request carries no usable session cookie.
var ErrNoSession = errors.New("no session")

// Session is the authenticated state extracted from the cookie.
type Session struct {
	Token string
}

// Authenticated reports whether the session carries a token. The token is
// not validated locally; the backend answers 401/403 when it is stale.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Email extracts the user's email from the JWT access token for display.
// The token is parsed without signature verification: the frontend never
// trusts it for authorization, only the backend does.
func (s Session) Email() string {
	if s.Token == "" {
		return fallbackName
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return fallbackName
	}
	if v, ok := claims["mail"].(string); ok && v != "" {
		return v
	}
	if v, ok := claims["email"].(string); ok && v != "" {
		return v
	}
	return fallbackName
}

// Manager reads and writes the browser session cookie.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// NewManager creates a session manager. secret signs the session cookie;
// maxAge is the cookie lifetime in seconds. An empty secret gets a random
// one, invalidating existing sessions on restart.
func NewManager(secret, cookieName string, maxAge int) *Manager {
	if secret == "" {
		secret = uuid.NewString()
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: cookieName}
}

// Current returns the session for the request. A missing or undecodable
// cookie yields an empty, unauthenticated session.
func (m *Manager) Current(r *http.Request) Session {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return Session{}
	}
	token, _ := s.Values[tokenKey].(string)
	return Session{Token: token}
}

// SaveToken stores the access token in the session cookie. Called only on
// successful login or signup.
func (m *Manager) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	s, _ := m.store.Get(r, m.name)
	s.Values[tokenKey] = token
	return s.Save(r, w)
}

// Clear destroys the session. After logout no authenticated call can proceed
// with stale credentials because the token is gone from the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, m.name)
	s.Values = map[any]any{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// StashHandoff stores the gateway handoff payload for the confirmation view.
// The payload is serialized as JSON to keep the cookie codec simple.
func (m *Manager) StashHandoff(w http.ResponseWriter, r *http.Request, h domain.GatewayHandoff) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	s, _ := m.store.Get(r, m.name)
	s.Values[handoffKey] = string(raw)
	return s.Save(r, w)
}

// TakeHandoff removes and returns the stashed handoff payload. The payload
// is consumed on first read: a refresh of the confirmation view cannot
// reconstruct it and falls back to the property list.
func (m *Manager) TakeHandoff(w http.ResponseWriter, r *http.Request) (*domain.GatewayHandoff, bool) {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return nil, false
	}
	raw, ok := s.Values[handoffKey].(string)
	if !ok || raw == "" {
		return nil, false
	}
	delete(s.Values, handoffKey)
	if err := s.Save(r, w); err != nil {
		return nil, false
	}
	var h domain.GatewayHandoff
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, false
	}
	return &h, true
}

// Flash queues a one-time message shown on the next rendered page.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, message string) {
	s, _ := m.store.Get(r, m.name)
	s.AddFlash(message)
	s.Save(r, w)
}

// TakeFlashes returns and clears the queued flash messages.
func (m *Manager) TakeFlashes(w http.ResponseWriter, r *http.Request) []string {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return nil
	}
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	s.Save(r, w)
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}
