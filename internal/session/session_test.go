package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

func newTestManager() *Manager {
	return NewManager("test-secret", "test_session", 3600)
}

// roundTrip applies the cookies written by a previous response to a fresh
// request, mimicking the browser.
func roundTrip(t *testing.T, rec *httptest.ResponseRecorder, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.SaveToken(rec, req, "tok-123"))

	sess := m.Current(roundTrip(t, rec, "/"))
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "tok-123", sess.Token)
}

func TestMissingCookieIsUnauthenticated(t *testing.T) {
	m := newTestManager()
	sess := m.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, sess.Authenticated())
}

func TestClearDestroysSession(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.SaveToken(rec, req, "tok-123"))

	// Logout: the cleared cookie must not authenticate anything afterwards.
	authed := roundTrip(t, rec, "/logout")
	clearRec := httptest.NewRecorder()
	require.NoError(t, m.Clear(clearRec, authed))

	sess := m.Current(roundTrip(t, clearRec, "/"))
	assert.False(t, sess.Authenticated(), "stale credentials must not survive logout")
}

func TestHandoffIsConsumedOnFirstRead(t *testing.T) {
	m := newTestManager()
	handoff := domain.GatewayHandoff{
		DepositURL:   "https://gateway.example.com/init",
		DepositToken: "tkn-1",
		PropertyID:   "42",
		PropertyURL:  "https://listings.example.com/42",
		Price:        10000,
		Currency:     "CLP",
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/purchases", nil)
	require.NoError(t, m.StashHandoff(rec, req, handoff))

	firstReq := roundTrip(t, rec, "/confirm-purchase")
	firstRec := httptest.NewRecorder()
	got, ok := m.TakeHandoff(firstRec, firstReq)
	require.True(t, ok)
	assert.Equal(t, handoff, *got)

	// A refresh carries the updated cookie: the payload is gone.
	secondReq := roundTrip(t, firstRec, "/confirm-purchase")
	_, ok = m.TakeHandoff(httptest.NewRecorder(), secondReq)
	assert.False(t, ok, "the handoff payload is single-use")
}

func TestFlashesAreOneTime(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallet/recharge", nil)
	m.Flash(rec, req, "Recarga exitosa")

	firstReq := roundTrip(t, rec, "/properties/42")
	firstRec := httptest.NewRecorder()
	assert.Equal(t, []string{"Recarga exitosa"}, m.TakeFlashes(firstRec, firstReq))

	secondReq := roundTrip(t, firstRec, "/properties/42")
	assert.Empty(t, m.TakeFlashes(httptest.NewRecorder(), secondReq))
}

func TestEmailFromTokenClaims(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"mail claim", sign(jwt.MapClaims{"mail": "ana@example.com"}), "ana@example.com"},
		{"email claim", sign(jwt.MapClaims{"email": "bob@example.com"}), "bob@example.com"},
		{"mail wins over email", sign(jwt.MapClaims{"mail": "a@x.cl", "email": "b@x.cl"}), "a@x.cl"},
		{"no usable claim", sign(jwt.MapClaims{"sub": "123"}), "Usuario"},
		{"garbage token", "not-a-jwt", "Usuario"},
		{"empty token", "", "Usuario"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Session{Token: tc.token}.Email())
		})
	}
}
