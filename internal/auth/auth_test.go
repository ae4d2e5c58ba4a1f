package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeepapp/notekeep-server/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIDToken builds an unsigned JWT-shaped token with an email claim.
func fakeIDToken(t *testing.T, email string) string {
	t.Helper()
	claims, err := json.Marshal(map[string]string{"email": email})
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString(claims)
	return header + "." + payload + ".sig"
}

// newTokenEndpoint serves canned token responses keyed by grant_type.
func newTokenEndpoint(t *testing.T, idToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grant := r.FormValue("grant_type")

		resp := map[string]any{
			"access_token": "access-" + grant,
			"expires_in":   3600,
			"id_token":     idToken,
		}
		if grant == "authorization_code" {
			resp["refresh_token"] = "refresh-token-1"
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newManager(t *testing.T, tokenURL string) *auth.Manager {
	t.Helper()
	cache, err := auth.NewTokenCache(t.TempDir())
	require.NoError(t, err)
	oauth := auth.NewOAuthClient(tokenURL, "https://accounts.example.com/auth", "client-id", "client-secret")
	return auth.NewManager(oauth, cache, testLogger())
}

func TestManager_StartsSignedOut(t *testing.T) {
	m := newManager(t, "http://unused.invalid")

	assert.False(t, m.IsAuthenticated())
	state := m.CurrentState()
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, state.CurrentUser)
}

func TestManager_SilentAuthenticateFailsWithoutCredential(t *testing.T) {
	m := newManager(t, "http://unused.invalid")

	ok, err := m.Authenticate(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, ok)

	// Absence of a token is a value, not an error.
	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestManager_CompleteSignInFlow(t *testing.T) {
	srv := newTokenEndpoint(t, fakeIDToken(t, "user@example.com"))
	defer srv.Close()

	m := newManager(t, srv.URL)

	var transitions []auth.State
	unsubscribe := m.OnAuthStateChanged(func(s auth.State) {
		transitions = append(transitions, s)
	})
	defer unsubscribe()

	require.NoError(t, m.CompleteSignIn(context.Background(), "auth-code", "http://127.0.0.1/cb"))

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "user@example.com", m.CurrentState().CurrentUser)

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code", token)

	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].IsAuthenticated)
}

func TestManager_SilentRefreshFromCachedCredential(t *testing.T) {
	srv := newTokenEndpoint(t, fakeIDToken(t, "user@example.com"))
	defer srv.Close()

	dir := t.TempDir()
	cache, err := auth.NewTokenCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Save(&auth.Credential{RefreshToken: "refresh-token-1", User: "user@example.com"}))

	// A fresh manager over the same cache restores the session.
	oauth := auth.NewOAuthClient(srv.URL, "https://accounts.example.com/auth", "client-id", "")
	m := auth.NewManager(oauth, cache, testLogger())

	assert.True(t, m.IsAuthenticated())

	ok, err := m.Authenticate(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token", token)
}

func TestManager_TokenTransitionFromSignedOut(t *testing.T) {
	srv := newTokenEndpoint(t, fakeIDToken(t, "user@example.com"))
	defer srv.Close()

	// Manager built over an empty cache starts signed out; the
	// credential appears afterwards (another writer sharing the dir).
	dir := t.TempDir()
	cache, err := auth.NewTokenCache(dir)
	require.NoError(t, err)
	oauth := auth.NewOAuthClient(srv.URL, "https://accounts.example.com/auth", "client-id", "")
	m := auth.NewManager(oauth, cache, testLogger())
	require.False(t, m.IsAuthenticated())

	require.NoError(t, cache.Save(&auth.Credential{RefreshToken: "refresh-token-1", User: "user@example.com"}))

	// A listener that calls back into the gate must not wedge the
	// signed-out to signed-in transition inside Token.
	var seen []auth.State
	unsubscribe := m.OnAuthStateChanged(func(s auth.State) {
		seen = append(seen, s)
		assert.Equal(t, s.IsAuthenticated, m.IsAuthenticated())
	})
	defer unsubscribe()

	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := m.Token(context.Background())
		done <- result{token, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, "access-refresh_token", res.token)
	case <-time.After(3 * time.Second):
		t.Fatal("Token did not return; state-change notification blocked the gate")
	}

	assert.True(t, m.IsAuthenticated())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].IsAuthenticated)
	assert.Equal(t, "user@example.com", seen[0].CurrentUser)
}

func TestManager_SignOut(t *testing.T) {
	srv := newTokenEndpoint(t, fakeIDToken(t, "user@example.com"))
	defer srv.Close()

	m := newManager(t, srv.URL)
	require.NoError(t, m.CompleteSignIn(context.Background(), "auth-code", "http://127.0.0.1/cb"))

	var states []auth.State
	unsubscribe := m.OnAuthStateChanged(func(s auth.State) { states = append(states, s) })
	defer unsubscribe()
	// Registered while authenticated: invoked immediately.
	require.Len(t, states, 1)

	assert.True(t, m.SignOut())
	assert.False(t, m.IsAuthenticated())
	require.Len(t, states, 2)
	assert.False(t, states[1].IsAuthenticated)

	// Signing out again reports false and does not notify.
	assert.False(t, m.SignOut())
	assert.Len(t, states, 2)
}

func TestManager_UnsubscribeStopsDelivery(t *testing.T) {
	srv := newTokenEndpoint(t, fakeIDToken(t, "user@example.com"))
	defer srv.Close()

	m := newManager(t, srv.URL)

	calls := 0
	unsubscribe := m.OnAuthStateChanged(func(auth.State) { calls++ })
	unsubscribe()

	require.NoError(t, m.CompleteSignIn(context.Background(), "auth-code", "http://127.0.0.1/cb"))
	assert.Zero(t, calls)
}

func TestConsentURL(t *testing.T) {
	oauth := auth.NewOAuthClient("http://unused.invalid", "https://accounts.example.com/auth", "client-id", "")

	raw := oauth.ConsentURL("http://127.0.0.1:8080/cb")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://127.0.0.1:8080/cb", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Contains(t, q.Get("scope"), "drive.file")
}

func TestRefresh_ProviderErrorIsAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"expired"}`))
	}))
	defer srv.Close()

	oauth := auth.NewOAuthClient(srv.URL, "https://accounts.example.com/auth", "client-id", "")
	_, err := oauth.Refresh(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}
