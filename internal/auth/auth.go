// Package auth provides the authentication gate consulted by the backup
// flow: credential acquisition, auth state, and state-change listeners.
// It never surfaces failures as exceptions to callers - a missing or
// unrefreshable credential is a falsy outcome, and the calling flow
// degrades to its signed-out behavior.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// State describes the gate's current authentication state.
type State struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	CurrentUser     string `json:"currentUser,omitempty"`
}

// Listener is invoked with the new state whenever authentication flips.
// Delivery is at-most-once per transition and synchronous relative to
// the state change.
type Listener func(State)

// Manager is the auth gate implementation: it owns the cached
// credential, performs silent refresh against the OAuth endpoint, and
// notifies listeners on state transitions.
type Manager struct {
	oauth  *OAuthClient
	cache  *TokenCache
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
	user        string
	signedIn    bool

	listenerMu sync.Mutex
	listeners  map[string]Listener
}

// NewManager creates the auth gate. Cached credentials are loaded
// eagerly so a previous session survives a restart; load failures leave
// the gate signed out.
func NewManager(oauth *OAuthClient, cache *TokenCache, logger *slog.Logger) *Manager {
	m := &Manager{
		oauth:     oauth,
		cache:     cache,
		logger:    logger,
		listeners: make(map[string]Listener),
	}

	if cred, err := cache.Load(); err == nil && cred != nil {
		m.signedIn = true
		m.user = cred.User
		logger.Info("restored cached credential", "user", cred.User)
	}

	return m
}

// Authenticate attempts to obtain a usable access token. With
// interactive=false it tries silent acquisition only - cached access
// token first, then a refresh-token exchange - and fails fast (returns
// false) when neither is available. interactive=true additionally
// permits the consent flow; the server cannot show a prompt itself, so
// the consent URL is surfaced through ConsentURL and completion arrives
// via CompleteSignIn.
func (m *Manager) Authenticate(ctx context.Context, interactive bool) (bool, error) {
	if token, _ := m.Token(ctx); token != "" {
		return true, nil
	}

	if !interactive {
		return false, nil
	}

	// Interactive acquisition is driven by the client completing the
	// consent flow; nothing more to do here.
	return false, nil
}

// Token returns a valid bearer token, refreshing silently if the cached
// access token is missing or expired. Returns "" when no credential is
// available; absence of a token is a failure value, not an error.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()

	if m.accessToken != "" && time.Now().Before(m.expiry.Add(-30*time.Second)) {
		token := m.accessToken
		m.mu.Unlock()
		return token, nil
	}

	cred, err := m.cache.Load()
	if err != nil || cred == nil || cred.RefreshToken == "" {
		m.mu.Unlock()
		return "", nil
	}

	token, err := m.oauth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("silent token refresh failed", "error", err)
		return "", nil
	}

	m.accessToken = token.AccessToken
	m.expiry = token.Expiry
	transitioned := !m.signedIn
	if transitioned {
		m.signedIn = true
		m.user = cred.User
	}
	access := m.accessToken
	state := State{IsAuthenticated: m.signedIn, CurrentUser: m.user}
	m.mu.Unlock()

	// Listeners run outside m.mu so they may call back into the gate.
	if transitioned {
		m.notify(state)
	}
	return access, nil
}

// CompleteSignIn exchanges an authorization code obtained from the
// interactive consent flow and stores the resulting credential.
func (m *Manager) CompleteSignIn(ctx context.Context, code, redirectURI string) error {
	token, err := m.oauth.Exchange(ctx, code, redirectURI)
	if err != nil {
		return err
	}

	cred := &Credential{
		RefreshToken: token.RefreshToken,
		User:         token.User,
	}
	if err := m.cache.Save(cred); err != nil {
		return err
	}

	m.mu.Lock()
	m.accessToken = token.AccessToken
	m.expiry = token.Expiry
	m.user = token.User
	m.signedIn = true
	state := State{IsAuthenticated: true, CurrentUser: token.User}
	m.mu.Unlock()

	m.logger.Info("sign-in completed", "user", token.User)
	m.notify(state)
	return nil
}

// ConsentURL returns the provider consent URL for interactive sign-in.
func (m *Manager) ConsentURL(redirectURI string) string {
	return m.oauth.ConsentURL(redirectURI)
}

// IsAuthenticated reports whether a credential is available.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signedIn
}

// CurrentState returns a snapshot of the gate's state.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{IsAuthenticated: m.signedIn, CurrentUser: m.user}
}

// SignOut clears the cached credential and notifies listeners. Returns
// false when the gate was already signed out.
func (m *Manager) SignOut() bool {
	m.mu.Lock()
	wasSignedIn := m.signedIn
	m.accessToken = ""
	m.expiry = time.Time{}
	m.user = ""
	m.signedIn = false
	m.mu.Unlock()

	if err := m.cache.Clear(); err != nil {
		m.logger.Warn("failed to clear credential cache", "error", err)
	}

	if wasSignedIn {
		m.logger.Info("signed out")
		m.notify(State{})
	}
	return wasSignedIn
}

// OnAuthStateChanged registers a listener and returns an unsubscribe
// function. A listener registered while already authenticated is invoked
// immediately with the current state; past transitions are not replayed.
func (m *Manager) OnAuthStateChanged(listener Listener) func() {
	id := gonanoid.Must()

	m.listenerMu.Lock()
	m.listeners[id] = listener
	m.listenerMu.Unlock()

	if state := m.CurrentState(); state.IsAuthenticated {
		listener(state)
	}

	return func() {
		m.listenerMu.Lock()
		delete(m.listeners, id)
		m.listenerMu.Unlock()
	}
}

// notify delivers state to every listener, synchronously relative to
// the transition. Callers pass the state captured at the transition and
// must not hold m.mu, so listeners are free to call back into the gate.
func (m *Manager) notify(state State) {
	m.listenerMu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenerMu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
