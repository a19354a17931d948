// Package session owns the authentication token and current-user identity.
// It is the only package that touches persisted storage; every other
// component sees sessions through the Manager.
package session

import (
	"context"
	"sync"

	"github.com/dshills/shopctl/internal/api"
)

// AuthService is the slice of the API client the manager drives.
type AuthService interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, reg api.Registration) error
	Logout(ctx context.Context) error
	SetToken(token string)
}

// Session is an authenticated identity. A nil Session means the app is in
// its unauthenticated state.
type Session struct {
	Token string
	User  api.User
}

// Manager gates all authenticated components: it restores, creates and
// destroys sessions and keeps the API client's token in step.
type Manager struct {
	auth  AuthService
	store Store
	logf  func(format string, args ...any)

	// OnLogout, when set, runs after local state is cleared — both for
	// explicit logouts and forced ones. Views use it to reset dependent
	// state (cart count, active view) and return to the login screen.
	OnLogout func()

	mu      sync.Mutex
	current *Session
}

// NewManager returns a Manager over the given auth service and store.
// logf may be nil.
func NewManager(auth AuthService, store Store, logf func(string, ...any)) *Manager {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Manager{auth: auth, store: store, logf: logf}
}

// Restore loads a persisted session, if any, and re-arms the API client
// with its token. Returns nil when no session is stored.
func (m *Manager) Restore() (*Session, error) {
	st, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	sess := &Session{Token: st.Token, User: st.User}
	m.auth.SetToken(st.Token)
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return sess, nil
}

// Login authenticates, installs the token and persists the session.
// A failed persist does not fail the login; the session is still usable
// for the life of this process.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) (*Session, error) {
	res, err := m.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	sess := &Session{Token: res.Token, User: res.User}
	m.auth.SetToken(res.Token)
	if err := m.store.Save(State{Token: res.Token, User: res.User}); err != nil {
		m.logf("persisting session failed: %s", err)
	}
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return sess, nil
}

// Register creates an account. It does not authenticate; server-side
// validation failures come back verbatim.
func (m *Manager) Register(ctx context.Context, reg api.Registration) error {
	return m.auth.Register(ctx, reg)
}

// Logout invalidates the server-side session on a best-effort basis and
// unconditionally clears local state. A dead network during logout must
// never leave the client stuck logged in.
func (m *Manager) Logout(ctx context.Context) {
	if m.Current() != nil {
		if err := m.auth.Logout(ctx); err != nil {
			m.logf("server-side logout failed: %s", err)
		}
	}
	m.clear()
}

// ForceLogout clears local state without calling the server. Wire it to the
// API client's unauthorized hook so an expired token anywhere in the app
// drops it back to the unauthenticated entry point.
func (m *Manager) ForceLogout() {
	m.clear()
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) clear() {
	if err := m.store.Clear(); err != nil {
		m.logf("clearing session store failed: %s", err)
	}
	m.auth.SetToken("")
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	if m.OnLogout != nil {
		m.OnLogout()
	}
}
