package session

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/shopctl/internal/api"
)

// fakeAuth records calls and returns canned results.
type fakeAuth struct {
	token      string
	loginRes   *api.LoginResult
	loginErr   error
	logoutErr  error
	logoutHits int
}

func (f *fakeAuth) Login(_ context.Context, _ api.Credentials) (*api.LoginResult, error) {
	return f.loginRes, f.loginErr
}
func (f *fakeAuth) Register(_ context.Context, _ api.Registration) error { return nil }
func (f *fakeAuth) Logout(_ context.Context) error {
	f.logoutHits++
	return f.logoutErr
}
func (f *fakeAuth) SetToken(token string) { f.token = token }

func newTestManager(t *testing.T, auth *fakeAuth) (*Manager, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewManager(auth, store, nil), store
}

func TestManager_LoginPersistsAndArmsToken(t *testing.T) {
	auth := &fakeAuth{loginRes: &api.LoginResult{
		Token: "tok-1",
		User:  api.User{ID: "u1", Username: "ana"},
	}}
	m, store := newTestManager(t, auth)

	sess, err := m.Login(context.Background(), api.Credentials{Username: "ana", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Username != "ana" || auth.token != "tok-1" {
		t.Errorf("session = %+v, client token = %q", sess, auth.token)
	}

	st, err := store.Load()
	if err != nil || st == nil {
		t.Fatalf("Load after login: st=%v err=%v", st, err)
	}
	if st.Token != "tok-1" || st.User.Username != "ana" {
		t.Errorf("persisted state = %+v", st)
	}
}

func TestManager_RestoreRoundTrip(t *testing.T) {
	auth := &fakeAuth{loginRes: &api.LoginResult{Token: "tok-2", User: api.User{Username: "bo"}}}
	m, store := newTestManager(t, auth)
	if _, err := m.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A fresh manager over the same store simulates a restart.
	auth2 := &fakeAuth{}
	m2 := NewManager(auth2, store, nil)
	sess, err := m2.Restore()
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if sess == nil || sess.Token != "tok-2" || sess.User.Username != "bo" {
		t.Errorf("restored session = %+v", sess)
	}
	if auth2.token != "tok-2" {
		t.Errorf("client token after restore = %q, want tok-2", auth2.token)
	}
}

func TestManager_RestoreEmpty(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{})
	sess, err := m.Restore()
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if sess != nil {
		t.Errorf("expected no session, got %+v", sess)
	}
}

func TestManager_LogoutClearsLocallyEvenWhenServerFails(t *testing.T) {
	auth := &fakeAuth{
		loginRes:  &api.LoginResult{Token: "tok-3", User: api.User{Username: "cy"}},
		logoutErr: errors.New("connection refused"),
	}
	m, store := newTestManager(t, auth)
	if _, err := m.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	notified := false
	m.OnLogout = func() { notified = true }

	m.Logout(context.Background())

	if auth.logoutHits != 1 {
		t.Errorf("server logout called %d times, want 1", auth.logoutHits)
	}
	if auth.token != "" {
		t.Errorf("client token = %q, want cleared", auth.token)
	}
	if m.Current() != nil {
		t.Error("Current() should be nil after logout")
	}
	st, err := store.Load()
	if err != nil || st != nil {
		t.Errorf("store should be empty after logout: st=%v err=%v", st, err)
	}
	if !notified {
		t.Error("OnLogout was not invoked")
	}
}

func TestManager_ForceLogoutSkipsServer(t *testing.T) {
	auth := &fakeAuth{loginRes: &api.LoginResult{Token: "tok-4"}}
	m, store := newTestManager(t, auth)
	if _, err := m.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m.ForceLogout()

	if auth.logoutHits != 0 {
		t.Errorf("forced logout must not call the server, got %d calls", auth.logoutHits)
	}
	if st, _ := store.Load(); st != nil {
		t.Errorf("store not cleared: %+v", st)
	}
	if auth.token != "" {
		t.Errorf("client token = %q, want cleared", auth.token)
	}
}

func TestFileStore_LoadIgnoresEmptyToken(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(State{Token: ""}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st != nil {
		t.Errorf("a tokenless state should load as nil, got %+v", st)
	}
}
