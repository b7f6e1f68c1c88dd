// Package session keeps the admin's authentication and theme state and
// persists it between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pazzo-admin/internal/remote"
	"pazzo-admin/pkg/apierror"
)

const (
	keyToken    = "token"
	keyEmail    = "email"
	keyDarkMode = "darkMode"
)

var (
	// ErrNotLoggedIn is returned by operations that need an authenticated admin.
	ErrNotLoggedIn = errors.New("session: not logged in")
	// ErrNoAuthenticator is returned when no remote has been set.
	ErrNoAuthenticator = errors.New("session: no authenticator configured")
)

// Authenticator is the part of the remote API the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*remote.LoginResponse, error)
	ResetPassword(ctx context.Context, email, newPassword string) (string, error)
}

// State is a snapshot of the session.
type State struct {
	Token    string
	Email    string
	DarkMode bool
}

// LoggedIn reports whether a token is held.
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Manager owns the session state. It implements remote.TokenSource.
type Manager struct {
	store *Store
	auth  Authenticator
	log   *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewManager creates a manager. Call Init to load persisted state.
func NewManager(store *Store, auth Authenticator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, auth: auth, log: log}
}

// SetAuthenticator replaces the remote used for login and password reset.
func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.mu.Lock()
	m.auth = auth
	m.mu.Unlock()
}

// Init reads the persisted token, email and theme.
func (m *Manager) Init(ctx context.Context) error {
	token, _, err := m.store.Get(ctx, keyToken)
	if err != nil {
		return err
	}
	email, _, err := m.store.Get(ctx, keyEmail)
	if err != nil {
		return err
	}
	dark, _, err := m.store.Get(ctx, keyDarkMode)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state = State{Token: token, Email: email, DarkMode: dark == "true"}
	m.mu.Unlock()
	return nil
}

// Login exchanges credentials for a token and persists it with the email.
// The returned error carries the message to show the user.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return apierror.ValidationError("Email and password are required.")
	}

	m.mu.RLock()
	auth := m.auth
	m.mu.RUnlock()
	if auth == nil {
		return ErrNoAuthenticator
	}

	resp, err := auth.Login(ctx, email, password)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			m.log.Info("login rejected", zap.String("email", email), zap.Int("status", apiErr.StatusCode))
			return apierror.Unauthorized(apierror.Message(err, "Login failed"))
		}
		m.log.Warn("login request failed", zap.Error(err))
		return apierror.ServiceUnavailable("Something went wrong!")
	}
	if resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed"
		}
		return apierror.Unauthorized(msg)
	}

	if err := m.store.SetAll(ctx, map[string]string{keyToken: resp.Token, keyEmail: email}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Token = resp.Token
	m.state.Email = email
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("email", email))
	return nil
}

// Logout clears the token and email. The theme is kept.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, keyToken, keyEmail); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Token = ""
	m.state.Email = ""
	m.mu.Unlock()
	return nil
}

// ToggleDarkMode flips the theme, persists it and returns the new value.
func (m *Manager) ToggleDarkMode(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := !m.state.DarkMode
	if err := m.store.Set(ctx, keyDarkMode, fmt.Sprint(next)); err != nil {
		return m.state.DarkMode, err
	}
	m.state.DarkMode = next
	return next, nil
}

// ResetPassword sets a new password for the logged-in admin and returns the
// server's message.
func (m *Manager) ResetPassword(ctx context.Context, newPassword string) (string, error) {
	if newPassword == "" {
		return "", apierror.ValidationError("Please enter a new password.")
	}

	m.mu.RLock()
	email, auth := m.state.Email, m.auth
	m.mu.RUnlock()
	if email == "" {
		return "", ErrNotLoggedIn
	}
	if auth == nil {
		return "", ErrNoAuthenticator
	}

	msg, err := auth.ResetPassword(ctx, email, newPassword)
	if err != nil {
		m.log.Warn("password reset failed", zap.String("email", email), zap.Error(err))
		return "", apierror.BadRequest(apierror.Message(err, "Error resetting password"))
	}
	return msg, nil
}

// Token returns the current bearer token, empty when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Token
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
