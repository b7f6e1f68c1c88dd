package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pazzo-admin/internal/remote"
	"pazzo-admin/pkg/apierror"
)

type fakeAuth struct {
	loginErr  error
	token     string
	resetErr  error
	resetMsg  string
	lastEmail string
	lastPass  string
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*remote.LoginResponse, error) {
	f.lastEmail, f.lastPass = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &remote.LoginResponse{Token: f.token}, nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, email, newPassword string) (string, error) {
	f.lastEmail, f.lastPass = email, newPassword
	return f.resetMsg, f.resetErr
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "nested", "session.db"))

	_, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "token", "a"))
	require.NoError(t, s.Set(ctx, "token", "b"))
	v, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	require.NoError(t, s.Delete(ctx, "token", "missing"))
	_, ok, err = s.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	auth := &fakeAuth{token: "jwt"}

	first, err := NewStore(path)
	require.NoError(t, err)
	m := NewManager(first, auth, nil)
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Login(ctx, " admin@example.com ", "secret"))
	assert.Equal(t, "admin@example.com", auth.lastEmail)
	assert.Equal(t, "jwt", m.Token())
	require.NoError(t, first.Close())

	m2 := NewManager(openStore(t, path), auth, nil)
	require.NoError(t, m2.Init(ctx))
	st := m2.State()
	assert.True(t, st.LoggedIn())
	assert.Equal(t, "admin@example.com", st.Email)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		auth    *fakeAuth
		message string
	}{
		{"server message", &fakeAuth{loginErr: apierror.FromResponse(401, []byte(`{"message":"Invalid credentials"}`))}, "Invalid credentials"},
		{"no server message", &fakeAuth{loginErr: apierror.FromResponse(500, nil)}, "Login failed"},
		{"transport", &fakeAuth{loginErr: errors.New("dial tcp: connection refused")}, "Something went wrong!"},
		{"no token", &fakeAuth{}, "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(openStore(t, filepath.Join(t.TempDir(), "s.db")), tt.auth, nil)
			require.NoError(t, m.Init(ctx))

			err := m.Login(ctx, "admin@example.com", "pw")
			require.Error(t, err)
			assert.Equal(t, tt.message, apierror.Message(err, ""))
			assert.False(t, m.State().LoggedIn())
		})
	}
}

func TestLoginWriteFailureLeavesNoToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "s.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	m := NewManager(s, &fakeAuth{token: "jwt"}, nil)
	require.NoError(t, m.Init(ctx))
	require.NoError(t, s.Close())

	require.Error(t, m.Login(ctx, "admin@example.com", "pw"))
	assert.False(t, m.State().LoggedIn())

	m2 := NewManager(openStore(t, path), nil, nil)
	require.NoError(t, m2.Init(ctx))
	assert.Equal(t, State{}, m2.State())
}

func TestStoreSetAll(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "s.db"))

	require.NoError(t, s.Set(ctx, "token", "old"))
	require.NoError(t, s.SetAll(ctx, map[string]string{"token": "new", "email": "a@b.c"}))

	v, _, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	v, ok, err := s.Get(ctx, "email")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", v)
}

func TestWithoutAuthenticator(t *testing.T) {
	ctx := context.Background()
	m := NewManager(openStore(t, filepath.Join(t.TempDir(), "s.db")), nil, nil)

	assert.ErrorIs(t, m.Login(ctx, "admin@example.com", "pw"), ErrNoAuthenticator)
	assert.False(t, m.State().LoggedIn())

	m.SetAuthenticator(&fakeAuth{token: "jwt"})
	require.NoError(t, m.Login(ctx, "admin@example.com", "pw"))

	m.SetAuthenticator(nil)
	_, err := m.ResetPassword(ctx, "n3w")
	assert.ErrorIs(t, err, ErrNoAuthenticator)
}

func TestLoginRequiresCredentials(t *testing.T) {
	auth := &fakeAuth{token: "jwt"}
	m := NewManager(openStore(t, filepath.Join(t.TempDir(), "s.db")), auth, nil)

	err := m.Login(context.Background(), "", "pw")
	assert.True(t, apierror.IsValidation(err))
	assert.Empty(t, auth.lastEmail)
}

func TestLogoutKeepsTheme(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "s.db")
	m := NewManager(openStore(t, path), &fakeAuth{token: "jwt"}, nil)
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Login(ctx, "admin@example.com", "pw"))

	dark, err := m.ToggleDarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, dark)

	require.NoError(t, m.Logout(ctx))
	st := m.State()
	assert.False(t, st.LoggedIn())
	assert.Empty(t, st.Email)
	assert.True(t, st.DarkMode)

	require.NoError(t, m.Init(ctx))
	assert.Equal(t, State{DarkMode: true}, m.State())

	dark, err = m.ToggleDarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, dark)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{token: "jwt", resetMsg: "Password updated"}
	m := NewManager(openStore(t, filepath.Join(t.TempDir(), "s.db")), auth, nil)

	_, err := m.ResetPassword(ctx, "n3w")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, m.Login(ctx, "admin@example.com", "pw"))

	_, err = m.ResetPassword(ctx, "")
	assert.True(t, apierror.IsValidation(err))

	msg, err := m.ResetPassword(ctx, "n3w")
	require.NoError(t, err)
	assert.Equal(t, "Password updated", msg)
	assert.Equal(t, "admin@example.com", auth.lastEmail)
	assert.Equal(t, "n3w", auth.lastPass)

	auth.resetErr = errors.New("eof")
	_, err = m.ResetPassword(ctx, "n3w")
	require.Error(t, err)
	assert.Equal(t, "Error resetting password", apierror.Message(err, ""))
}
