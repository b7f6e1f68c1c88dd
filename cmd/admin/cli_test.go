package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pazzo-admin/internal/config"
	"pazzo-admin/internal/model"
	"pazzo-admin/internal/resource"
	"pazzo-admin/internal/session"
	"pazzo-admin/internal/twin"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "secret"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type harness struct {
	t         *testing.T
	app       *twin.App
	url       string
	sessionDB string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		App:   config.AppConfig{Name: "pazzo-admin", Version: "test"},
		Cache: config.CacheConfig{Type: "memory", TTL: time.Hour},
		Twin: config.TwinConfig{
			DBType:        "sqlite",
			DBPath:        filepath.Join(dir, "twin.db"),
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
			RequireAuth:   true,
			MaxUploadMB:   5,
		},
	}
	app, err := twin.New(context.Background(), cfg, resource.DefaultTable(), zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})

	return &harness{t: t, app: app, url: srv.URL, sessionDB: filepath.Join(dir, "session.db")}
}

// run executes one admin command with stdin and returns its output.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	return h.runWith(&cli{logger: zap.NewNop()}, stdin, args...)
}

func (h *harness) runWith(c *cli, stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := c.rootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api-url", h.url, "--session-db", h.sessionDB}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	out, err := h.run("", "login", "--email", adminEmail, "--password", adminPassword)
	require.NoError(h.t, err)
	require.Contains(h.t, out, "Logged in as "+adminEmail)
}

func (h *harness) only(key string) model.Record {
	h.t.Helper()
	records, err := h.app.Records.List(context.Background(), key)
	require.NoError(h.t, err)
	require.Len(h.t, records, 1)
	return records[0]
}

func TestTimeoutFlag(t *testing.T) {
	t.Setenv("ADMIN_API_TIMEOUT", "45s")
	h := newHarness(t)

	byEnv := &cli{logger: zap.NewNop()}
	_, _ = h.runWith(byEnv, "", "whoami")
	assert.Equal(t, 45*time.Second, byEnv.timeout)

	disabled := &cli{logger: zap.NewNop()}
	_, _ = h.runWith(disabled, "", "--timeout", "0", "whoami")
	assert.Equal(t, time.Duration(0), disabled.timeout)

	explicit := &cli{logger: zap.NewNop()}
	_, _ = h.runWith(explicit, "", "--timeout", "2s", "whoami")
	assert.Equal(t, 2*time.Second, explicit.timeout)
}

func TestViewsRequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"list", "ccs"},
		{"create", "ccs", "--name", "x"},
		{"delete", "ccs", "1", "--yes"},
		{"dashboard"},
		{"reset-password", "--password", "x"},
	} {
		_, err := h.run("", args...)
		assert.ErrorIs(t, err, session.ErrNotLoggedIn, "%v", args)
	}
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "login", "--email", adminEmail, "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	_, err = h.run("", "login")
	require.Error(t, err)
	assert.Equal(t, "Email and password are required.", err.Error())

	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(adminPassword+"\n", "login", "--email", adminEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Logged in as "+adminEmail)
}

func TestRecordLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "list", "ccs")
	require.NoError(t, err)
	assert.Equal(t, "No items found. Click \"Add CCS\" to create one.\n", out)

	out, err = h.run("", "create", "ccs", "--name", "cable", "--price", "2.5", "--description", "cat6")
	require.NoError(t, err)
	assert.Equal(t, "Item added successfully!\n", out)

	rec := h.only("ccs")
	assert.Equal(t, "cable", rec.Name)
	assert.Equal(t, 2.5, rec.Price)

	out, err = h.run("", "list", "ccs")
	require.NoError(t, err)
	assert.Contains(t, out, rec.ID)
	assert.Contains(t, out, "2.50")

	out, err = h.run("", "update", "ccs", rec.ID, "--price", "3")
	require.NoError(t, err)
	assert.Equal(t, "Item updated successfully!\n", out)
	updated := h.only("ccs")
	assert.Equal(t, 3.0, updated.Price)
	assert.Equal(t, "cable", updated.Name)
	assert.Equal(t, "cat6", updated.Description)

	out, err = h.run("n\n", "delete", "ccs", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Are you sure? [y/N] ")
	assert.Contains(t, out, "Cancelled")
	h.only("ccs")

	out, err = h.run("y\n", "delete", "ccs", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Item deleted successfully.")
	assert.Contains(t, out, "No items found.")

	records, err := h.app.Records.List(context.Background(), "ccs")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateUnknownRecord(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("", "update", "ccs", "missing", "--name", "x")
	require.Error(t, err)
	assert.Equal(t, "no CCS with id missing", err.Error())
}

func TestCreateValidationStaysLocal(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("", "create", "firewalls", "--name", "rule", "--price", "1", "--description", "deny")
	require.Error(t, err)
	assert.Equal(t, "Image is required for new Log items.", err.Error())

	_, err = h.run("", "create", "ccs", "--name", "cable", "--price", "ten", "--description", "cat6")
	require.Error(t, err)
	assert.Equal(t, "Price must be a valid non-negative number.", err.Error())

	for _, key := range []string{"firewalls", "ccs"} {
		records, err := h.app.Records.List(context.Background(), key)
		require.NoError(t, err)
		assert.Empty(t, records, key)
	}
}

func TestCreateWithImage(t *testing.T) {
	h := newHarness(t)
	h.login()

	path := filepath.Join(t.TempDir(), "rule.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o600))

	_, err := h.run("", "create", "firewalls", "--name", "rule", "--price", "0", "--description", "deny", "--image", path)
	require.NoError(t, err)

	rec := h.only("firewalls")
	assert.Equal(t, pngBytes, rec.ImageData)
	assert.Equal(t, "image/png", rec.ImageType)

	// bare images come back without a type tag
	out, err := h.run("", "list", "firewalls")
	require.NoError(t, err)
	assert.Contains(t, out, resource.DefaultImageContentType)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))
	_, err = h.run("", "update", "firewalls", rec.ID, "--image", txt)
	require.Error(t, err)
	assert.Equal(t, "Please select a valid image file.", err.Error())
}

func TestThemeSurvivesLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "theme")
	require.NoError(t, err)
	assert.Equal(t, "Theme: dark\n", out)

	_, err = h.run("", "logout")
	require.NoError(t, err)

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\nTheme: dark\n", out)
}

func TestDashboardTotals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, in := range []struct {
		key   string
		price float64
	}{{"openups", 10}, {"openups", 5.5}, {"ccs", 2}} {
		_, err := h.app.Records.Create(ctx, in.key, model.RecordInput{Name: "item", Price: in.price, Description: "d"})
		require.NoError(t, err)
	}
	h.login()

	out, err := h.run("", "dashboard")
	require.NoError(t, err)
	assert.Regexp(t, `UPS\s+2\s+15\.50`, out)
	assert.Regexp(t, `CCS\s+1\s+2\.00`, out)
	assert.Regexp(t, `Log\s+0\s+0\.00`, out)
	assert.Regexp(t, `Total\s+3\s+17\.50`, out)
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "reset-password", "--password", "n3w")
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully\n", out)

	_, err = h.run("", "logout")
	require.NoError(t, err)

	_, err = h.run("", "login", "--email", adminEmail, "--password", adminPassword)
	assert.Error(t, err)
	_, err = h.run("", "login", "--email", adminEmail, "--password", "n3w")
	assert.NoError(t, err)
}

func TestUnknownResource(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("", "list", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown resource "widgets"`)
}
