package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/services"
	"github.com/pointmart/backend/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points configuration at a throwaway SQLite file.
func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pointmart.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_SQLITE_PATH", path)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("ARGON2_MEMORY", "8192")
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "", "migrate")
	require.NoError(t, err)
	assert.Equal(t, "sqlite schema is up to date\n", out)

	// Re-running is harmless.
	_, err = execute(t, "", "migrate")
	require.NoError(t, err)
}

func TestIndexCommand(t *testing.T) {
	dbPath := sqliteEnv(t)
	manifest := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`entries:
  - asset_id: "2301326979"
    content_handle: handle-a
  - asset_id: "1122334455"
    content_handle: handle-b
`), 0o600))

	out, err := execute(t, "", "index", manifest)
	require.NoError(t, err)
	assert.Equal(t, "indexed 2 entries\n", out)

	db, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM catalog_entries").Scan(&n))
	assert.Equal(t, 2, n)

	_, err = execute(t, "", "index", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "", "index")
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "correct horse battery\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	auth := services.NewAuthService(cfg, logger.NewNop())
	assert.True(t, auth.VerifyPassword("correct horse battery", hash))

	_, err = execute(t, "short\n", "hash-password")
	assert.Error(t, err)

	_, err = execute(t, "", "hash-password")
	assert.Error(t, err)
}

type gatewayCall struct {
	Path   string
	ChatID int64
	Text   string
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID int64  `json:"chatId"`
		Text   string `json:"text"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{Path: r.URL.Path, ChatID: body.ChatID, Text: body.Text})
	g.mu.Unlock()
	w.Write([]byte(`{"ok":true}`))
}

func (g *fakeGateway) to(chatID int64) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayCall
	for _, c := range g.calls {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

func TestApplicationRoutes(t *testing.T) {
	log := logger.NewNop()
	cfg := config.Defaults()
	cfg.Bot.AdminIDs = []int64{9001}
	cfg.Bot.WebhookSecret = "hook-secret"
	cfg.JWT.SecretKey = "jwt-secret"
	cfg.Argon2.Memory = 8 * 1024

	hash, err := services.NewAuthService(cfg, log).HashPassword("admin password")
	require.NoError(t, err)
	cfg.Admin.PasswordHash = hash

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	gateway := &fakeGateway{}
	gw := httptest.NewServer(gateway)
	t.Cleanup(gw.Close)

	app := newApplication(cfg, log, db, nil, transport.NewGatewayClient(log, gw.URL, time.Second))
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	send := func(method, path, body string, headers map[string]string) *http.Response {
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("health", func(t *testing.T) {
		resp := send(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("events need the webhook secret", func(t *testing.T) {
		event := `{"kind":"command","chatId":5,"userId":5,"command":"start"}`

		resp := send(http.MethodPost, "/api/v1/events", event, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, gateway.to(5))

		resp = send(http.MethodPost, "/api/v1/events", event, map[string]string{"X-Webhook-Secret": "hook-secret"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		calls := gateway.to(5)
		require.NotEmpty(t, calls)
		assert.Equal(t, "/sendMessage", calls[0].Path)
		assert.Contains(t, calls[0].Text, "Welcome to PointMart")
	})

	t.Run("admin api needs a token", func(t *testing.T) {
		resp := send(http.MethodGet, "/api/v1/admin/stats", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = send(http.MethodPost, "/api/v1/auth/login", `{"userId":9001,"password":"wrong password"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = send(http.MethodPost, "/api/v1/auth/login", `{"userId":5,"password":"admin password"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = send(http.MethodPost, "/api/v1/auth/login", `{"userId":9001,"password":"admin password"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var login services.AuthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))

		resp = send(http.MethodGet, "/api/v1/admin/stats", "", map[string]string{"Authorization": "Bearer " + login.Token})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var stats map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		assert.EqualValues(t, 1, stats["user_count"])
	})

	t.Run("referral qr is public", func(t *testing.T) {
		resp := send(http.MethodGet, "/api/v1/referrals/5/qr", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})
}
