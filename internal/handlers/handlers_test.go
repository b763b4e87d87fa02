package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/middleware"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "admin-token"

type recordingDispatcher struct {
	mu     sync.Mutex
	events []models.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev models.Event) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

type chatSink struct {
	mu    sync.Mutex
	chats []int64
}

func (c *chatSink) SendText(_ context.Context, chatID int64, _ string, _ models.Keyboard) error {
	c.mu.Lock()
	c.chats = append(c.chats, chatID)
	c.mu.Unlock()
	return nil
}

func (c *chatSink) SendDocument(context.Context, int64, string, string) error { return nil }

func (c *chatSink) SendPhoto(context.Context, int64, []byte, string) error { return nil }

type fixedParser struct{}

func (fixedParser) ParseToken(token string) (*services.Claims, error) {
	if token != adminToken {
		return nil, services.ErrInvalidToken
	}
	return &services.Claims{UserID: 9001, Role: services.RoleAdmin}, nil
}

func newAdminRouter(t *testing.T) (http.Handler, *chatSink) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	log := logger.NewNop()
	sink := &chatSink{}
	h := NewAdminHandler(AdminDeps{
		Stats:     services.NewStatsService(db, log),
		Accounts:  services.NewLedgerService(db, log),
		Broadcast: services.NewBroadcastService(sink, 2, log),
		Catalog:   services.NewCatalogService(db, config.Defaults().Catalog, log),
		Audit:     services.NewAuditLogger(log, nil, 0),
	}, log)

	r := chi.NewRouter()
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(fixedParser{}))
		r.Get("/stats", h.Stats)
		r.Get("/users/{userId}/balance", h.Balance)
		r.Post("/users/{userId}/adjust", h.Adjust)
		r.Post("/broadcast", h.Broadcast)
		r.Post("/catalog/batch", h.CatalogBatch)
		r.Get("/catalog/{assetId}", h.CatalogEntry)
	})
	return r, sink
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestEventsHandler_Receive(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewEventsHandler(dispatcher, logger.NewNop())

	tests := []struct {
		name       string
		body       string
		status     int
		dispatched bool
	}{
		{"command", `{"kind":"command","chatId":5,"userId":5,"command":"start","args":["42"]}`, http.StatusOK, true},
		{"channel post without user", `{"kind":"channel_post","chatId":-100,"file":{"name":"a.jpg","handle":"h"}}`, http.StatusOK, true},
		{"malformed json", `{"kind":`, http.StatusBadRequest, false},
		{"unknown field", `{"kind":"text","chatId":5,"userId":5,"extra":1}`, http.StatusBadRequest, false},
		{"two objects", `{"kind":"text","chatId":5,"userId":5}{}`, http.StatusBadRequest, false},
		{"command without name", `{"kind":"command","chatId":5,"userId":5}`, http.StatusBadRequest, false},
		{"unknown kind", `{"kind":"sticker","chatId":5,"userId":5}`, http.StatusBadRequest, false},
		{"file without upload", `{"kind":"file","chatId":5,"userId":5}`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(dispatcher.events)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Receive(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.dispatched {
				assert.Len(t, dispatcher.events, before+1)
			} else {
				assert.Len(t, dispatcher.events, before)
			}
		})
	}

	require.NotEmpty(t, dispatcher.events)
	assert.Equal(t, []string{"42"}, dispatcher.events[0].Args)
}

func TestAdminHandler_Balance(t *testing.T) {
	h, _ := newAdminRouter(t)

	code, body := do(t, h, http.MethodPost, "/api/v1/admin/users/555/adjust", `{"amount":"50"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "50", body["balance"])

	code, body = do(t, h, http.MethodPost, "/api/v1/admin/users/555/adjust", `{"amount":"-100"}`)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.NotEmpty(t, body["error"])

	code, body = do(t, h, http.MethodPost, "/api/v1/admin/users/555/adjust", `{"amount":-100,"force":true,"description":"chargeback"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "-50", body["balance"])

	code, _ = do(t, h, http.MethodPost, "/api/v1/admin/users/555/adjust", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, h, http.MethodGet, "/api/v1/admin/users/555/balance", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "-50", body["balance"])

	code, _ = do(t, h, http.MethodGet, "/api/v1/admin/users/556/balance", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodGet, "/api/v1/admin/users/abc/balance", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminHandler_RequiresToken(t *testing.T) {
	h, _ := newAdminRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminHandler_Catalog(t *testing.T) {
	h, _ := newAdminRouter(t)

	code, body := do(t, h, http.MethodPost, "/api/v1/admin/catalog/batch", `{"entries":[
		{"asset_id":"2301326979","content_handle":"h-1","display_name":"shutterstock_2301326979.jpg"},
		{"asset_id":"1122334455","content_handle":"h-2"}
	]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 2, body["saved"])

	code, body = do(t, h, http.MethodGet, "/api/v1/admin/catalog/2301326979", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "h-1", body["content_handle"])

	code, _ = do(t, h, http.MethodGet, "/api/v1/admin/catalog/9999999", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodPost, "/api/v1/admin/catalog/batch", `{"entries":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/api/v1/admin/catalog/batch", `{"entries":[{"asset_id":"1"}]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, h, http.MethodGet, "/api/v1/admin/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["catalog_size"])
}

func TestAdminHandler_Broadcast(t *testing.T) {
	h, sink := newAdminRouter(t)
	for _, uid := range []string{"11", "12"} {
		code, _ := do(t, h, http.MethodPost, "/api/v1/admin/users/"+uid+"/adjust", `{"amount":"1"}`)
		require.Equal(t, http.StatusOK, code)
	}

	code, body := do(t, h, http.MethodPost, "/api/v1/admin/broadcast", `{"message":"  hello  "}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 2, body["success"])
	assert.EqualValues(t, 0, body["failure"])
	assert.ElementsMatch(t, []int64{11, 12}, sink.chats)

	code, _ = do(t, h, http.MethodPost, "/api/v1/admin/broadcast", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestQRHandler_ReferralQR(t *testing.T) {
	log := logger.NewNop()
	referrals := services.NewReferralService(nil, nil, nil, decimal.RequireFromString("0.1"), "pointmart_bot", log)
	h := NewQRHandler(services.NewQRService(referrals, nil, log), log)

	r := chi.NewRouter()
	r.Get("/api/v1/referrals/{userId}/qr", h.ReferralQR)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals/77/qr", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://t.me/pointmart_bot?start=77", rec.Header().Get("X-Referral-Link"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/referrals/zero/qr", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
