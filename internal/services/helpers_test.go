package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID  int64 = 9001
	testSourceID int64 = -100500
	testAuditID  int64 = -100900
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pointmart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Bot.AdminIDs = []int64{testAdminID}
	cfg.Bot.SourceChannelID = testSourceID
	cfg.Bot.AuditChatID = testAuditID
	cfg.Bot.Name = "pointmart_bot"
	return cfg
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// countRows runs a COUNT(*) query.
func countRows(t *testing.T, db *database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), db.Q(query), args...).Scan(&n))
	return n
}
