package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "UPDATE ledger_accounts SET balance = ? WHERE user_id = ? AND version = ?"

	assert.Equal(t, "UPDATE ledger_accounts SET balance = $1 WHERE user_id = $2 AND version = $3", Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, " FOR UPDATE", Postgres.ForUpdate())
	assert.Empty(t, SQLite.ForUpdate())
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	// Idempotent.
	require.NoError(t, Migrate(ctx, db))

	for _, table := range []string{"catalog_entries", "ledger_accounts", "transactions", "referrals", "search_history", "user_joins"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitRedisDisabled(t *testing.T) {
	assert.Nil(t, InitRedis(config.RedisConfig{Enabled: false}, logger.NewNop()))
}
