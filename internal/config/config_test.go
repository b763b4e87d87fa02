package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "1", cfg.Pricing.ImageCost.String())
	assert.Equal(t, "0.1", cfg.Referral.Reward.String())
	assert.Equal(t, 200, cfg.Search.Limit)
	assert.Equal(t, 10*time.Minute, cfg.Escrow.MaxPendingAge)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "shutterstock.com", cfg.Catalog.URLHost)
	assert.Empty(t, cfg.Bot.AdminIDs)
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.App.Port)
	})

	t.Run("reads env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "BOT_ADMIN_IDS=111,222\nPRICING_IMAGE_COST=2.5\nDATABASE_DRIVER=sqlite\nESCROW_MAX_PENDING_AGE=90s\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []int64{111, 222}, cfg.Bot.AdminIDs)
		assert.Equal(t, "2.5", cfg.Pricing.ImageCost.String())
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 90*time.Second, cfg.Escrow.MaxPendingAge)
		assert.True(t, cfg.Bot.IsAdmin(222))
		assert.False(t, cfg.Bot.IsAdmin(333))
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("REFERRAL_REWARD=0.5\n"), 0o600))
		t.Setenv("REFERRAL_REWARD", "0.25")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.25", cfg.Referral.Reward.String())
	})

	t.Run("rejects bad values", func(t *testing.T) {
		tests := map[string]string{
			"DATABASE_DRIVER":    "mysql",
			"BOT_ADMIN_IDS":      "12,abc",
			"PRICING_IMAGE_COST": "0",
			"REFERRAL_REWARD":    "lots",
		}
		for env, value := range tests {
			t.Run(env, func(t *testing.T) {
				t.Setenv(env, value)
				_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
				assert.Error(t, err)
			})
		}
	})
}
