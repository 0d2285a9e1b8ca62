package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("REPO_OWNER", "prskeet")
	t.Setenv("REPO_NAME", "prskeet")
}

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "*/5 * * * *", cfg.Sync.CronSpec)
		assert.Equal(t, "https://bsky.social", cfg.Bluesky.Host)
		assert.Equal(t, "UTC", cfg.Sync.Timezone)
		assert.Equal(t, time.UTC, cfg.Sync.Location)
		assert.Nil(t, cfg.Sync.StartOverride)
		assert.False(t, cfg.App.Production())
	})

	t.Run("should fail without required settings", func(t *testing.T) {
		for _, key := range []string{"GITHUB_TOKEN", "REPO_OWNER", "REPO_NAME"} {
			t.Setenv(key, "placeholder")
			require.NoError(t, os.Unsetenv(key))
		}

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("should parse the ignore list", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("IGNORE_USERS", "dependabot[bot],renovate[bot]")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, []string{"dependabot[bot]", "renovate[bot]"}, cfg.Sync.IgnoreUsers)
	})

	t.Run("should parse the start override", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("START_FROM", "2024-01-01T00:00:00Z")

		cfg, err := Load()

		require.NoError(t, err)
		require.NotNil(t, cfg.Sync.StartOverride)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Sync.StartOverride.UTC())
	})

	t.Run("should reject a malformed start override", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("START_FROM", "yesterday")

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("should reject an unknown timezone", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("should gate production mode on MODE", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MODE", "production")

		cfg, err := Load()

		require.NoError(t, err)
		assert.True(t, cfg.App.Production())
	})
}
