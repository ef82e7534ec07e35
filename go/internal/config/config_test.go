package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "sqlite", cfg.DocstoreDriver)
		assert.True(t, cfg.EmbeddedWorkers)
		assert.False(t, cfg.DevMode)
		assert.Equal(t, 4, cfg.WatcherWorkers)
		assert.Equal(t, "localhost", cfg.DB.Host)
	})

	t.Run("dev mode flag", func(t *testing.T) {
		t.Setenv("DEV_MODE", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.DevMode)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DOCSTORE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("WATCHER_WORKERS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetupLogging("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetupLogging("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
