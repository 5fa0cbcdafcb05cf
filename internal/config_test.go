package internal

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("BADGER_FILEPATH", t.TempDir())
		t.Setenv("JWT_SECRET", "secret")

		config, err := LoadConfig()

		req.NoError(err)
		req.Equal(60*time.Second, config.CleanupInterval)
		req.Equal(10*time.Minute, config.CompactionInterval)
		req.Equal(50*1024*1024, config.MaxUploadBytes)
		req.Empty(config.CleanupCron)
	})

	t.Run("should fail without a jwt secret", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("BADGER_FILEPATH", t.TempDir())
		t.Setenv("JWT_SECRET", "unset below")
		req.NoError(os.Unsetenv("JWT_SECRET"))

		_, err := LoadConfig()

		req.Error(err)
	})

	t.Run("should reject a non positive cleanup interval", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("BADGER_FILEPATH", t.TempDir())
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("CLEANUP_INTERVAL", "0s")

		_, err := LoadConfig()

		req.ErrorContains(err, "CLEANUP_INTERVAL")
	})
}
