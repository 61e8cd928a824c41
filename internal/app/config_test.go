package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults when no file and no env", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "blog.db", cfg.DBPath)
		assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
		assert.Equal(t, 20*time.Second, cfg.CacheTTL)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
	})

	t.Run("file values are applied", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blog.yaml")
		data := "addr: \":9000\"\ndb_path: /tmp/x.db\ncache_ttl_seconds: 5\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Addr)
		assert.Equal(t, "/tmp/x.db", cfg.DBPath)
		assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\n"), 0644))
		t.Setenv("ADDR", ":7000")
		t.Setenv("SESSION_LIFETIME_HOURS", "2")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Addr)
		assert.Equal(t, 2*time.Hour, cfg.SessionLifetime)
	})

	t.Run("bad yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(":\n  - ]["), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
