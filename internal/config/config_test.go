package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.True(t, cfg.Search.AlphaBeta)
	assert.Zero(t, cfg.Search.MaxDepth)
	assert.False(t, cfg.Search.DepthDiscount)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("TTT_ADDR", ":9090")
	t.Setenv("TTT_REDIS_ADDR", "redis:6379")
	t.Setenv("TTT_CACHE_TTL", "5m")
	t.Setenv("TTT_SEARCH_MAX_DEPTH", "4")
	t.Setenv("TTT_SEARCH_DEPTH_DISCOUNT", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.Search.MaxDepth)
	assert.True(t, cfg.Search.DepthDiscount)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "addr: \":7070\"\nbook_path: book.db\nsearch:\n  parallel_root: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "book.db", cfg.BookPath)
	assert.True(t, cfg.Search.ParallelRoot)
	assert.True(t, cfg.Search.AlphaBeta, "unset keys keep their defaults")
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name:  "Missing file",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
		},
		{
			name: "Negative depth",
			setup: func(t *testing.T) string {
				t.Setenv("TTT_SEARCH_MAX_DEPTH", "-1")
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.setup(t))
			assert.Error(t, err)
		})
	}
}
