package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLawConfig(t *testing.T) {
	cfg := DefaultLawConfig()

	assert.Equal(t, 1024, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 50, cfg.MaxArticles)
	assert.Equal(t, 2, cfg.SearchThreshold)
	assert.Equal(t, 350.0, cfg.MaxDistanceScore)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLawConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LawConfig)
	}{
		{"zero chunk size", func(c *LawConfig) { c.ChunkSize = 0 }},
		{"overlap equals size", func(c *LawConfig) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *LawConfig) { c.ChunkOverlap = -1 }},
		{"zero threshold", func(c *LawConfig) { c.SearchThreshold = 0 }},
		{"negative cutoff", func(c *LawConfig) { c.MaxDistanceScore = -1 }},
		{"zero timeout", func(c *LawConfig) { c.Timeout = 0 }},
		{"zero result limit", func(c *LawConfig) { c.ResultLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLawConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OPEN_LAW_GO_ID", "tester")
	t.Setenv("INDEX_DRIVER", "SQLITE")
	t.Setenv("INDEX_SQLITE_PATH", filepath.Join(t.TempDir(), "idx.db"))
	t.Setenv("LAW_SEARCH_THRESHOLD", "3")
	t.Setenv("LAW_MAX_DISTANCE_SCORE", "0.8")
	t.Setenv("LAW_TIMEOUT", "5")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tester", cfg.LawAPI.OC)
	assert.Equal(t, IndexDriverSQLite, cfg.Index.Driver)
	assert.Equal(t, 3, cfg.Law.SearchThreshold)
	assert.Equal(t, 0.8, cfg.Law.MaxDistanceScore)
	assert.Equal(t, 5*time.Second, cfg.Law.Timeout)
	assert.Equal(t, EmbeddingProviderGemini, cfg.Embedding.Provider)
	assert.Equal(t, DefaultCollection, cfg.Index.Collection)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("LAW_CHUNK_SIZE", "big")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("INDEX_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadYAMLOverlayThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "law.yaml")
	yamlDoc := `
law:
  chunk_size: 512
  chunk_overlap: 50
  max_distance_score: 1.5
  timeout: 3s
index:
  collection: statutes
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("LAW_CONFIG_FILE", path)
	t.Setenv("LAW_CHUNK_OVERLAP", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Law.ChunkSize)
	assert.Equal(t, 64, cfg.Law.ChunkOverlap)
	assert.Equal(t, 1.5, cfg.Law.MaxDistanceScore)
	assert.Equal(t, 3*time.Second, cfg.Law.Timeout)
	assert.Equal(t, "statutes", cfg.Index.Collection)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Law.MaxArticles)
}

func TestLoadDistanceCutoffFollowsProvider(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDistanceScore, cfg.Law.MaxDistanceScore)

	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, NormalizedMaxDistanceScore, cfg.Law.MaxDistanceScore)

	// an explicit cutoff wins over the provider default
	t.Setenv("LAW_MAX_DISTANCE_SCORE", "0.6")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Law.MaxDistanceScore)
}
