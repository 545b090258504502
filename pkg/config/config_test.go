package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CAMPUSRAG_CONFIG", "CAMPUSRAG_THRESHOLD", "CAMPUSRAG_ADDR", "LOG_LEVEL",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(1.30), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 5, cfg.RAG.PrimaryK)
	assert.Equal(t, 3, cfg.RAG.SecondaryK)
	assert.Equal(t, 1000, cfg.Cache.Size)
	assert.Equal(t, 50, cfg.History.MaxTurns)
	assert.Equal(t, 30*time.Second, cfg.Generator.Timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "campusrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rag:
  similarity_threshold: 0.9
cache:
  size: 10
generator:
  provider: anthropic
  timeout: 5s
log:
  format: json
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(0.9), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 5, cfg.RAG.PrimaryK, "unset keys keep defaults")
	assert.Equal(t, 10, cfg.Cache.Size)
	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Equal(t, 5*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "campusrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  similarity_threshold: 0.9\n"), 0644))

	t.Setenv("CAMPUSRAG_CONFIG", path)
	t.Setenv("CAMPUSRAG_THRESHOLD", "2.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, float32(2.5), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "g-key", cfg.Generator.APIKey)
	assert.Empty(t, cfg.Embedder.APIKey, "hash embedder needs no key")
}

func TestLoad_BadThresholdEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMPUSRAG_THRESHOLD", "alto")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.RAG.SimilarityThreshold = 0
	cfg.Cache.Size = -1
	cfg.Embedder.Provider = "word2vec"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"similarity_threshold", "cache.size", "embedder.provider", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}
