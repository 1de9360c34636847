package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultChunkWords, cfg.Processing.ChunkWords)
	assert.Equal(t, defaultMaxVocabulary, cfg.Processing.MaxVocabulary)
	assert.Equal(t, defaultWorkers, cfg.Processing.Workers)
	assert.Equal(t, defaultMaxUploadMB, cfg.Processing.MaxUploadMB)
	assert.Equal(t, defaultStyle, cfg.Query.InstructionStyle)
	assert.InDelta(t, defaultTemperature, cfg.LLM.Temperature, 1e-9)
}

func TestLoadYAMLValues(t *testing.T) {
	path := writeConfig(t, `
port: 9090
processing:
  chunk_words: 250
  workers: 8
query:
  instruction_style: casual
llm:
  providers:
    - id: openai
      type: openai
      api_key: sk-test
      default_model: gpt-4o
      enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250, cfg.Processing.ChunkWords)
	assert.Equal(t, 8, cfg.Processing.Workers)
	assert.Equal(t, "casual", cfg.Query.InstructionStyle)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers[0].DefaultModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOOKABLEU_PORT", "7070")
	t.Setenv("BOOKABLEU_JWT_SECRET", "env-secret")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "openai", cfg.LLM.Providers[0].Type)
	assert.True(t, cfg.LLM.Providers[0].Enabled)
}

func TestEnvDoesNotDuplicateProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	path := writeConfig(t, `
llm:
  providers:
    - id: openai
      type: openai
      api_key: sk-from-file
      enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "sk-from-file", cfg.LLM.Providers[0].APIKey)
}

func TestProductionValidation(t *testing.T) {
	path := writeConfig(t, "env: production\n")

	_, err := Load(path)
	assert.Error(t, err, "production requires jwt secret, s3 and a provider")
}

func TestInvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a number\n")
	_, err := Load(path)
	assert.Error(t, err)
}
