package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 150, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 50, cfg.Search.KeywordLimit)
	assert.Equal(t, 20, cfg.Search.SemanticLimit)
	assert.InDelta(t, 0.8, cfg.Search.SemanticWeight, 1e-9)
	assert.Equal(t, 3, cfg.Summary.ChunksPerDocument)
	assert.Equal(t, 50, cfg.Summary.MaxChunks)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[database]
driver = "sqlite"
db = "kb.db"

[llm]
api_key = "from-file"
base_url = "http://llm.local/v1"

[search]
semantic_threshold = 0.5

[storage]
url = "file:///srv/kb/blobs"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("SEARCH_SEMANTIC_THRESHOLD", "0.42")
	t.Setenv("STORAGE_URL", "mem://")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mem://", cfg.Storage.URL)
	assert.Equal(t, "data/blobs", cfg.Storage.Dir)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, "0.0.0.0:7070", cfg.HTTPAddr())
	assert.Equal(t, "kb.db", cfg.DSN())
	assert.InDelta(t, 0.42, cfg.Search.SemanticThreshold, 1e-9)
	// embedding falls back to the llm credentials
	assert.Equal(t, "from-file", cfg.Embedding.APIKey)
	assert.Equal(t, "http://llm.local/v1", cfg.Embedding.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("EMBEDDING_MODEL=dotenv-model\n"), 0o600))
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("EMBEDDING_MODEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-model", cfg.Embedding.Model)
}

func TestDSN(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, "root:@tcp(127.0.0.1:3306)/gopherai_kb?parseTime=true&loc=Local&charset=utf8mb4", cfg.DSN())

	cfg.Database = DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "kb", Password: "pw", DB: "kb", Params: "sslmode=disable"}
	assert.Equal(t, "host=db port=5432 user=kb password=pw dbname=kb sslmode=disable", cfg.DSN())
}
