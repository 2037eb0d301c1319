package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  base_url: "http://localhost:8080/v1"
  model: "qwen"
media:
  provider: "searxng"
  max_items: 12
store:
  dir: "/tmp/radar"
  alert_cap: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "qwen", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "searxng", cfg.Media.Provider)
	// 超过全局上限的配置被收紧
	assert.Equal(t, 5, cfg.Media.MaxItems)
	assert.Equal(t, 15, cfg.Media.MaxComments)
	assert.Equal(t, 20, cfg.Store.AlertCap)
	assert.Equal(t, 100, cfg.Store.IntelligenceCap)
	assert.Equal(t, 200, cfg.Store.MemoryLoadCap)
	assert.Equal(t, 1000, cfg.Store.MemorySaveCap)
	assert.Equal(t, 300, cfg.Schedule.ScanInterval)
	assert.Equal(t, 60, cfg.Schedule.DecisionInterval)
	assert.Equal(t, DefaultHotlistURLs, cfg.Hotlist.URLs)
	assert.Equal(t, filepath.Join("/tmp/radar", "alerts.json"), cfg.Path("alerts.json"))
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [oops"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
