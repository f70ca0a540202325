package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmicon/internal/storage"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bmicon", "config.json")

	cfg, err := storage.LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *cfg, storage.DefaultConfig())

	_, err = os.Stat(path)
	assert.NilError(t, err, "config file should be written on first load")
}

func TestLoadConfig_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"backend":"json","cacheTTL":"48h","maxConcurrent":2}`), 0644)
	assert.NilError(t, err)

	cfg, err := storage.LoadConfig(path)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Backend, storage.BackendJSON)
	assert.Equal(t, time.Duration(cfg.CacheTTL), 48*time.Hour)
	assert.Equal(t, cfg.MaxConcurrent, 2)
	assert.Equal(t, time.Duration(cfg.GraceWindow), time.Hour)
	assert.Equal(t, cfg.MaxEntries, 2000)
	assert.Equal(t, cfg.LookupHost, "icons.duckduckgo.com")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"probeTimeout":"soon"}`), 0644))

	_, err := storage.LoadConfig(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestDuration_JSON(t *testing.T) {
	data, err := json.Marshal(storage.Duration(90 * time.Second))
	assert.NilError(t, err)
	assert.Equal(t, string(data), `"1m30s"`)

	var d storage.Duration
	assert.NilError(t, json.Unmarshal([]byte(`3000000000`), &d))
	assert.Equal(t, time.Duration(d), 3*time.Second)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := storage.DefaultConfig()
	cfg.MaxEntries = 50
	cfg.ProbeTimeout = storage.Duration(time.Second)

	assert.NilError(t, storage.SaveConfig(path, &cfg))

	loaded, err := storage.LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *loaded, cfg)
}
