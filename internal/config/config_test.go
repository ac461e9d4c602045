package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "coordination.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFillsDefaultTTLs(t *testing.T) {
	path := writeConfig(t, "version: \"1.0\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.TTLs.SessionSeconds)
	assert.Equal(t, 90, cfg.TTLs.HeartbeatSeconds)
	assert.Equal(t, 60, cfg.TTLs.MessageSeconds)
	assert.Equal(t, 30, cfg.TTLs.LockSeconds)
}

func TestLoadPreservesExplicitTTLs(t *testing.T) {
	path := writeConfig(t, "version: \"1.0\"\nttls:\n  session_seconds: 600\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.TTLs.SessionSeconds)
	assert.Equal(t, 90, cfg.TTLs.HeartbeatSeconds)
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := writeConfig(t, "version: \"2.0\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadParsesBreakerOverrides(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
breakers:
  cb1:
    initial_threshold: 5
    min_threshold: 2
    max_threshold: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Breakers, "cb1")
	assert.Equal(t, 5, cfg.Breakers["cb1"].InitialThreshold)
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := &Config{Version: "1.0", Breakers: map[string]BreakerOverride{
		"cb1": {MinThreshold: 8, MaxThreshold: 2},
	}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownCompositionVerdict(t *testing.T) {
	cfg := &Config{Version: "1.0", Composition: []CompositionOverride{
		{PatternA: "swarm", PatternB: "swarm", Verdict: "maybe"},
	}}
	assert.Error(t, cfg.Validate())
}

func TestWatcherPicksUpChanges(t *testing.T) {
	path := writeConfig(t, "version: \"1.0\"\nttls:\n  session_seconds: 300\n")
	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 300, w.Current().TTLs.SessionSeconds)

	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\nttls:\n  session_seconds: 900\n"), 0o644))

	require.Eventually(t, func() bool {
		return w.Current().TTLs.SessionSeconds == 900
	}, 2*time.Second, 20*time.Millisecond)
}
