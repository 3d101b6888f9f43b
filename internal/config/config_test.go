package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Scheduler.TickIntervalSeconds)
	assert.Equal(t, 120, cfg.News.HalfLifeMinutes)
	assert.Equal(t, 8, cfg.Collector.MaxConcurrency)
	assert.Equal(t, ProfileBalanced, cfg.SignalProfile)
	assert.Equal(t, "09:00", cfg.Session.OpenLocal)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signalProfile: aggressive
news:
  halfLifeMinutes: 60
  sourceWeights:
    pap-biznes: 1.5
collector:
  maxConcurrency: 16
calendar:
  extraHolidays: ["2026-12-24"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProfileAggressive, cfg.SignalProfile)
	assert.Equal(t, 60, cfg.News.HalfLifeMinutes)
	assert.Equal(t, 1.5, cfg.News.SourceWeights["pap-biznes"])
	assert.Equal(t, 16, cfg.Collector.MaxConcurrency)
	assert.Equal(t, []string{"2026-12-24"}, cfg.Calendar.ExtraHolidays)
}

func TestValidate_RejectsOutOfRangeHalfLife(t *testing.T) {
	cfg := defaults()
	cfg.News.HalfLifeMinutes = 10
	assert.Error(t, cfg.Validate())

	cfg.News.HalfLifeMinutes = 2000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadSourceWeight(t *testing.T) {
	cfg := defaults()
	cfg.News.SourceWeights = map[string]float64{"x": 3}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadSignalProfile(t *testing.T) {
	cfg := defaults()
	cfg.SignalProfile = "yolo"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsMalformedSessionBounds(t *testing.T) {
	cfg := defaults()
	cfg.Session.OpenLocal = "9am"
	assert.Error(t, cfg.Validate())
}

func TestStore_ReloadKeepsPreviousOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signalProfile: aggressive\n"), 0o644))

	initial, err := Load(path)
	require.NoError(t, err)

	var gotErr error
	store := NewStore(initial, path, func(e error) { gotErr = e })
	require.Equal(t, ProfileAggressive, store.Get().SignalProfile)

	require.NoError(t, os.WriteFile(path, []byte("signalProfile: [not-a-scalar\n"), 0o644))

	changed := store.Reload()
	assert.False(t, changed)
	assert.Error(t, gotErr)
	assert.Equal(t, ProfileAggressive, store.Get().SignalProfile, "previous config must survive a bad reload")
}

func TestStore_ReloadAppliesGoodChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signalProfile: conservative\n"), 0o644))

	initial, err := Load(path)
	require.NoError(t, err)
	store := NewStore(initial, path, nil)

	require.NoError(t, os.WriteFile(path, []byte("signalProfile: aggressive\n"), 0o644))
	assert.True(t, store.Reload())
	assert.Equal(t, ProfileAggressive, store.Get().SignalProfile)
}
