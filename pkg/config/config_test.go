package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-projections/internal/volatility"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "0 14 * * *", cfg.RunSchedule)
	assert.Equal(t, 30*time.Minute, cfg.RunLockTTL)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 7, cfg.PublishedRunRetention)
	assert.Equal(t, int64(0), cfg.KMeansSeed)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("RUN_SCHEDULE", "30 9 * * *")
	t.Setenv("RUN_LOCK_TTL", "5m")
	t.Setenv("KMEANS_SEED", "7")
	t.Setenv("PUBLISHED_RUN_RETENTION", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "30 9 * * *", cfg.RunSchedule)
	assert.Equal(t, 5*time.Minute, cfg.RunLockTTL)
	assert.Equal(t, int64(7), cfg.KMeansSeed)
	assert.Equal(t, 1, cfg.PublishedRunRetention)
}

func TestLoadTuningDefaults(t *testing.T) {
	tuning, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning().Minutes.StarterBumps, tuning.Minutes.StarterBumps)
	assert.NoError(t, tuning.Validate())
	assert.Equal(t, "GS", tuning.AliasTable().Resolve("Golden State"))
}

func TestLoadTuningOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	yaml := `
version: "2025-01-test"
aliases:
  PHX2: PHO
minutes:
  starter_bumps: [8, 3]
  baseline:
    PG1: 33.5
matchup:
  weights:
    familiarity: 0.4
archetype:
  kmeans:
    seed: 99
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-test", tuning.Version)
	assert.Equal(t, []float64{8, 3}, tuning.Minutes.StarterBumps)
	assert.Equal(t, 33.5, tuning.Minutes.Baseline["pg1"])
	assert.Len(t, tuning.Minutes.Baseline, len(DefaultTuning().Minutes.Baseline))
	assert.Equal(t, 0.4, tuning.Matchup.Weights.Familiarity)
	assert.Equal(t, 0.25, tuning.Matchup.Weights.Archetype)
	assert.Equal(t, int64(99), tuning.Archetype.KMeans.Seed)
	assert.Equal(t, 6, tuning.Archetype.KMeans.K)

	aliases := tuning.AliasTable()
	assert.Equal(t, "PHO", aliases.Resolve("phx2"))
	assert.Equal(t, "NY", aliases.Resolve("NYK"))
}

func TestLoadTuningPartialMapEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	yaml := `
volatility:
  defaults:
    stud:
      cv_max: 0.5
minutes:
  physical:
    team_centers:
      PHI:
        modifier: 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	want := volatility.DefaultProfiles()[volatility.Stud]
	want.CVMax = 0.5
	assert.Equal(t, want, tuning.Volatility.Defaults[volatility.Stud])
	assert.Equal(t, volatility.DefaultProfiles()[volatility.Mid], tuning.Volatility.Defaults[volatility.Mid])

	phi := tuning.Minutes.Physical.TeamCenters["phi"]
	assert.Equal(t, "Joel Embiid", phi.Player)
	assert.Equal(t, 1.0, phi.Modifier)
	assert.Equal(t, "Domantas Sabonis", tuning.Minutes.Physical.TeamCenters["sac"].Player)
}

func TestValidateRejectsIncompleteTier(t *testing.T) {
	tuning := DefaultTuning()
	tuning.Volatility.Defaults[volatility.Stud] = volatility.Profile{CVMax: 0.5}

	err := tuning.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volatility.defaults.stud")
}

func TestLoadTuningRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archetype:\n  kmeans:\n    k: 0\n"), 0o644))

	_, err := LoadTuning(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kmeans.k")
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
