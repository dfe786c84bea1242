package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/stitts-dev/nba-projections/internal/archetype"
	"github.com/stitts-dev/nba-projections/internal/dva"
	"github.com/stitts-dev/nba-projections/internal/matchup"
	"github.com/stitts-dev/nba-projections/internal/minutes"
	"github.com/stitts-dev/nba-projections/internal/projection"
	"github.com/stitts-dev/nba-projections/internal/teams"
	"github.com/stitts-dev/nba-projections/internal/volatility"
)

// Tuning is the versioned bundle of hand-tuned model constants.
type Tuning struct {
	Version    string            `mapstructure:"version"`
	Aliases    map[string]string `mapstructure:"aliases"`
	Minutes    minutes.Config    `mapstructure:"minutes"`
	Projection projection.Config `mapstructure:"projection"`
	Archetype  archetype.Config  `mapstructure:"archetype"`
	DVA        dva.Config        `mapstructure:"dva"`
	Matchup    matchup.Config    `mapstructure:"matchup"`
	Volatility volatility.Config `mapstructure:"volatility"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Version:    "default",
		Aliases:    teams.DefaultAliases(),
		Minutes:    minutes.DefaultConfig(),
		Projection: projection.DefaultConfig(),
		Archetype:  archetype.DefaultConfig(),
		DVA:        dva.DefaultConfig(),
		Matchup:    matchup.DefaultConfig(),
		Volatility: volatility.DefaultConfig(),
	}
}

// LoadTuning decodes a YAML tuning file over the defaults. Maps merge with the
// defaults, lists replace them. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return t, fmt.Errorf("error reading tuning file: %w", err)
	}

	// viper lowercases keys; align the defaults so overrides replace entries
	// instead of sitting next to them
	t.lowerMapKeys()
	if err := v.Unmarshal(&t); err != nil {
		return t, fmt.Errorf("unable to decode tuning file: %w", err)
	}

	// struct-valued map entries decode from zero; redo the overridden ones
	// over their defaults so unnamed fields survive
	defaults := DefaultTuning()
	defaults.lowerMapKeys()
	if err := mergeEntries(v, "volatility.defaults", defaults.Volatility.Defaults, t.Volatility.Defaults); err != nil {
		return t, err
	}
	if err := mergeEntries(v, "minutes.physical.team_centers", defaults.Minutes.Physical.TeamCenters, t.Minutes.Physical.TeamCenters); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}

// AliasTable builds the team alias table for a run.
func (t Tuning) AliasTable() *teams.AliasTable {
	return teams.NewAliasTable(t.Aliases)
}

// Validate rejects settings the stages cannot run with.
func (t Tuning) Validate() error {
	var errs []error
	band := t.Minutes.Band
	if band.Low <= 0 || band.High < band.Low {
		errs = append(errs, fmt.Errorf("minutes.band: low %.2f high %.2f", band.Low, band.High))
	}
	if band.Max <= 0 {
		errs = append(errs, fmt.Errorf("minutes.band.max must be positive"))
	}
	if len(t.Minutes.StarterBumps) == 0 {
		errs = append(errs, errors.New("minutes.starter_bumps is empty"))
	}
	if t.Archetype.KMeans.K < 1 {
		errs = append(errs, fmt.Errorf("archetype.kmeans.k must be at least 1, got %d", t.Archetype.KMeans.K))
	}
	if t.Projection.DvpMin > t.Projection.DvpMax {
		errs = append(errs, errors.New("projection.dvp_min exceeds dvp_max"))
	}
	if t.Matchup.MaxAdjustment < 0 {
		errs = append(errs, errors.New("matchup.max_adjustment is negative"))
	}
	if t.Volatility.MinConfidence < 0 || t.Volatility.MinConfidence > 1 {
		errs = append(errs, errors.New("volatility.min_confidence must be within [0, 1]"))
	}
	for _, tier := range volatility.Tiers {
		prof, ok := t.Volatility.Defaults[tier]
		if !ok {
			continue
		}
		if prof.CV <= 0 || prof.MedianSD <= 0 || prof.CVMax <= 0 || prof.P95Cap <= prof.P5Floor {
			errs = append(errs, fmt.Errorf("volatility.defaults.%s is incomplete: %+v", tier, prof))
		}
	}
	return errors.Join(errs...)
}

func (t *Tuning) lowerMapKeys() {
	t.Aliases = lowerKeys(t.Aliases)
	t.Minutes.Baseline = lowerKeys(t.Minutes.Baseline)
	t.Minutes.Physical.TeamCenters = lowerKeys(t.Minutes.Physical.TeamCenters)
	players := make(map[string]map[string]float64, len(t.Minutes.Physical.Players))
	for pos, m := range t.Minutes.Physical.Players {
		players[strings.ToLower(pos)] = lowerKeys(m)
	}
	t.Minutes.Physical.Players = players
	t.Projection.PositionMap = lowerKeys(t.Projection.PositionMap)
	t.Archetype.KnownArchetypes = lowerKeys(t.Archetype.KnownArchetypes)
	t.Volatility.Defaults = lowerKeys(t.Volatility.Defaults)
}

// mergeEntries re-decodes each entry the file names under key on top of its
// default. Entries without a default keep their plain decoding.
func mergeEntries[V any](v *viper.Viper, key string, defaults, dst map[string]V) error {
	for name := range v.GetStringMap(key) {
		entry, ok := defaults[name]
		if !ok {
			continue
		}
		sub := v.Sub(key + "." + name)
		if sub == nil {
			continue
		}
		if err := sub.Unmarshal(&entry); err != nil {
			return fmt.Errorf("unable to decode %s.%s: %w", key, name, err)
		}
		dst[name] = entry
	}
	return nil
}

func lowerKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
