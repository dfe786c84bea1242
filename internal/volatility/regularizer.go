package volatility

import (
	"math"
	"sort"

	"github.com/stitts-dev/nba-projections/internal/models"
)

// Config holds the sampling thresholds and blending constants.
type Config struct {
	Defaults Profiles `mapstructure:"defaults"`

	MinSamples     int     `mapstructure:"min_samples"`
	MinTierSamples int     `mapstructure:"min_tier_samples"`
	MinPlayerGames int     `mapstructure:"min_player_games"`
	MinTierPlayers int     `mapstructure:"min_tier_players"`
	CVClipMin      float64 `mapstructure:"cv_clip_min"`
	CVClipMax      float64 `mapstructure:"cv_clip_max"`
	CVMaxQuantile  float64 `mapstructure:"cv_max_quantile"`

	FullConfidenceGames float64 `mapstructure:"full_confidence_games"`
	DefaultConfidence   float64 `mapstructure:"default_confidence"`
	MinConfidence       float64 `mapstructure:"min_confidence"`
	MinSD               float64 `mapstructure:"min_sd"`
	MinSDMedianFraction float64 `mapstructure:"min_sd_median_fraction"`

	CeilingSDs float64 `mapstructure:"ceiling_sds"`
	FloorSDs   float64 `mapstructure:"floor_sds"`
}

func DefaultConfig() Config {
	return Config{
		Defaults:            DefaultProfiles(),
		MinSamples:          50,
		MinTierSamples:      20,
		MinPlayerGames:      5,
		MinTierPlayers:      3,
		CVClipMin:           0.1,
		CVClipMax:           2.0,
		CVMaxQuantile:       0.85,
		FullConfidenceGames: 30,
		DefaultConfidence:   0.5,
		MinConfidence:       0.3,
		MinSD:               3.0,
		MinSDMedianFraction: 0.4,
		CeilingSDs:          1.5,
		FloorSDs:            1.0,
	}
}

// Regularizer shrinks per-player fantasy-point SDs toward their salary tier.
type Regularizer struct {
	cfg      Config
	profiles Profiles
}

func NewRegularizer(cfg Config, profiles Profiles) *Regularizer {
	return &Regularizer{cfg: cfg, profiles: profiles}
}

// History describes how much history backs a player's raw SD. GamesPct takes
// precedence when set; Games is used when HasGames is true.
type History struct {
	Games    int
	HasGames bool
	GamesPct *float64
}

// Confidence is the weight given to the player's own SD, never below the floor.
func (r *Regularizer) Confidence(h History) float64 {
	c := r.cfg.DefaultConfidence
	switch {
	case h.GamesPct != nil:
		c = math.Min(*h.GamesPct/100, 1)
	case h.HasGames && r.cfg.FullConfidenceGames > 0:
		c = math.Min(float64(h.Games)/r.cfg.FullConfidenceGames, 1)
	}
	return math.Max(r.cfg.MinConfidence, c)
}

// BlendSD blends a raw SD with the tier expectation and bounds the result.
// Projections at or below zero keep the raw SD.
func (r *Regularizer) BlendSD(rawSD, proj float64, tier string, h History) (sd, expected float64) {
	if proj <= 0 {
		return rawSD, 0
	}
	prof := r.profiles.Get(tier)
	expected = prof.CV * proj
	c := r.Confidence(h)
	sd = rawSD*c + expected*(1-c)
	if sd/proj > prof.CVMax {
		sd = prof.CVMax * proj
	}
	return math.Max(sd, math.Max(r.cfg.MinSD, r.cfg.MinSDMedianFraction*prof.MedianSD)), expected
}

// Regularize fills the variance columns of a projection row from p.RawFpSD and
// p.ProjFP, then caps its tails.
func (r *Regularizer) Regularize(p *models.DfsPlayerProjection, h History) {
	p.SalaryTier = SalaryTier(p.Salary)
	if h.HasGames {
		p.GamesPlayed = h.Games
	}
	sd, expected := r.BlendSD(p.RawFpSD, p.ProjFP, p.SalaryTier, h)
	p.FpSD = round(sd, 2)
	p.TierExpectedSD = round(expected, 2)
	p.TierCV = 0
	if p.ProjFP > 0 {
		p.TierCV = round(sd/p.ProjFP, 3)
	}
	p.Ceiling = round(p.ProjFP+r.cfg.CeilingSDs*sd, 1)
	p.Floor = round(math.Max(0, p.ProjFP-r.cfg.FloorSDs*sd), 1)
	r.CapTails(p)
}

// CapTails bounds ceiling and floor by the tier's empirical percentiles without
// crossing the projection, then derives the range and upside ratio.
func (r *Regularizer) CapTails(p *models.DfsPlayerProjection) {
	prof := r.profiles.Get(SalaryTier(p.Salary))
	p.Ceiling = math.Max(math.Min(p.Ceiling, prof.P95Cap), p.ProjFP)
	p.Floor = math.Min(math.Max(p.Floor, prof.P5Floor), p.ProjFP)
	p.FpRange = round(p.Ceiling-p.Floor, 2)
	p.UpsideRatio = 0
	if p.ProjFP > 0 {
		p.UpsideRatio = round((p.Ceiling-p.ProjFP)/p.ProjFP, 3)
	}
}

// ValueScores sets points per thousand dollars and its ratio to the tier median.
func ValueScores(rows []models.DfsPlayerProjection) {
	byTier := make(map[string][]float64)
	for i := range rows {
		p := &rows[i]
		p.ValueRatio = 0
		if p.Salary <= 0 {
			continue
		}
		if p.SalaryTier == "" {
			p.SalaryTier = SalaryTier(p.Salary)
		}
		p.ValueRatio = round(p.ProjFP/(float64(p.Salary)/1000), 2)
		byTier[p.SalaryTier] = append(byTier[p.SalaryTier], p.ValueRatio)
	}

	medians := make(map[string]float64, len(byTier))
	for tier, values := range byTier {
		sort.Float64s(values)
		medians[tier] = quantile(values, 0.5)
	}
	for i := range rows {
		p := &rows[i]
		p.ValueVsTier = 0
		if m := medians[p.SalaryTier]; p.Salary > 0 && m != 0 {
			p.ValueVsTier = round(p.ValueRatio/m-1, 3)
		}
	}
}
