package volatility

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Salary tiers, highest first.
const (
	Stud    = "stud"
	MidHigh = "mid_high"
	Mid     = "mid"
	Value   = "value"
	Punt    = "punt"
)

var Tiers = []string{Stud, MidHigh, Mid, Value, Punt}

// Profile sources.
const (
	SourceEmpirical = "empirical"
	SourceDefault   = "default"
)

// SalaryTier buckets a salary.
func SalaryTier(salary int) string {
	switch {
	case salary >= 9000:
		return Stud
	case salary >= 7000:
		return MidHigh
	case salary >= 5000:
		return Mid
	case salary >= 4000:
		return Value
	default:
		return Punt
	}
}

// Profile is a tier's variance prior.
type Profile struct {
	CV       float64 `mapstructure:"cv"`
	MedianSD float64 `mapstructure:"median_sd"`
	P95Cap   float64 `mapstructure:"p95_cap"`
	P5Floor  float64 `mapstructure:"p5_floor"`
	CVMax    float64 `mapstructure:"cv_max"`
	Source   string  `mapstructure:"-"`
}

// Profiles maps tier name to profile.
type Profiles map[string]Profile

func DefaultProfiles() Profiles {
	return Profiles{
		Stud:    {CV: 0.30, MedianSD: 14.0, P95Cap: 70, P5Floor: 20, CVMax: 0.45, Source: SourceDefault},
		MidHigh: {CV: 0.30, MedianSD: 10.5, P95Cap: 55, P5Floor: 18, CVMax: 0.50, Source: SourceDefault},
		Mid:     {CV: 0.37, MedianSD: 9.6, P95Cap: 45, P5Floor: 10, CVMax: 0.55, Source: SourceDefault},
		Value:   {CV: 0.46, MedianSD: 9.1, P95Cap: 38, P5Floor: 4, CVMax: 0.65, Source: SourceDefault},
		Punt:    {CV: 0.70, MedianSD: 7.0, P95Cap: 28, P5Floor: 0, CVMax: 0.90, Source: SourceDefault},
	}
}

// Get returns the tier's profile, falling back to the mid tier default.
func (p Profiles) Get(tier string) Profile {
	if prof, ok := p[tier]; ok {
		return prof
	}
	if prof, ok := DefaultProfiles()[tier]; ok {
		return prof
	}
	return DefaultProfiles()[Mid]
}

// Rows converts the profiles into storage rows in tier order.
func (p Profiles) Rows() []models.TierProfile {
	rows := make([]models.TierProfile, 0, len(Tiers))
	for _, tier := range Tiers {
		prof := p.Get(tier)
		source := prof.Source
		if source == "" {
			source = SourceDefault
		}
		rows = append(rows, models.TierProfile{
			Tier:     tier,
			CV:       prof.CV,
			MedianSD: prof.MedianSD,
			P95Cap:   prof.P95Cap,
			P5Floor:  prof.P5Floor,
			CVMax:    prof.CVMax,
			Source:   source,
		})
	}
	return rows
}

// Sample is one historical game score for a player on the current salary sheet.
type Sample struct {
	PlayerName string
	Salary     int
	FP         float64
}

// SamplesFromLogs joins game logs with salaries by normalized name. Games without
// minutes are dropped.
func SamplesFromLogs(logs []models.PlayerGameLog, salaries []models.SalaryEntry) []Sample {
	bySalary := make(map[string]int, len(salaries))
	for _, s := range salaries {
		bySalary[teams.NormalizeName(s.PlayerName)] = s.Salary
	}
	var out []Sample
	for _, log := range logs {
		if log.Minutes <= 0 {
			continue
		}
		key := teams.NormalizeName(log.PlayerName)
		salary, ok := bySalary[key]
		if !ok {
			continue
		}
		out = append(out, Sample{PlayerName: key, Salary: salary, FP: log.Score()})
	}
	return out
}

// EmpiricalProfiles derives tier priors from historical samples. Tiers without
// enough history keep their defaults.
func EmpiricalProfiles(samples []Sample, cfg Config) Profiles {
	profiles := make(Profiles, len(Tiers))
	defaults := cfg.Defaults
	if len(defaults) == 0 {
		defaults = DefaultProfiles()
	}
	for _, tier := range Tiers {
		profiles[tier] = withSource(defaults.Get(tier), SourceDefault)
	}
	if len(samples) < cfg.MinSamples {
		return profiles
	}

	byTier := make(map[string][]Sample)
	for _, s := range samples {
		tier := SalaryTier(s.Salary)
		byTier[tier] = append(byTier[tier], s)
	}

	for _, tier := range Tiers {
		sub := byTier[tier]
		if len(sub) < cfg.MinTierSamples {
			continue
		}

		byPlayer := make(map[string][]float64)
		all := make([]float64, 0, len(sub))
		for _, s := range sub {
			byPlayer[s.PlayerName] = append(byPlayer[s.PlayerName], s.FP)
			all = append(all, s.FP)
		}

		var cvs, sds []float64
		for _, fps := range byPlayer {
			if len(fps) < cfg.MinPlayerGames || len(fps) < 2 {
				continue
			}
			mean, sd := stat.MeanStdDev(fps, nil)
			if mean == 0 {
				continue
			}
			cvs = append(cvs, clip(sd/mean, cfg.CVClipMin, cfg.CVClipMax))
			sds = append(sds, sd)
		}
		if len(cvs) < cfg.MinTierPlayers {
			continue
		}

		sort.Float64s(cvs)
		sort.Float64s(sds)
		sort.Float64s(all)
		profiles[tier] = Profile{
			CV:       round(quantile(cvs, 0.5), 3),
			MedianSD: round(quantile(sds, 0.5), 1),
			P95Cap:   round(quantile(all, 0.95), 1),
			P5Floor:  round(quantile(all, 0.05), 1),
			CVMax:    round(quantile(cvs, cfg.CVMaxQuantile), 3),
			Source:   SourceEmpirical,
		}
	}
	return profiles
}

func withSource(p Profile, source string) Profile {
	p.Source = source
	return p
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
