package dva

import (
	"math"
	"sort"
	"time"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Stat categories in vector order.
const (
	Pts = iota
	Reb
	Ast
	Stl
	Blk
	Fg3m
	Tov
	NumStats
)

var StatNames = [NumStats]string{"pts", "reb", "ast", "stl", "blk", "fg3m", "tov"}

// FantasyWeights are the scoring weights per category. Profiles use their
// magnitude, so turnovers count toward an archetype's share.
var FantasyWeights = [NumStats]float64{1.0, 1.2, 1.5, 3.0, 3.0, 3.0, -1.0}

// Rates is a per-minute rate for each stat category.
type Rates [NumStats]float64

// Profile is each category's percentage share of an archetype's fantasy output.
type Profile [NumStats]float64

// Config holds the DVA sampling constants.
type Config struct {
	MinMinutes       float64 `mapstructure:"min_minutes"`
	RecentWindowDays int     `mapstructure:"recent_window_days"`
	RecentMinSamples int     `mapstructure:"recent_min_samples"`
	RecentBlend      float64 `mapstructure:"recent_blend"`
	ShrinkageFullN   float64 `mapstructure:"shrinkage_full_n"`
}

func DefaultConfig() Config {
	return Config{
		MinMinutes:       5,
		RecentWindowDays: 30,
		RecentMinSamples: 5,
		RecentBlend:      0.5,
		ShrinkageFullN:   50,
	}
}

// Engine builds archetype profiles and defense-vs-archetype records.
type Engine struct {
	cfg     Config
	aliases *teams.AliasTable
}

func NewEngine(cfg Config, aliases *teams.AliasTable) *Engine {
	return &Engine{cfg: cfg, aliases: aliases}
}

type sample struct {
	opponent  string
	archetype string
	date      time.Time
	fpPerMin  float64
	rates     Rates
}

type accumulator struct {
	n       int
	fpSum   float64
	rateSum Rates
}

func (a *accumulator) add(s sample) {
	a.n++
	a.fpSum += s.fpPerMin
	for i := range a.rateSum {
		a.rateSum[i] += s.rates[i]
	}
}

func (a *accumulator) mean() (float64, Rates) {
	var r Rates
	if a.n == 0 {
		return 0, r
	}
	for i := range r {
		r[i] = a.rateSum[i] / float64(a.n)
	}
	return a.fpSum / float64(a.n), r
}

type pairKey struct {
	team      string
	archetype string
}

// Result holds one run's profiles and records.
type Result struct {
	Profiles map[string]Profile
	Samples  map[string]int
	Records  []models.DvaRecord
	index    map[pairKey]int
}

// Lookup returns the record for an opposing team and base archetype.
func (r *Result) Lookup(team, archetype string) (models.DvaRecord, bool) {
	if r == nil {
		return models.DvaRecord{}, false
	}
	i, ok := r.index[pairKey{team, archetype}]
	if !ok {
		return models.DvaRecord{}, false
	}
	return r.Records[i], true
}

// ProfileRows returns the profiles as storage rows ordered by archetype.
func (r *Result) ProfileRows() []models.ArchetypeProfile {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]models.ArchetypeProfile, len(names))
	for i, name := range names {
		p := r.Profiles[name]
		rows[i] = models.ArchetypeProfile{
			Archetype: name,
			PtsPct:    p[Pts],
			RebPct:    p[Reb],
			AstPct:    p[Ast],
			StlPct:    p[Stl],
			BlkPct:    p[Blk],
			Fg3mPct:   p[Fg3m],
			TovPct:    p[Tov],
			Samples:   r.Samples[name],
		}
	}
	return rows
}

// Build computes profiles and records from game logs of labeled players. labels
// maps normalized player names to base archetypes.
func (e *Engine) Build(logs []models.PlayerGameLog, labels map[string]string) *Result {
	samples, latest := e.samples(logs, labels)
	res := &Result{
		Profiles: make(map[string]Profile),
		Samples:  make(map[string]int),
		index:    make(map[pairKey]int),
	}
	if len(samples) == 0 {
		return res
	}

	cutoff := latest.AddDate(0, 0, -e.cfg.RecentWindowDays)
	league := make(map[string]*accumulator)
	full := make(map[pairKey]*accumulator)
	recent := make(map[pairKey]*accumulator)
	var keys []pairKey
	for _, s := range samples {
		if league[s.archetype] == nil {
			league[s.archetype] = &accumulator{}
		}
		league[s.archetype].add(s)

		k := pairKey{s.opponent, s.archetype}
		if full[k] == nil {
			full[k] = &accumulator{}
			recent[k] = &accumulator{}
			keys = append(keys, k)
		}
		full[k].add(s)
		if !s.date.Before(cutoff) {
			recent[k].add(s)
		}
	}

	for arch, acc := range league {
		_, rates := acc.mean()
		res.Profiles[arch] = BuildProfile(rates)
		res.Samples[arch] = acc.n
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].team != keys[j].team {
			return keys[i].team < keys[j].team
		}
		return keys[i].archetype < keys[j].archetype
	})
	res.Records = make([]models.DvaRecord, 0, len(keys))
	for _, k := range keys {
		leagueFp, leagueRates := league[k.archetype].mean()
		teamFp, teamRates := full[k].mean()
		if rc := recent[k]; rc.n >= e.cfg.RecentMinSamples {
			recentFp, recentRates := rc.mean()
			teamFp = blend(teamFp, recentFp, e.cfg.RecentBlend)
			for i := range teamRates {
				teamRates[i] = blend(teamRates[i], recentRates[i], e.cfg.RecentBlend)
			}
		}

		raw, components := Multiplier(res.Profiles[k.archetype], teamRates, leagueRates)
		shrink := e.shrinkage(full[k].n)
		for i := range components {
			components[i] = round2(components[i] * shrink)
		}

		res.index[k] = len(res.Records)
		res.Records = append(res.Records, models.DvaRecord{
			OpponentTeam:   k.team,
			Archetype:      k.archetype,
			LeagueFpPerMin: round4(leagueFp),
			TeamFpPerMin:   round4(teamFp),
			FpPerMinDiff:   round4(teamFp - leagueFp),
			DvsRaw:         round2(raw),
			DvsMultiplier:  round2(raw * shrink),
			Samples:        full[k].n,
			RecentSamples:  recent[k].n,
			PtsComponent:   components[Pts],
			RebComponent:   components[Reb],
			AstComponent:   components[Ast],
			StlComponent:   components[Stl],
			BlkComponent:   components[Blk],
			Fg3mComponent:  components[Fg3m],
			TovComponent:   components[Tov],
		})
	}
	return res
}

func (e *Engine) samples(logs []models.PlayerGameLog, labels map[string]string) ([]sample, time.Time) {
	var out []sample
	var latest time.Time
	for _, log := range logs {
		if log.Minutes <= e.cfg.MinMinutes {
			continue
		}
		arch, ok := labels[teams.NormalizeName(log.PlayerName)]
		if !ok || arch == "" {
			continue
		}
		_, opponent, _ := teams.ParseMatchup(log.Matchup)
		if opponent == "" {
			opponent = log.Opponent
		}
		if opponent == "" {
			continue
		}

		s := sample{
			opponent:  e.aliases.Resolve(opponent),
			archetype: arch,
			date:      log.GameDate,
			fpPerMin:  log.Score() / log.Minutes,
		}
		stats := [NumStats]float64{log.Points, log.Rebounds, log.Assists, log.Steals, log.Blocks, log.Threes, log.Turnovers}
		for i, v := range stats {
			s.rates[i] = v / log.Minutes
		}
		out = append(out, s)
		if log.GameDate.After(latest) {
			latest = log.GameDate
		}
	}
	return out, latest
}

func (e *Engine) shrinkage(n int) float64 {
	if e.cfg.ShrinkageFullN <= 0 {
		return 1
	}
	return math.Min(float64(n)/e.cfg.ShrinkageFullN, 1)
}

// BuildProfile turns mean per-minute rates into category shares summing to 100.
// An archetype with no production gets an all-zero profile.
func BuildProfile(rates Rates) Profile {
	var p Profile
	var total float64
	for i, r := range rates {
		p[i] = r * math.Abs(FantasyWeights[i])
		total += p[i]
	}
	if total <= 0 {
		return Profile{}
	}
	for i := range p {
		p[i] = p[i] / total * 100
	}
	return p
}

// Multiplier is the archetype-weighted relative leak of a defense, in percentage
// points: the sum over categories of profile share times (team - league) / league.
// Categories with a zero league rate contribute nothing. Components sum to the total.
func Multiplier(profile Profile, team, league Rates) (float64, Rates) {
	var total float64
	var components Rates
	for i := range profile {
		if league[i] == 0 {
			continue
		}
		leak := (team[i] - league[i]) / league[i]
		components[i] = profile[i] / 100 * leak * 100
		total += components[i]
	}
	return total, components
}

func blend(full, recent, weight float64) float64 {
	return full*(1-weight) + recent*weight
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
