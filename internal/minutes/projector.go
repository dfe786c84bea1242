package minutes

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Game context labels.
const (
	ContextClose   = "Close"
	ContextNormal  = "Normal"
	ContextBlowout = "Blowout"
	ContextUnknown = "Unknown"
)

// Config holds the rotation model's hand-tuned constants.
type Config struct {
	Baseline map[string]float64 `mapstructure:"baseline"`
	Band     Band               `mapstructure:"band"`
	Physical PhysicalConfig     `mapstructure:"physical"`

	// StarterBumps is indexed by new depth - 1; deeper slots reuse the last entry.
	StarterBumps []float64 `mapstructure:"starter_bumps"`
	BenchPenalty float64   `mapstructure:"bench_penalty"`

	CloseSpread    float64 `mapstructure:"close_spread"`
	BlowoutSpread  float64 `mapstructure:"blowout_spread"`
	CloseBonus     float64 `mapstructure:"close_bonus"`
	BlowoutPenalty float64 `mapstructure:"blowout_penalty"`

	FoulRate    float64 `mapstructure:"foul_rate"`
	FoulProbCap float64 `mapstructure:"foul_prob_cap"`
	FoulMinutes float64 `mapstructure:"foul_minutes"`

	OmegaBase          float64   `mapstructure:"omega_base"`
	OmegaDepthWeight   float64   `mapstructure:"omega_depth_weight"`
	OmegaMinutesWeight float64   `mapstructure:"omega_minutes_weight"`
	DepthFactors       []float64 `mapstructure:"depth_factors"`
	MinutesFloor       float64   `mapstructure:"minutes_floor"`
	MinutesSpan        float64   `mapstructure:"minutes_span"`

	RealityMultiplier float64 `mapstructure:"reality_multiplier"`
	RealityCushion    float64 `mapstructure:"reality_cushion"`
}

func DefaultConfig() Config {
	return Config{
		Baseline:           DefaultBaselineMinutes(),
		Band:               DefaultBand(),
		Physical:           DefaultPhysicalConfig(),
		StarterBumps:       []float64{10, 4, 2, 1},
		BenchPenalty:       -6,
		CloseSpread:        5,
		BlowoutSpread:      10,
		CloseBonus:         2,
		BlowoutPenalty:     -2,
		FoulRate:           0.12,
		FoulProbCap:        0.2,
		FoulMinutes:        10,
		OmegaBase:          0.2,
		OmegaDepthWeight:   0.3,
		OmegaMinutesWeight: 0.2,
		DepthFactors:       []float64{1, 0.5, 0.25},
		MinutesFloor:       10,
		MinutesSpan:        20,
		RealityMultiplier:  2,
		RealityCushion:     4,
	}
}

// PlayerMinutes is a player's recent playing-time record.
type PlayerMinutes struct {
	MPG        float64
	SeasonHigh float64
}

// Game is a team's matchup on the slate. Spread is from the team's perspective.
type Game struct {
	Opponent string
	Spread   *float64
}

// RotationInput is everything the projector reads for one slate. Player maps are
// keyed by teams.NormalizeName and team names are expected to be canonical.
type RotationInput struct {
	Slate      time.Time
	DepthChart []models.DepthChartEntry
	Out        map[string]bool
	Salaries   map[string]models.SalaryEntry
	Games      map[string]Game
	Minutes    map[string]PlayerMinutes
}

// Projector turns depth charts into bounded minutes projections.
type Projector struct {
	cfg      Config
	table    *BaselineTable
	physical *PhysicalTable
}

func NewProjector(cfg Config, table *BaselineTable, physical *PhysicalTable) *Projector {
	return &Projector{cfg: cfg, table: table, physical: physical}
}

type depthPlayer struct {
	team      string
	name      string
	key       string
	slot      string
	position  string
	espnDepth int
	scrape    int
}

type groupKey struct {
	team     string
	position string
}

// Project returns one row per active depth-chart player, ordered by team, position
// and projected depth.
func (p *Projector) Project(in RotationInput) []models.RotationProjection {
	groups, order := p.groupDepthChart(in.DepthChart)
	starters := p.starters(groups, in.Out)

	var out []models.RotationProjection
	for _, gk := range order {
		out = append(out, p.projectGroup(gk, groups[gk], starters, in)...)
	}
	return out
}

// groupDepthChart keeps each player once per team, at their lowest listed depth.
func (p *Projector) groupDepthChart(entries []models.DepthChartEntry) (map[groupKey][]depthPlayer, []groupKey) {
	best := make(map[string]depthPlayer)
	var keys []string
	for i, e := range entries {
		pos, depth, ok := SplitSlot(e.PositionSlot)
		if !ok || e.PlayerName == "" {
			continue
		}
		dp := depthPlayer{
			team:      e.Team,
			name:      e.PlayerName,
			key:       teams.NormalizeName(e.PlayerName),
			slot:      pos + strconv.Itoa(depth),
			position:  pos,
			espnDepth: depth,
			scrape:    i,
		}
		id := e.Team + "|" + dp.key
		cur, seen := best[id]
		if !seen {
			keys = append(keys, id)
		}
		if !seen || dp.espnDepth < cur.espnDepth {
			best[id] = dp
		}
	}

	groups := make(map[groupKey][]depthPlayer)
	var order []groupKey
	for _, id := range keys {
		dp := best[id]
		gk := groupKey{team: dp.team, position: dp.position}
		if _, ok := groups[gk]; !ok {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], dp)
	}
	for gk := range groups {
		g := groups[gk]
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].espnDepth != g[j].espnDepth {
				return g[i].espnDepth < g[j].espnDepth
			}
			return g[i].scrape < g[j].scrape
		})
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].team != order[j].team {
			return order[i].team < order[j].team
		}
		return order[i].position < order[j].position
	})
	return groups, order
}

// starters maps team and position to the first active player listed.
func (p *Projector) starters(groups map[groupKey][]depthPlayer, out map[string]bool) map[groupKey]string {
	s := make(map[groupKey]string, len(groups))
	for gk, g := range groups {
		for _, dp := range g {
			if !out[dp.key] {
				s[gk] = dp.name
				break
			}
		}
	}
	return s
}

func (p *Projector) projectGroup(gk groupKey, group []depthPlayer, starters map[groupKey]string, in RotationInput) []models.RotationProjection {
	var active []depthPlayer
	var outBaseline float64
	for _, dp := range group {
		if in.Out[dp.key] {
			outBaseline += p.table.Lookup(dp.slot)
			continue
		}
		active = append(active, dp)
	}
	if len(active) == 0 {
		return nil
	}
	injuryBump := outBaseline / float64(len(active))
	active = p.finalOrder(active, in.Salaries)

	game, hasGame := in.Games[gk.team]
	var spread *float64
	if hasGame {
		spread = game.Spread
	}
	contextAdj, contextLabel := p.GameContext(spread)
	foulProb := 0.0
	if hasGame {
		foulProb = p.foulProbability(gk.position, game.Opponent, starters)
	}

	rows := make([]models.RotationProjection, 0, len(active))
	for i, dp := range active {
		newDepth := i + 1
		slot := gk.position + strconv.Itoa(newDepth)
		sal, hasSalary := in.Salaries[dp.key]
		bench := hasSalary && sal.IsBench
		promoted := newDepth < dp.espnDepth

		role := p.table.Lookup(slot)
		floor, ceiling := p.table.Bounds(slot)

		pm, hasMinutes := in.Minutes[dp.key]
		var mpg *float64
		if hasMinutes && pm.MPG > 0 {
			v := pm.MPG
			mpg = &v
		}
		omega := p.Omega(newDepth, mpg)
		weighted := WeightedBase(role, mpg, omega)

		row := models.RotationProjection{
			SlateDate:        in.Slate,
			Team:             gk.team,
			PlayerName:       dp.name,
			Position:         gk.position,
			EspnSlot:         dp.slot,
			EspnDepth:        dp.espnDepth,
			NewDepth:         newDepth,
			Promoted:         promoted,
			Demoted:          newDepth > dp.espnDepth,
			IsBench:          bench,
			RoleBaseline:     round2(role),
			PlayerMPG:        mpg,
			Omega:            round3(omega),
			WeightedBase:     round2(weighted),
			StarterBump:      p.StarterBump(newDepth, promoted, bench),
			InjuryBump:       round2(injuryBump),
			GameContext:      contextAdj,
			GameContextLabel: contextLabel,
			FoulBoost:        round2(p.foulBoost(newDepth, foulProb)),
		}
		if dp.espnDepth == 1 && bench {
			row.BenchPenalty = p.cfg.BenchPenalty
		}

		raw := weighted + row.StarterBump + injuryBump + row.BenchPenalty + row.GameContext + row.FoulBoost
		projected := math.Min(math.Max(raw, floor), ceiling)

		if promoted && hasMinutes && (pm.MPG > 0 || pm.SeasonHigh > 0) {
			limit := p.RealityCap(pm.MPG, pm.SeasonHigh)
			row.RealityCap = &limit
			ceiling = math.Min(ceiling, limit)
			floor = math.Min(floor, ceiling)
			projected = math.Min(projected, ceiling)
		}

		row.MinFloor = round2(floor)
		row.MaxCeiling = round2(ceiling)
		row.ProjectedMin = round2(projected)
		rows = append(rows, row)
	}
	return rows
}

// finalOrder applies roster order from the salary source when it has any:
// starters before bench, then roster order, players missing from the salary
// source last. Without roster data the scraped order stands.
func (p *Projector) finalOrder(active []depthPlayer, salaries map[string]models.SalaryEntry) []depthPlayer {
	hasOrder := false
	for _, dp := range active {
		if s, ok := salaries[dp.key]; ok && s.RosterOrder > 0 {
			hasOrder = true
			break
		}
	}
	if !hasOrder {
		return active
	}

	rank := func(dp depthPlayer) (int, int) {
		s, ok := salaries[dp.key]
		switch {
		case !ok:
			return 2, math.MaxInt32
		case s.IsBench:
			return 1, orderOrMax(s.RosterOrder)
		default:
			return 0, orderOrMax(s.RosterOrder)
		}
	}
	ordered := append([]depthPlayer(nil), active...)
	sort.SliceStable(ordered, func(i, j int) bool {
		gi, oi := rank(ordered[i])
		gj, oj := rank(ordered[j])
		if gi != gj {
			return gi < gj
		}
		return oi < oj
	})
	return ordered
}

func orderOrMax(order int) int {
	if order <= 0 {
		return math.MaxInt32
	}
	return order
}

// Omega is the trust placed in a player's own minutes over the role baseline. It
// ranges from OmegaBase for a deep reserve with no minutes to
// OmegaBase+OmegaDepthWeight+OmegaMinutesWeight for a heavy-minutes starter.
func (p *Projector) Omega(depth int, mpg *float64) float64 {
	depthFactor := 0.0
	if depth >= 1 && depth <= len(p.cfg.DepthFactors) {
		depthFactor = p.cfg.DepthFactors[depth-1]
	}
	minutesFactor := 0.0
	if mpg != nil && p.cfg.MinutesSpan > 0 {
		minutesFactor = clip((*mpg-p.cfg.MinutesFloor)/p.cfg.MinutesSpan, 0, 1)
	}
	return p.cfg.OmegaBase + p.cfg.OmegaDepthWeight*depthFactor + p.cfg.OmegaMinutesWeight*minutesFactor
}

// WeightedBase blends the role baseline with the player's own minutes.
func WeightedBase(role float64, mpg *float64, omega float64) float64 {
	if mpg == nil {
		return role
	}
	return (1-omega)*role + omega*(*mpg)
}

// GameContext scores the expected game script from the spread.
func (p *Projector) GameContext(spread *float64) (float64, string) {
	if spread == nil {
		return 0, ContextUnknown
	}
	s := math.Abs(*spread)
	switch {
	case s < p.cfg.CloseSpread:
		return p.cfg.CloseBonus, ContextClose
	case s >= p.cfg.BlowoutSpread:
		return p.cfg.BlowoutPenalty, ContextBlowout
	default:
		return 0, ContextNormal
	}
}

// StarterBump is the extra minutes for a player moved up the depth chart. Players
// the salary source lists as bench get nothing.
func (p *Projector) StarterBump(newDepth int, promoted, bench bool) float64 {
	if !promoted || bench || len(p.cfg.StarterBumps) == 0 || newDepth < 1 {
		return 0
	}
	i := newDepth - 1
	if i >= len(p.cfg.StarterBumps) {
		i = len(p.cfg.StarterBumps) - 1
	}
	return p.cfg.StarterBumps[i]
}

// RealityCap bounds a promoted player's minutes by what they have actually played.
func (p *Projector) RealityCap(mpg, seasonHigh float64) float64 {
	limit := math.Max(p.cfg.RealityMultiplier*mpg, seasonHigh+p.cfg.RealityCushion)
	return round2(math.Min(p.table.MaxMinutes(), limit))
}

func (p *Projector) foulProbability(position, opponent string, starters map[groupKey]string) float64 {
	var modifier float64
	if name, ok := starters[groupKey{team: opponent, position: position}]; ok {
		modifier = p.physical.Modifier(name, physicalPosition(position))
	} else if position == "C" {
		modifier = p.physical.TeamCenterModifier(opponent)
	}
	return math.Min(p.cfg.FoulRate*modifier, p.cfg.FoulProbCap)
}

// foulBoost moves minutes from a starter in foul trouble to the backup.
func (p *Projector) foulBoost(depth int, prob float64) float64 {
	lost := prob * p.cfg.FoulMinutes
	switch depth {
	case 1:
		return -lost
	case 2:
		return lost
	}
	return 0
}

func physicalPosition(position string) string {
	switch position {
	case "G":
		return "PG"
	case "F":
		return "PF"
	}
	return position
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
