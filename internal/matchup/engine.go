package matchup

import (
	"encoding/json"
	"math"
	"sort"

	"gorm.io/datatypes"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Player is one member of the matchup pool.
type Player struct {
	Name       string
	Team       string
	Archetype  string
	HeightIn   float64
	WeightLbs  float64
	WingspanIn float64
	Games      int
	MinutesSD  *float64 // nil when unknown
}

// Data is everything the engine indexes at construction.
type Data struct {
	Players []Player
	Logs    []models.PlayerGameLog
	Out     map[string]bool // normalized names unavailable for the slate
}

type familiarity struct {
	games   int
	fppmSum float64
}

type archPair struct {
	player   string
	opponent string
}

type archStats struct {
	n       int
	fppmSum float64
}

// Engine scores player-vs-opponent interactions.
type Engine struct {
	cfg     Config
	aliases *teams.AliasTable

	players   map[string]*Player
	rosters   map[string][]*Player
	teamArchs map[string][]string
	groups    map[string]int
	interior  map[string]bool

	seasonFppm   map[string]float64
	vsTeam       map[string]map[string]*familiarity
	poolMaxGames int

	archAvg   map[string]float64
	archPairs map[archPair]*archStats

	leagueStability float64
}

// NewEngine indexes the pool, game logs and archetype-vs-archetype history.
func NewEngine(cfg Config, data Data, aliases *teams.AliasTable) *Engine {
	e := &Engine{
		cfg:        cfg,
		aliases:    aliases,
		players:    make(map[string]*Player),
		rosters:    make(map[string][]*Player),
		groups:     make(map[string]int),
		interior:   make(map[string]bool),
		seasonFppm: make(map[string]float64),
		vsTeam:     make(map[string]map[string]*familiarity),
		archAvg:    make(map[string]float64),
		archPairs:  make(map[archPair]*archStats),
	}
	for i, group := range cfg.PositionGroups {
		for _, arch := range group {
			if _, ok := e.groups[arch]; !ok {
				e.groups[arch] = i
			}
		}
	}
	for _, arch := range cfg.InteriorArchetypes {
		e.interior[arch] = true
	}

	for i := range data.Players {
		p := data.Players[i]
		p.Team = aliases.Resolve(p.Team)
		key := teams.NormalizeName(p.Name)
		if _, dup := e.players[key]; dup {
			continue
		}
		e.players[key] = &p
		if !data.Out[key] {
			e.rosters[p.Team] = append(e.rosters[p.Team], &p)
		}
	}

	e.teamArchs = e.rosterArchetypes()
	e.indexLogs(data.Logs)
	e.leagueStability = e.computeLeagueStability()
	return e
}

func (e *Engine) indexLogs(logs []models.PlayerGameLog) {
	type total struct {
		n   int
		sum float64
	}
	season := make(map[string]*total)
	archTotals := make(map[string]*total)

	for _, log := range logs {
		if log.Minutes <= e.cfg.MinMinutes {
			continue
		}
		_, opponent, _ := teams.ParseMatchup(log.Matchup)
		if opponent == "" {
			opponent = log.Opponent
		}
		if opponent == "" {
			continue
		}
		opponent = e.aliases.Resolve(opponent)
		key := teams.NormalizeName(log.PlayerName)
		fppm := log.Score() / log.Minutes

		if season[key] == nil {
			season[key] = &total{}
		}
		season[key].n++
		season[key].sum += fppm

		if e.vsTeam[key] == nil {
			e.vsTeam[key] = make(map[string]*familiarity)
		}
		f := e.vsTeam[key][opponent]
		if f == nil {
			f = &familiarity{}
			e.vsTeam[key][opponent] = f
		}
		f.games++
		f.fppmSum += fppm
		if f.games > e.poolMaxGames {
			e.poolMaxGames = f.games
		}

		p, ok := e.players[key]
		if !ok || p.Archetype == "" {
			continue
		}
		if archTotals[p.Archetype] == nil {
			archTotals[p.Archetype] = &total{}
		}
		archTotals[p.Archetype].n++
		archTotals[p.Archetype].sum += fppm

		for _, oppArch := range e.teamArchs[opponent] {
			if !e.canMatch(p.Archetype, oppArch) {
				continue
			}
			k := archPair{p.Archetype, oppArch}
			if e.archPairs[k] == nil {
				e.archPairs[k] = &archStats{}
			}
			e.archPairs[k].n++
			e.archPairs[k].fppmSum += fppm
		}
	}

	for key, t := range season {
		e.seasonFppm[key] = t.sum / float64(t.n)
	}
	for arch, t := range archTotals {
		e.archAvg[arch] = t.sum / float64(t.n)
	}
}

func (e *Engine) computeLeagueStability() float64 {
	names := make([]string, 0, len(e.players))
	for name := range e.players {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	var n int
	for _, name := range names {
		p := e.players[name]
		if p.MinutesSD == nil {
			continue
		}
		sum += clip(1-*p.MinutesSD/e.cfg.StabilityMinutesSD, 0, 1)
		n++
	}
	if n <= e.cfg.MinLeaguePlayers {
		return e.cfg.DefaultLeagueStability
	}
	return sum / float64(n)
}

// rosterArchetypes lists the distinct archetypes on each team's full roster.
func (e *Engine) rosterArchetypes() map[string][]string {
	seen := make(map[string]map[string]bool)
	out := make(map[string][]string)
	for _, p := range e.players {
		if p.Archetype == "" {
			continue
		}
		if seen[p.Team] == nil {
			seen[p.Team] = make(map[string]bool)
		}
		if seen[p.Team][p.Archetype] {
			continue
		}
		seen[p.Team][p.Archetype] = true
		out[p.Team] = append(out[p.Team], p.Archetype)
	}
	for team := range out {
		sort.Strings(out[team])
	}
	return out
}

func (e *Engine) canMatch(a, b string) bool {
	ga, ok := e.groups[a]
	if !ok {
		return false
	}
	gb, ok := e.groups[b]
	if !ok {
		return false
	}
	return ga-gb <= 1 && gb-ga <= 1
}

// matchable returns the available opponents a player of the archetype can face,
// ordered by name.
func (e *Engine) matchable(arch, opponent string) []*Player {
	var out []*Player
	for _, p := range e.rosters[opponent] {
		if e.canMatch(arch, p.Archetype) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Adjust scores a player against an opposing team. Sub-scores that cannot be
// computed contribute zero.
func (e *Engine) Adjust(player, opponent string) models.MatchupAdjustment {
	opponent = e.aliases.Resolve(opponent)
	key := teams.NormalizeName(player)
	adj := models.MatchupAdjustment{PlayerName: player, OpponentTeam: opponent}
	details := make(map[string]interface{})

	adj.Familiarity = e.familiarityScore(key, opponent, details)

	p, known := e.players[key]
	if known && p.Archetype != "" {
		adj.Archetype = p.Archetype
		opponents := e.matchable(p.Archetype, opponent)
		adj.ArchetypeMatchup = e.archetypeScore(p.Archetype, opponents, details)
		adj.Size = e.sizeScore(p, opponents, details)
		adj.Durability = e.durabilityScore(opponents, details)
	}

	w := e.cfg.Weights
	raw := w.Familiarity*adj.Familiarity + w.Archetype*adj.ArchetypeMatchup +
		w.Size*adj.Size + w.Durability*adj.Durability
	adj.Familiarity = round4(adj.Familiarity)
	adj.ArchetypeMatchup = round4(adj.ArchetypeMatchup)
	adj.Size = round4(adj.Size)
	adj.Durability = round4(adj.Durability)
	adj.RawScore = round4(raw)
	adj.FpAdjustment = round1(clip(raw*e.cfg.Scale, -e.cfg.MaxAdjustment, e.cfg.MaxAdjustment))

	if b, err := json.Marshal(details); err == nil {
		adj.Details = datatypes.JSON(b)
	}
	return adj
}

func (e *Engine) familiarityScore(key, opponent string, details map[string]interface{}) float64 {
	f, ok := e.vsTeam[key][opponent]
	if !ok || f.games == 0 {
		return 0
	}
	poolMax := e.poolMaxGames
	if poolMax < e.cfg.MinPoolGames {
		poolMax = e.cfg.MinPoolGames
	}
	shrink := math.Log1p(float64(f.games)) / math.Log1p(float64(poolMax))
	diff := f.fppmSum/float64(f.games) - e.seasonFppm[key]
	details["familiarity"] = map[string]interface{}{
		"games_vs":  f.games,
		"fppm_diff": round4(diff),
		"shrinkage": round4(shrink),
	}
	return diff * shrink
}

func (e *Engine) archetypeScore(arch string, opponents []*Player, details map[string]interface{}) float64 {
	seen := make(map[string]bool)
	var sum float64
	var n int
	pairs := make(map[string]float64)
	for _, o := range opponents {
		if seen[o.Archetype] {
			continue
		}
		seen[o.Archetype] = true
		s, ok := e.archPairs[archPair{arch, o.Archetype}]
		if !ok || s.n == 0 {
			continue
		}
		confidence := clip(float64(s.n)/e.cfg.ArchetypeFullSamples, 0, 1)
		score := (s.fppmSum/float64(s.n) - e.archAvg[arch]) * confidence
		pairs[o.Archetype] = round4(score)
		sum += score
		n++
	}
	if n == 0 {
		return 0
	}
	details["archetype"] = pairs
	return sum / float64(n)
}

func (e *Engine) sizeScore(p *Player, opponents []*Player, details map[string]interface{}) float64 {
	if p.HeightIn == 0 && p.WeightLbs == 0 {
		return 0
	}
	var best *Player
	var bestRaw float64
	for _, o := range opponents {
		if o.HeightIn == 0 && o.WeightLbs == 0 {
			continue
		}
		raw := (p.HeightIn - o.HeightIn) + e.cfg.SizeWeightCoef*(p.WeightLbs-o.WeightLbs) +
			e.cfg.SizeWingspanCoef*(p.WingspanIn-o.WingspanIn)
		if best == nil || math.Abs(raw) > math.Abs(bestRaw) {
			best, bestRaw = o, raw
		}
	}
	if best == nil {
		return 0
	}
	weight := e.cfg.PerimeterSizeWeight
	if e.interior[p.Archetype] {
		weight = 1
	}
	details["size"] = map[string]interface{}{
		"opponent":  best.Name,
		"raw_diff":  round4(bestRaw),
		"weighting": weight,
	}
	return clip(bestRaw/e.cfg.SizeNormalizer, -1, 1) * weight
}

// durabilityScore is positive when the least stable matchable opponent is less
// stable than the league average.
func (e *Engine) durabilityScore(opponents []*Player, details map[string]interface{}) float64 {
	var weakest *Player
	lowest := math.Inf(1)
	for _, o := range opponents {
		sd := e.cfg.DefaultMinutesSD
		if o.MinutesSD != nil {
			sd = *o.MinutesSD
		}
		stability := math.Max(0, 1-sd/e.cfg.StabilityMinutesSD)
		if o.Games < e.cfg.LowGames {
			stability *= e.cfg.LowGamesPenalty
		}
		if stability < lowest {
			weakest, lowest = o, stability
		}
	}
	if weakest == nil {
		return 0
	}
	details["durability"] = map[string]interface{}{
		"opponent":         weakest.Name,
		"stability":        round4(lowest),
		"league_stability": round4(e.leagueStability),
	}
	return e.leagueStability - lowest
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
