package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-projections/internal/archetype"
	"github.com/stitts-dev/nba-projections/internal/dva"
	"github.com/stitts-dev/nba-projections/internal/history"
	"github.com/stitts-dev/nba-projections/internal/matchup"
	"github.com/stitts-dev/nba-projections/internal/minutes"
	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/projection"
	"github.com/stitts-dev/nba-projections/internal/teams"
	"github.com/stitts-dev/nba-projections/internal/volatility"
	"github.com/stitts-dev/nba-projections/pkg/config"
)

// Stage names, in execution order.
const (
	StageLoad       = "load"
	StagePrepare    = "prepare"
	StageRotation   = "rotation"
	StageArchetype  = "archetype"
	StageDVA        = "dva"
	StageMatchup    = "matchup"
	StageAssemble   = "assemble"
	StageVolatility = "volatility"
	StageWrite      = "stage"
	StagePromote    = "promote"
)

// Computer runs the numeric stages. It performs no I/O.
type Computer struct {
	tuning config.Tuning
	log    *logrus.Entry
}

func NewComputer(tuning config.Tuning, log *logrus.Entry) *Computer {
	return &Computer{tuning: tuning, log: log}
}

// state carries one run's intermediate results between stages.
type state struct {
	slate   time.Time
	in      *models.Inputs
	aliases *teams.AliasTable
	book    *history.Book

	out       map[string]bool
	salaries  []models.SalaryEntry
	salaryBy  map[string]models.SalaryEntry
	rates     map[string]models.PlayerSeasonRates
	games     map[string]projection.GameSide
	rotations map[string]*models.RotationProjection

	classes  *archetype.Result
	labels   map[string]string
	dva      *dva.Result
	matchups map[string]models.MatchupAdjustment

	result *models.Outputs
}

type stage struct {
	name string
	run  func(*state)
}

func (c *Computer) stages() []stage {
	return []stage{
		{StagePrepare, c.prepare},
		{StageRotation, c.rotation},
		{StageArchetype, c.archetypes},
		{StageDVA, c.defenseVsArchetype},
		{StageMatchup, c.matchups},
		{StageAssemble, c.assemble},
		{StageVolatility, c.volatility},
	}
}

func (c *Computer) newState(slate time.Time, in *models.Inputs) *state {
	return &state{slate: slate, in: in, result: &models.Outputs{}}
}

// Compute runs every stage over the inputs. The same inputs and tuning always
// produce the same outputs.
func (c *Computer) Compute(slate time.Time, in *models.Inputs) *models.Outputs {
	st := c.newState(slate, in)
	for _, s := range c.stages() {
		s.run(st)
	}
	return st.result
}

// prepare resolves team names, indexes the slate and builds game-log histories.
func (c *Computer) prepare(st *state) {
	st.aliases = c.tuning.AliasTable()
	st.book = history.Build(st.in.GameLogs, st.aliases)

	st.out = make(map[string]bool)
	for _, inj := range st.in.Injuries {
		if inj.IsOut() {
			st.out[teams.NormalizeName(inj.PlayerName)] = true
		}
	}

	st.salaries = make([]models.SalaryEntry, len(st.in.Salaries))
	st.salaryBy = make(map[string]models.SalaryEntry, len(st.in.Salaries))
	for i, s := range st.in.Salaries {
		s.Team = st.aliases.Resolve(s.Team)
		st.salaries[i] = s
		st.salaryBy[teams.NormalizeName(s.PlayerName)] = s
	}

	st.rates = make(map[string]models.PlayerSeasonRates, len(st.in.SeasonRates))
	traded := 0
	for _, r := range st.in.SeasonRates {
		if teams.IsMultiTeam(r.Team) {
			if team := st.book.LatestTeam(r.PlayerName); team != "" {
				r.Team = team
				traded++
			}
		}
		r.Team = st.aliases.Resolve(r.Team)
		st.rates[teams.NormalizeName(r.PlayerName)] = r
	}

	odds := make([]models.GameOdds, len(st.in.Odds))
	for i, o := range st.in.Odds {
		o.HomeTeam = st.aliases.Resolve(o.HomeTeam)
		o.AwayTeam = st.aliases.Resolve(o.AwayTeam)
		odds[i] = o
	}
	st.games = projection.GameSides(odds)

	c.log.WithFields(logrus.Fields{
		"players_with_history": st.book.Len(),
		"salaries":             len(st.salaries),
		"games":                len(odds),
		"out":                  len(st.out),
		"traded_resolved":      traded,
	}).Info("Prepared slate inputs")
}

func (c *Computer) rotation(st *state) {
	cfg := c.tuning.Minutes
	projector := minutes.NewProjector(cfg,
		minutes.NewBaselineTable(cfg.Baseline, cfg.Band),
		minutes.NewPhysicalTable(cfg.Physical, st.aliases))

	depth := make([]models.DepthChartEntry, len(st.in.DepthCharts))
	for i, d := range st.in.DepthCharts {
		d.Team = st.aliases.Resolve(d.Team)
		depth[i] = d
	}

	games := make(map[string]minutes.Game, len(st.games))
	for team, side := range st.games {
		games[team] = minutes.Game{Opponent: side.Opponent, Spread: side.Spread}
	}

	mins := make(map[string]minutes.PlayerMinutes, st.book.Len())
	for _, h := range st.book.All() {
		mins[teams.NormalizeName(h.Name)] = minutes.PlayerMinutes{MPG: h.AvgMinutes, SeasonHigh: h.SeasonHighMinutes}
	}

	rows := projector.Project(minutes.RotationInput{
		Slate:      st.slate,
		DepthChart: depth,
		Out:        st.out,
		Salaries:   st.salaryBy,
		Games:      games,
		Minutes:    mins,
	})
	st.result.Rotations = rows

	st.rotations = make(map[string]*models.RotationProjection, len(rows))
	promoted := 0
	for i := range rows {
		st.rotations[teams.NormalizeName(rows[i].PlayerName)] = &rows[i]
		if rows[i].Promoted {
			promoted++
		}
	}
	c.log.WithFields(logrus.Fields{"rows": len(rows), "promoted": promoted}).Info("Projected rotation minutes")
}

func (c *Computer) archetypes(st *state) {
	keys := make([]string, 0, len(st.rates))
	for key := range st.rates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	features := make([]archetype.PlayerFeatures, 0, len(keys))
	for _, key := range keys {
		features = append(features, archetype.FeaturesFromRates(st.rates[key]))
	}

	classifier := archetype.NewClassifier(c.tuning.Archetype, c.log.WithField("stage", StageArchetype))
	st.classes = classifier.Classify(features)
	st.labels = st.classes.Labels()
	st.result.Archetypes = st.classes.Rows()

	c.log.WithFields(logrus.Fields{
		"players":    len(st.classes.Assignments),
		"training":   st.classes.TrainingSize,
		"clusters":   len(st.classes.Centroids),
		"mismatches": len(st.classes.Mismatches),
	}).Info("Classified player archetypes")
}

func (c *Computer) defenseVsArchetype(st *state) {
	engine := dva.NewEngine(c.tuning.DVA, st.aliases)
	st.dva = engine.Build(st.in.GameLogs, st.labels)
	st.result.Profiles = st.dva.ProfileRows()
	st.result.Dva = st.dva.Records

	c.log.WithFields(logrus.Fields{
		"profiles": len(st.result.Profiles),
		"records":  len(st.result.Dva),
	}).Info("Built defense-vs-archetype records")
}

func (c *Computer) matchups(st *state) {
	pool := make([]matchup.Player, 0, len(st.classes.Assignments))
	for _, a := range st.classes.Assignments {
		key := teams.NormalizeName(a.Name)
		r := st.rates[key]
		p := matchup.Player{
			Name:       a.Name,
			Team:       r.Team,
			Archetype:  a.BaseArchetype(),
			HeightIn:   r.HeightIn,
			WeightLbs:  r.WeightLbs,
			WingspanIn: r.WingspanIn,
		}
		if h, ok := st.book.Get(a.Name); ok {
			p.Games = h.Games
			if h.Games >= 2 {
				sd := h.MinutesSD
				p.MinutesSD = &sd
			}
		}
		pool = append(pool, p)
	}

	engine := matchup.NewEngine(c.tuning.Matchup, matchup.Data{
		Players: pool,
		Logs:    st.in.GameLogs,
		Out:     st.out,
	}, st.aliases)

	st.matchups = make(map[string]models.MatchupAdjustment)
	for _, s := range st.salaries {
		key := teams.NormalizeName(s.PlayerName)
		side, ok := st.games[s.Team]
		if !ok || st.out[key] {
			continue
		}
		adj := engine.Adjust(s.PlayerName, side.Opponent)
		adj.SlateDate = st.slate
		st.matchups[key] = adj
		st.result.Matchups = append(st.result.Matchups, adj)
	}
	c.log.WithField("rows", len(st.result.Matchups)).Info("Scored matchup interactions")
}

func (c *Computer) assemble(st *state) {
	players := make([]projection.PlayerInput, 0, len(st.salaries))
	for _, s := range st.salaries {
		key := teams.NormalizeName(s.PlayerName)
		if st.out[key] {
			continue
		}
		p := projection.PlayerInput{
			Salary:    s,
			Rotation:  st.rotations[key],
			Archetype: st.labels[key],
		}
		if r, ok := st.rates[key]; ok && r.FpPer100 > 0 {
			v := r.FpPer100
			p.FpPer100 = &v
		}
		if adj, ok := st.matchups[key]; ok {
			p.MatchupAdj = adj.FpAdjustment
		}
		if side, ok := st.games[s.Team]; ok && p.Archetype != "" {
			if rec, ok := st.dva.Lookup(side.Opponent, p.Archetype); ok {
				p.DvsMultiplier = rec.DvsMultiplier
			}
		}
		players = append(players, p)
	}

	assembler := projection.NewAssembler(c.tuning.Projection)
	st.result.Projections = assembler.Assemble(projection.AssemblyInput{
		Slate:    st.slate,
		Players:  players,
		Games:    st.games,
		Pace:     c.pace(st),
		AvgLines: c.averageLines(st),
		Dvp:      c.dvp(st),
		FoulDiff: c.foulDiffs(st),
	})
	c.log.WithField("rows", len(st.result.Projections)).Info("Assembled projections")
}

func (c *Computer) volatility(st *state) {
	cfg := c.tuning.Volatility
	profiles := volatility.EmpiricalProfiles(volatility.SamplesFromLogs(st.in.GameLogs, st.salaries), cfg)
	for _, tier := range volatility.Tiers {
		if profiles[tier].Source == volatility.SourceDefault {
			c.log.WithField("tier", tier).Debug("Tier profile falls back to defaults")
		}
	}

	reg := volatility.NewRegularizer(cfg, profiles)
	for i := range st.result.Projections {
		p := &st.result.Projections[i]
		key := teams.NormalizeName(p.PlayerName)
		hist := volatility.History{GamesPct: st.salaryBy[key].GamesPct}
		p.RawFpSD = history.DefaultFpSD
		if h, ok := st.book.Get(p.PlayerName); ok {
			p.RawFpSD = h.FpSD
			hist.Games = h.Games
			hist.HasGames = true
		}
		reg.Regularize(p, hist)
	}
	volatility.ValueScores(st.result.Projections)
	st.result.Tiers = profiles.Rows()

	if unresolved := st.aliases.Unresolved(); len(unresolved) > 0 {
		c.log.WithField("names", unresolved).Warn("Unresolved team names")
	}
	c.log.WithField("tiers", len(st.result.Tiers)).Info("Regularized projection variance")
}

func (c *Computer) pace(st *state) map[string]float64 {
	out := make(map[string]float64, len(st.in.Pace))
	for _, p := range st.in.Pace {
		out[st.aliases.Resolve(p.Team)] = p.Pace
	}
	return out
}

// averageLines is each team's mean historical implied score.
func (c *Computer) averageLines(st *state) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, l := range st.in.Lines {
		if l.TeamLine <= 0 {
			continue
		}
		team := st.aliases.Resolve(l.Team)
		sums[team] += l.TeamLine
		counts[team]++
	}
	out := make(map[string]float64, len(sums))
	for team, sum := range sums {
		out[team] = sum / float64(counts[team])
	}
	return out
}

func (c *Computer) dvp(st *state) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, d := range st.in.Dvp {
		team := st.aliases.Resolve(d.Team)
		if out[team] == nil {
			out[team] = make(map[string]float64)
		}
		out[team][strings.ToUpper(strings.TrimSpace(d.Position))] = d.DvpScore
	}
	return out
}

// foulDiffs gives both teams of a game the crew's home-favoring differential.
func (c *Computer) foulDiffs(st *state) map[string]*float64 {
	out := make(map[string]*float64)
	for _, r := range st.in.Referees {
		if r.AvgFoulDiff == nil {
			continue
		}
		v := *r.AvgFoulDiff
		out[st.aliases.Resolve(r.HomeTeam)] = &v
		out[st.aliases.Resolve(r.AwayTeam)] = &v
	}
	return out
}
