package dva

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func newEngine() *Engine {
	return NewEngine(DefaultConfig(), teams.NewAliasTable(teams.DefaultAliases()))
}

func TestMultiplierZeroAtLeagueAverage(t *testing.T) {
	profile := Profile{Pts: 50, Reb: 30, Ast: 20}
	league := Rates{Pts: 0.5, Reb: 0.2, Ast: 0.1, Stl: 0.03}

	total, components := Multiplier(profile, league, league)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, Rates{}, components)
}

func TestMultiplierWeightsByProfile(t *testing.T) {
	profile := Profile{Pts: 50, Reb: 30, Ast: 20}
	league := Rates{Pts: 0.5, Reb: 0.2, Ast: 0.1}
	team := Rates{Pts: 0.55, Reb: 0.2, Ast: 0.09}

	total, components := Multiplier(profile, team, league)
	assert.InDelta(t, 5.0, components[Pts], 1e-9)
	assert.InDelta(t, -2.0, components[Ast], 1e-9)
	assert.InDelta(t, 3.0, total, 1e-9)
}

func TestMultiplierSkipsZeroLeagueRate(t *testing.T) {
	total, _ := Multiplier(Profile{Blk: 100}, Rates{Blk: 0.1}, Rates{})
	assert.Equal(t, 0.0, total)
}

func TestBuildProfileSumsToHundred(t *testing.T) {
	p := BuildProfile(Rates{0.6, 0.25, 0.15, 0.03, 0.02, 0.05, 0.07})
	var sum float64
	for _, v := range p {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 100.0, sum, 0.1)
	// turnovers count by magnitude
	assert.Greater(t, p[Tov], 0.0)

	assert.Equal(t, Profile{}, BuildProfile(Rates{}))
}

func TestBuildRecordsAndShrinkage(t *testing.T) {
	labels := map[string]string{"tyrese haliburton": "Playmaker"}
	logs := []models.PlayerGameLog{
		{PlayerName: "Tyrese Haliburton", Matchup: "IND vs. BOS", GameDate: day(1), Minutes: 30, Points: 30},
		{PlayerName: "Tyrese Haliburton", Matchup: "IND @ BOS", GameDate: day(2), Minutes: 30, Points: 30},
		{PlayerName: "Tyrese Haliburton", Matchup: "IND vs. MIA", GameDate: day(3), Minutes: 30, Points: 15},
		{PlayerName: "Tyrese Haliburton", Matchup: "IND @ MIA", GameDate: day(4), Minutes: 30, Points: 15},
		// garbage time and unlabeled players are ignored
		{PlayerName: "Tyrese Haliburton", Matchup: "IND @ BOS", GameDate: day(5), Minutes: 4, Points: 100},
		{PlayerName: "Unknown Player", Matchup: "IND @ BOS", GameDate: day(5), Minutes: 30, Points: 90},
	}

	res := newEngine().Build(logs, labels)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 4, res.Samples["Playmaker"])
	assert.InDelta(t, 100.0, res.Profiles["Playmaker"][Pts], 1e-9)

	bos, ok := res.Lookup("BOS", "Playmaker")
	require.True(t, ok)
	assert.Equal(t, 2, bos.Samples)
	assert.Equal(t, 0.75, bos.LeagueFpPerMin)
	assert.Equal(t, 1.0, bos.TeamFpPerMin)
	assert.Equal(t, 0.25, bos.FpPerMinDiff)
	assert.Equal(t, 33.33, bos.DvsRaw)
	// two samples shrink by 2/50
	assert.Equal(t, 1.33, bos.DvsMultiplier)
	assert.Equal(t, 1.33, bos.PtsComponent)

	mia, ok := res.Lookup("MIA", "Playmaker")
	require.True(t, ok)
	assert.Equal(t, -1.33, mia.DvsMultiplier)

	_, ok = res.Lookup("LAL", "Playmaker")
	assert.False(t, ok)
}

func TestBuildBlendsRecentWindow(t *testing.T) {
	labels := map[string]string{"austin reaves": "Scoring Wing"}
	var logs []models.PlayerGameLog
	for d := 1; d <= 5; d++ {
		logs = append(logs, models.PlayerGameLog{PlayerName: "Austin Reaves", Matchup: "SAC vs. LAL", GameDate: day(d), Minutes: 20, Points: 10})
	}
	for d := 40; d <= 44; d++ {
		logs = append(logs, models.PlayerGameLog{PlayerName: "Austin Reaves", Matchup: "SAC @ LAL", GameDate: day(d), Minutes: 20, Points: 20})
	}
	logs = append(logs,
		models.PlayerGameLog{PlayerName: "Austin Reaves", Matchup: "SAC @ DEN", GameDate: day(6), Minutes: 20, Points: 10},
		models.PlayerGameLog{PlayerName: "Austin Reaves", Matchup: "SAC @ DEN", GameDate: day(7), Minutes: 20, Points: 10},
	)

	res := newEngine().Build(logs, labels)
	lal, ok := res.Lookup("LAL", "Scoring Wing")
	require.True(t, ok)
	assert.Equal(t, 10, lal.Samples)
	assert.Equal(t, 5, lal.RecentSamples)
	assert.Equal(t, 0.875, lal.TeamFpPerMin)
	assert.Equal(t, 0.7083, lal.LeagueFpPerMin)

	den, ok := res.Lookup("DEN", "Scoring Wing")
	require.True(t, ok)
	assert.Equal(t, 0, den.RecentSamples)
	assert.Equal(t, 0.5, den.TeamFpPerMin)
}

func TestBuildEmpty(t *testing.T) {
	res := newEngine().Build(nil, nil)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.ProfileRows())
}

func TestProfileRowsOrdered(t *testing.T) {
	res := &Result{
		Profiles: map[string]Profile{"Traditional Big": {Reb: 100}, "Combo Guard": {Pts: 100}},
		Samples:  map[string]int{"Combo Guard": 12},
	}
	rows := res.ProfileRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Combo Guard", rows[0].Archetype)
	assert.Equal(t, 12, rows[0].Samples)
	assert.Equal(t, 100.0, rows[1].RebPct)
}
