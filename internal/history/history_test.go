package history

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

func TestBuildAggregates(t *testing.T) {
	logs := []models.PlayerGameLog{
		{PlayerName: "Jalen Brunson", Matchup: "NYK vs. BOS", GameDate: day(3), Minutes: 36, FantasyPoints: 40},
		{PlayerName: "Jalen Brunson", Matchup: "NYK @ MIA", GameDate: day(1), Minutes: 30, FantasyPoints: 30},
		{PlayerName: "Jalen Brunson", Matchup: "NYK @ PHI", GameDate: day(2), Minutes: 0, FantasyPoints: 0},
		{PlayerName: "Jalen Brunson", Matchup: "NYK @ ORL", GameDate: day(4), Minutes: 33, Points: 20, Rebounds: 5, Assists: 10},
	}
	book := Build(logs, teams.NewAliasTable(teams.DefaultAliases()))

	p, ok := book.Get("jalen brunson")
	require.True(t, ok)
	assert.Equal(t, 3, p.Games)
	assert.InDelta(t, 33.0, p.AvgMinutes, 1e-9)
	assert.InDelta(t, 3.0, p.MinutesSD, 1e-9)
	assert.Equal(t, 36.0, p.SeasonHighMinutes)
	// 20 + 6 + 15 = 41
	assert.InDelta(t, (40.0+30.0+41.0)/3, p.AvgFP, 1e-9)
	assert.InDelta(t, 111.0/99.0, p.FpPerMin, 1e-9)
	assert.Equal(t, "NY", p.Team)
	assert.Equal(t, day(4), p.LastGame)
	require.Len(t, p.logs, 3)
	assert.Equal(t, day(1), p.logs[0].GameDate)
}

func TestBuildSingleGameDefaults(t *testing.T) {
	book := Build([]models.PlayerGameLog{
		{PlayerName: "Rookie", Team: "SAS", GameDate: day(1), Minutes: 12, FantasyPoints: 9},
	}, teams.NewAliasTable(teams.DefaultAliases()))

	p, ok := book.Get("Rookie")
	require.True(t, ok)
	assert.Equal(t, DefaultFpSD, p.FpSD)
	assert.Equal(t, DefaultMinutesSD, p.MinutesSD)
	assert.Equal(t, "SA", book.LatestTeam("Rookie"))
	assert.Equal(t, "", book.LatestTeam("Nobody"))
	assert.Equal(t, 1, book.Len())
}
