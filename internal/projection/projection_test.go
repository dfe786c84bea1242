package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-projections/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestFpPerMin(t *testing.T) {
	assert.InDelta(t, 0.625, FpPerMin(30, 100), 1e-9)
	assert.InDelta(t, 0.9, FpPerMin(43.2, 100), 1e-9)
	assert.InDelta(t, 0.0, FpPerMin(0, 100), 1e-9)
}

func TestGameSides(t *testing.T) {
	// the stored line belongs to the away team: NY +6.5 at BOS
	sides := GameSides([]models.GameOdds{
		{HomeTeam: "BOS", AwayTeam: "NY", Spread: fptr(6.5), Total: fptr(220)},
	})
	require.Len(t, sides, 2)

	bos := sides["BOS"]
	assert.True(t, bos.Home)
	assert.Equal(t, "NY", bos.Opponent)
	require.NotNil(t, bos.Spread)
	assert.Equal(t, -6.5, *bos.Spread)

	ny := sides["NY"]
	assert.False(t, ny.Home)
	require.NotNil(t, ny.Spread)
	assert.Equal(t, 6.5, *ny.Spread)
	require.NotNil(t, ny.Total)
	assert.Equal(t, 220.0, *ny.Total)

	assert.Greater(t, LineWeight(&bos, 110), LineWeight(&ny, 110))
}

func TestGameSidesWithoutLine(t *testing.T) {
	sides := GameSides([]models.GameOdds{{HomeTeam: "BOS", AwayTeam: "NY", Total: fptr(220)}})

	bos := sides["BOS"]
	assert.Nil(t, bos.Spread)
	assert.Nil(t, sides["NY"].Spread)
	assert.Equal(t, 1.0, LineWeight(&bos, 110))
}

func TestLineWeight(t *testing.T) {
	side := &GameSide{Spread: fptr(-6), Total: fptr(224)}
	assert.InDelta(t, 115.0, ImpliedTeamScore(224, -6), 1e-9)
	assert.InDelta(t, 115.0/110.0, LineWeight(side, 110), 1e-9)
	assert.Equal(t, 1.0, LineWeight(side, 0))
	assert.Equal(t, 1.0, LineWeight(nil, 110))
	assert.Equal(t, 1.0, LineWeight(&GameSide{}, 110))
	assert.Equal(t, 1.0, LineWeight(&GameSide{Spread: fptr(-6)}, 110))
}

func TestRefWeight(t *testing.T) {
	a := NewAssembler(DefaultConfig())

	assert.InDelta(t, 1.05, a.RefWeight(true, fptr(2)), 1e-9)
	assert.InDelta(t, 0.95, a.RefWeight(false, fptr(2)), 1e-9)
	assert.InDelta(t, 1.025, a.RefWeight(false, fptr(-1)), 1e-9)
	assert.Equal(t, 1.0, a.RefWeight(true, nil))
}

func TestDvpWeights(t *testing.T) {
	a := NewAssembler(DefaultConfig())

	weights := a.DvpWeights([]*float64{fptr(10), fptr(20), nil, fptr(30)})
	require.Len(t, weights, 4)
	assert.InDelta(t, 0.9, weights[0], 1e-9)
	assert.InDelta(t, 1.0, weights[1], 1e-9)
	assert.Equal(t, 1.0, weights[2])
	assert.InDelta(t, 1.1, weights[3], 1e-9)

	// extreme z-scores are compressed
	weights = a.DvpWeights([]*float64{fptr(0), fptr(0), fptr(0), fptr(0), fptr(0), fptr(0), fptr(0), fptr(0), fptr(0), fptr(100)})
	assert.Equal(t, 1.15, weights[9])
	for _, w := range weights {
		assert.GreaterOrEqual(t, w, 0.85)
		assert.LessOrEqual(t, w, 1.15)
	}

	assert.Equal(t, []float64{1, 1}, a.DvpWeights([]*float64{fptr(5), fptr(5)}))
	assert.Equal(t, []float64{1}, a.DvpWeights([]*float64{fptr(5)}))
}

func TestTruePosition(t *testing.T) {
	a := NewAssembler(Config{PositionMap: map[string]string{"g": "pg", "f": "sf"}})

	assert.Equal(t, "PG", a.TruePosition("G2", "SG"))
	assert.Equal(t, "SF", a.TruePosition("F1", ""))
	assert.Equal(t, "C", a.TruePosition("C1", "PF/C"))
	assert.Equal(t, "PF", a.TruePosition("", "PF/C"))
	assert.Equal(t, "", a.TruePosition("", ""))
}

func TestAssemble(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	slate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := a.Assemble(AssemblyInput{
		Slate: slate,
		Players: []PlayerInput{
			{
				Salary:        models.SalaryEntry{PlayerName: "Home Star", Team: "BOS", Salary: 9500, Position: "SF"},
				Rotation:      &models.RotationProjection{EspnSlot: "SF1", ProjectedMin: 36},
				FpPer100:      fptr(48),
				Archetype:     "Scoring Wing",
				MatchupAdj:    1.5,
				DvsMultiplier: 10,
			},
			{
				Salary: models.SalaryEntry{PlayerName: "No Data", Team: "NY", Salary: 3500, Position: "PG"},
			},
			{
				Salary:     models.SalaryEntry{PlayerName: "Benchwarmer", Team: "NY", Salary: 3500, Position: "C"},
				Rotation:   &models.RotationProjection{EspnSlot: "C3", ProjectedMin: 2},
				MatchupAdj: -3,
			},
		},
		Games:    GameSides([]models.GameOdds{{HomeTeam: "BOS", AwayTeam: "NY", Spread: fptr(6), Total: fptr(224)}}),
		Pace:     map[string]float64{"BOS": 96},
		AvgLines: map[string]float64{"BOS": 115},
		FoulDiff: map[string]*float64{"BOS": fptr(2), "NY": fptr(2)},
	})
	require.Len(t, rows, 3)

	star := rows[0]
	assert.Equal(t, "NY", star.Opponent)
	assert.Equal(t, "SF", star.TruePosition)
	assert.Equal(t, slate, star.SlateDate)
	// 48/100 * 96/48 = 0.96 fp/min
	assert.InDelta(t, 0.96, star.FpPerMin, 1e-9)
	assert.InDelta(t, 34.56, star.BaseFP, 1e-9)
	assert.InDelta(t, 1.0, star.LineWeight, 1e-9)
	assert.InDelta(t, 1.05, star.RefWeight, 1e-9)
	assert.Equal(t, 1.0, star.DvpWeight)
	env := 34.56 * 1.05
	assert.InDelta(t, env*0.10, star.DvaAdj, 0.01)
	assert.InDelta(t, env+1.5+env*0.10, star.ProjFP, 0.01)

	none := rows[1]
	assert.Equal(t, 0.0, none.ProjectedMin)
	assert.Equal(t, 0.0, none.ProjFP)
	assert.InDelta(t, 0.625, none.FpPerMin, 1e-9)
	assert.Equal(t, "PG", none.TruePosition)

	// matchup penalty never drives the projection negative
	assert.Equal(t, 0.0, rows[2].ProjFP)
}
