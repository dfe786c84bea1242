package projection

import (
	"math"
	"strings"
	"time"

	"github.com/stitts-dev/nba-projections/internal/models"
)

// Config holds the environment-weight constants.
type Config struct {
	DefaultFpPer100 float64           `mapstructure:"default_fp_per100"`
	DefaultPace     float64           `mapstructure:"default_pace"`
	DvpScale        float64           `mapstructure:"dvp_scale"`
	DvpMin          float64           `mapstructure:"dvp_min"`
	DvpMax          float64           `mapstructure:"dvp_max"`
	RefScale        float64           `mapstructure:"ref_scale"`
	PositionMap     map[string]string `mapstructure:"position_map"`
}

func DefaultConfig() Config {
	return Config{
		DefaultFpPer100: DefaultFpPer100,
		DefaultPace:     DefaultPace,
		DvpScale:        0.10,
		DvpMin:          0.85,
		DvpMax:          1.15,
		RefScale:        0.05,
		PositionMap:     map[string]string{"G": "PG", "F": "SF"},
	}
}

// PlayerInput is one salary-file player with the upstream stage results joined in.
type PlayerInput struct {
	Salary        models.SalaryEntry
	Rotation      *models.RotationProjection
	FpPer100      *float64
	Archetype     string
	MatchupAdj    float64
	DvsMultiplier float64
}

// AssemblyInput carries the slate environment. Teams are canonical abbreviations.
type AssemblyInput struct {
	Slate    time.Time
	Players  []PlayerInput
	Games    map[string]GameSide
	Pace     map[string]float64
	AvgLines map[string]float64
	Dvp      map[string]map[string]float64 // team -> position -> score
	FoulDiff map[string]*float64           // team -> crew foul differential, home-favoring
}

// Assembler combines minutes, rates and environment weights into proj_fp.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	positions := make(map[string]string, len(cfg.PositionMap))
	for k, v := range cfg.PositionMap {
		positions[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	cfg.PositionMap = positions
	return &Assembler{cfg: cfg}
}

// Assemble returns one projection per input player, in input order.
func (a *Assembler) Assemble(in AssemblyInput) []models.DfsPlayerProjection {
	out := make([]models.DfsPlayerProjection, len(in.Players))
	rawDvp := make([]*float64, len(in.Players))

	for i, p := range in.Players {
		team := p.Salary.Team
		row := models.DfsPlayerProjection{
			SlateDate:  in.Slate,
			PlayerName: p.Salary.PlayerName,
			Team:       team,
			Position:   p.Salary.Position,
			Archetype:  p.Archetype,
			Salary:     p.Salary.Salary,
			LineWeight: 1,
			DvpWeight:  1,
			RefWeight:  1,
		}

		slot := ""
		if p.Rotation != nil {
			row.ProjectedMin = p.Rotation.ProjectedMin
			slot = p.Rotation.EspnSlot
		}
		row.TruePosition = a.TruePosition(slot, p.Salary.Position)

		fpPer100 := a.cfg.DefaultFpPer100
		if p.FpPer100 != nil && !math.IsNaN(*p.FpPer100) {
			fpPer100 = *p.FpPer100
		}
		pace := a.cfg.DefaultPace
		if v, ok := in.Pace[team]; ok && v > 0 {
			pace = v
		}
		row.FpPerMin = FpPerMin(fpPer100, pace)
		row.BaseFP = row.FpPerMin * row.ProjectedMin

		if side, ok := in.Games[team]; ok {
			row.Opponent = side.Opponent
			row.LineWeight = LineWeight(&side, in.AvgLines[team])
			row.RefWeight = a.RefWeight(side.Home, in.FoulDiff[team])
			if score, ok := in.Dvp[side.Opponent][row.TruePosition]; ok {
				v := score
				rawDvp[i] = &v
			}
		}
		out[i] = row
	}

	dvp := a.DvpWeights(rawDvp)
	for i := range out {
		row := &out[i]
		row.DvpWeight = dvp[i]

		env := row.BaseFP * row.LineWeight * row.DvpWeight * row.RefWeight
		row.MatchupAdj = in.Players[i].MatchupAdj
		row.DvaAdj = env * in.Players[i].DvsMultiplier / 100
		row.ProjFP = round2(math.Max(0, env+row.MatchupAdj+row.DvaAdj))

		row.FpPerMin = round4(row.FpPerMin)
		row.BaseFP = round2(row.BaseFP)
		row.LineWeight = round4(row.LineWeight)
		row.DvpWeight = round4(row.DvpWeight)
		row.RefWeight = round4(row.RefWeight)
		row.DvaAdj = round2(row.DvaAdj)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
