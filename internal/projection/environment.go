package projection

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nba-projections/internal/models"
)

// GameSide is one team's view of a slate game. Spread and Total are nil when the
// odds board had no line.
type GameSide struct {
	Opponent string
	Home     bool
	Spread   *float64 // negative when this team is favored
	Total    *float64
}

// GameSides indexes odds by team. Odds spreads are quoted for the away team, so
// the home side takes the negated line.
func GameSides(odds []models.GameOdds) map[string]GameSide {
	sides := make(map[string]GameSide, len(odds)*2)
	for _, o := range odds {
		if _, ok := sides[o.AwayTeam]; !ok {
			sides[o.AwayTeam] = GameSide{Opponent: o.HomeTeam, Home: false, Spread: copyFloat(o.Spread), Total: copyFloat(o.Total)}
		}
		if _, ok := sides[o.HomeTeam]; !ok {
			var spread *float64
			if o.Spread != nil {
				v := -*o.Spread
				spread = &v
			}
			sides[o.HomeTeam] = GameSide{Opponent: o.AwayTeam, Home: true, Spread: spread, Total: copyFloat(o.Total)}
		}
	}
	return sides
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ImpliedTeamScore is the Vegas-implied points for a team.
func ImpliedTeamScore(total, spread float64) float64 {
	return total/2 - spread/2
}

// LineWeight compares today's implied score with the team's historical average.
// Missing or non-positive inputs give 1.
func LineWeight(side *GameSide, avgLine float64) float64 {
	if side == nil || side.Total == nil || side.Spread == nil || *side.Total <= 0 || avgLine <= 0 {
		return 1
	}
	line := ImpliedTeamScore(*side.Total, *side.Spread)
	if line <= 0 {
		return 1
	}
	return line / avgLine
}

// RefWeight shifts scoring toward the side the officiating crew historically favors.
func (a *Assembler) RefWeight(home bool, foulDiff *float64) float64 {
	if foulDiff == nil || math.IsNaN(*foulDiff) {
		return 1
	}
	shift := (*foulDiff / 2) * a.cfg.RefScale
	if home {
		return 1 + shift
	}
	return 1 - shift
}

// DvpWeights z-scores the raw DVP scores that are present and compresses them into
// [DvpMin, DvpMax]. Missing scores, or a pool without spread, weigh 1.
func (a *Assembler) DvpWeights(raw []*float64) []float64 {
	weights := make([]float64, len(raw))
	var present []float64
	for i, r := range raw {
		weights[i] = 1
		if r != nil && !math.IsNaN(*r) {
			present = append(present, *r)
		}
	}
	if len(present) < 2 {
		return weights
	}
	mean, sd := stat.MeanStdDev(present, nil)
	if sd == 0 || math.IsNaN(sd) {
		return weights
	}
	for i, r := range raw {
		if r == nil || math.IsNaN(*r) {
			continue
		}
		z := (*r - mean) / sd
		weights[i] = math.Min(math.Max(1+z*a.cfg.DvpScale, a.cfg.DvpMin), a.cfg.DvpMax)
	}
	return weights
}

// TruePosition maps a depth slot ("G2", "PF1") or a salary position ("PG/SG") to
// the single position DVP tables are keyed by.
func (a *Assembler) TruePosition(slot, salaryPosition string) string {
	pos := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, slot)
	if pos == "" {
		pos, _, _ = strings.Cut(salaryPosition, "/")
	}
	pos = strings.ToUpper(strings.TrimSpace(pos))
	if mapped, ok := a.cfg.PositionMap[pos]; ok {
		return mapped
	}
	return pos
}
