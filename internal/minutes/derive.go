package minutes

import (
	"sort"
	"strconv"
	"time"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// BoxScore is one player-game line with the position the player was listed at.
type BoxScore struct {
	GameDate time.Time
	Team     string
	Position string
	Minutes  float64
}

// BoxScoresFromLogs attaches positions, keyed by teams.NormalizeName, to game
// logs. Players without a position are dropped.
func BoxScoresFromLogs(logs []models.PlayerGameLog, positions map[string]string) []BoxScore {
	out := make([]BoxScore, 0, len(logs))
	for _, g := range logs {
		pos, ok := positions[teams.NormalizeName(g.PlayerName)]
		if !ok {
			continue
		}
		out = append(out, BoxScore{GameDate: g.GameDate, Team: g.Team, Position: pos, Minutes: g.Minutes})
	}
	return out
}

// DepthPositions maps each depth-chart player to the position of their
// shallowest slot.
func DepthPositions(entries []models.DepthChartEntry) map[string]string {
	type listing struct {
		position string
		depth    int
	}
	best := make(map[string]listing, len(entries))
	for _, e := range entries {
		pos, depth, ok := SplitSlot(e.PositionSlot)
		if !ok {
			continue
		}
		key := teams.NormalizeName(e.PlayerName)
		if cur, seen := best[key]; !seen || depth < cur.depth {
			best[key] = listing{position: pos, depth: depth}
		}
	}
	out := make(map[string]string, len(best))
	for key, l := range best {
		out[key] = l.position
	}
	return out
}

// DeriveBaseline rebuilds the minutes-by-depth table from box scores. Within each
// (game day, team, position) group players are ranked by minutes, most first, and
// minutes are averaged per slot ("PG1", "PG2", ...) across games. Rows without
// minutes are ignored and ties keep input order. Returns the rounded averages and
// the sample count per slot.
func DeriveBaseline(rows []BoxScore) (map[string]float64, map[string]int) {
	type groupKey struct {
		day      string
		team     string
		position string
	}
	groups := make(map[groupKey][]float64)
	var order []groupKey
	for _, r := range rows {
		if r.Minutes <= 0 || r.Position == "" {
			continue
		}
		k := groupKey{r.GameDate.Format("2006-01-02"), r.Team, r.Position}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r.Minutes)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, k := range order {
		mins := groups[k]
		sort.SliceStable(mins, func(i, j int) bool { return mins[i] > mins[j] })
		for i, m := range mins {
			slot := k.position + strconv.Itoa(i+1)
			sums[slot] += m
			counts[slot]++
		}
	}

	table := make(map[string]float64, len(sums))
	for slot, sum := range sums {
		table[slot] = round2(sum / float64(counts[slot]))
	}
	return table, counts
}
