package history

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Fallback spreads used when a player has fewer than two games on record.
const (
	DefaultFpSD      = 15.0
	DefaultMinutesSD = 10.0
)

// PlayerHistory aggregates one player's game logs.
type PlayerHistory struct {
	Name              string
	Team              string // team of the most recent game
	Games             int
	AvgMinutes        float64
	MinutesSD         float64
	SeasonHighMinutes float64
	AvgFP             float64
	FpSD              float64
	FpPerMin          float64
	LastGame          time.Time

	logs []models.PlayerGameLog
}

// Book indexes player histories by normalized name.
type Book struct {
	players map[string]*PlayerHistory
}

// Build aggregates logs per player. Games with no minutes are ignored.
func Build(logs []models.PlayerGameLog, aliases *teams.AliasTable) *Book {
	book := &Book{players: make(map[string]*PlayerHistory)}

	for _, log := range logs {
		if log.Minutes <= 0 {
			continue
		}
		key := teams.NormalizeName(log.PlayerName)
		p, ok := book.players[key]
		if !ok {
			p = &PlayerHistory{Name: log.PlayerName}
			book.players[key] = p
		}
		p.logs = append(p.logs, log)
	}

	for _, p := range book.players {
		sort.SliceStable(p.logs, func(i, j int) bool {
			return p.logs[i].GameDate.Before(p.logs[j].GameDate)
		})
		p.summarize(aliases)
	}
	return book
}

func (p *PlayerHistory) summarize(aliases *teams.AliasTable) {
	mins := make([]float64, len(p.logs))
	fps := make([]float64, len(p.logs))
	var totalMin, totalFP float64
	for i, log := range p.logs {
		mins[i] = log.Minutes
		fps[i] = log.Score()
		totalMin += log.Minutes
		totalFP += fps[i]
		if log.Minutes > p.SeasonHighMinutes {
			p.SeasonHighMinutes = log.Minutes
		}
	}

	p.Games = len(p.logs)
	p.AvgMinutes, p.MinutesSD = stat.MeanStdDev(mins, nil)
	p.AvgFP, p.FpSD = stat.MeanStdDev(fps, nil)
	if p.Games < 2 {
		p.MinutesSD = DefaultMinutesSD
		p.FpSD = DefaultFpSD
	}
	if totalMin > 0 {
		p.FpPerMin = totalFP / totalMin
	}

	last := p.logs[len(p.logs)-1]
	p.LastGame = last.GameDate
	p.Team = last.Team
	if team, _, _ := teams.ParseMatchup(last.Matchup); team != "" {
		p.Team = team
	}
	if aliases != nil {
		p.Team = aliases.Resolve(p.Team)
	}
}

// Get looks a player up by any spelling of their name.
func (b *Book) Get(name string) (*PlayerHistory, bool) {
	p, ok := b.players[teams.NormalizeName(name)]
	return p, ok
}

// LatestTeam returns the team of the player's most recent game, or "" when unknown.
func (b *Book) LatestTeam(name string) string {
	if p, ok := b.Get(name); ok {
		return p.Team
	}
	return ""
}

// Len returns the number of players with at least one game.
func (b *Book) Len() int {
	return len(b.players)
}

// All returns every player history ordered by name.
func (b *Book) All() []*PlayerHistory {
	out := make([]*PlayerHistory, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
