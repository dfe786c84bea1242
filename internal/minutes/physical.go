package minutes

import (
	"strings"

	"github.com/stitts-dev/nba-projections/internal/teams"
)

// TeamCenter names a team's physical center and its foul-trouble modifier.
type TeamCenter struct {
	Player   string  `mapstructure:"player"`
	Modifier float64 `mapstructure:"modifier"`
}

// PhysicalConfig lists players who draw fouls from their matchup, by position.
// Modifiers run from 0 (normal) to 1.5 (elite).
type PhysicalConfig struct {
	Players     map[string]map[string]float64 `mapstructure:"players"`
	TeamCenters map[string]TeamCenter         `mapstructure:"team_centers"`
}

func DefaultPhysicalConfig() PhysicalConfig {
	guards := map[string]float64{
		"Luka Doncic":             1.0,
		"James Harden":            1.25,
		"Shai Gilgeous-Alexander": 1.0,
		"Ja Morant":               0.75,
		"Tyrese Haliburton":       0.5,
	}
	return PhysicalConfig{
		Players: map[string]map[string]float64{
			"C": {
				"Joel Embiid": 1.5, "Domantas Sabonis": 1.5, "Anthony Davis": 1.5,
				"Nikola Jokic": 1.5, "Bam Adebayo": 1.25, "Giannis Antetokounmpo": 1.5,
				"Karl-Anthony Towns": 1.0, "Alperen Sengun": 1.25, "Jonas Valanciunas": 1.0,
				"Ivica Zubac": 1.0, "Clint Capela": 0.75, "Mitchell Robinson": 0.75,
				"Jarrett Allen": 0.75, "Chet Holmgren": 0.5, "Victor Wembanyama": 0.75,
				"Brook Lopez": 0.5, "Rudy Gobert": 1.0, "Jusuf Nurkic": 1.0,
				"DeAndre Ayton": 0.75, "Jaren Jackson Jr": 0.75,
			},
			"PF": {
				"Giannis Antetokounmpo": 1.5, "Anthony Davis": 1.5, "Zion Williamson": 1.5,
				"Julius Randle": 1.25, "Pascal Siakam": 1.0, "Evan Mobley": 0.75,
				"Paolo Banchero": 1.0, "Jabari Smith Jr": 0.75, "Scottie Barnes": 1.0,
				"Draymond Green": 1.0, "John Collins": 0.75,
			},
			"SF": {
				"LeBron James": 1.0, "Kawhi Leonard": 0.75, "Jimmy Butler": 1.25,
				"OG Anunoby": 0.75, "Mikal Bridges": 0.5,
			},
			"SG": guards,
			"PG": guards,
		},
		TeamCenters: map[string]TeamCenter{
			"PHI": {"Joel Embiid", 1.5}, "SAC": {"Domantas Sabonis", 1.5},
			"LAL": {"Anthony Davis", 1.5}, "DEN": {"Nikola Jokic", 1.5},
			"MIL": {"Giannis Antetokounmpo", 1.5}, "MIA": {"Bam Adebayo", 1.25},
			"HOU": {"Alperen Sengun", 1.25}, "WAS": {"Jonas Valanciunas", 1.0},
			"LAC": {"Ivica Zubac", 1.0}, "MIN": {"Rudy Gobert", 1.0},
			"POR": {"Jusuf Nurkic", 1.0}, "CLE": {"Jarrett Allen", 0.75},
			"ATL": {"Clint Capela", 0.75}, "PHX": {"DeAndre Ayton", 0.75},
			"MEM": {"Jaren Jackson Jr", 0.75}, "OKC": {"Chet Holmgren", 0.5},
			"SAS": {"Victor Wembanyama", 0.75},
		},
	}
}

// PhysicalTable answers foul-trouble modifier lookups.
type PhysicalTable struct {
	byPosition  map[string]map[string]float64
	teamCenters map[string]float64
}

func NewPhysicalTable(cfg PhysicalConfig, aliases *teams.AliasTable) *PhysicalTable {
	t := &PhysicalTable{
		byPosition:  make(map[string]map[string]float64, len(cfg.Players)),
		teamCenters: make(map[string]float64, len(cfg.TeamCenters)),
	}
	for pos, players := range cfg.Players {
		pos = strings.ToUpper(pos)
		m := make(map[string]float64, len(players))
		for name, mod := range players {
			m[teams.NormalizeName(name)] = mod
		}
		t.byPosition[pos] = m
	}
	for team, c := range cfg.TeamCenters {
		t.teamCenters[aliases.Resolve(team)] = c.Modifier
	}
	return t
}

// Modifier returns the modifier for an opposing player defended at position.
// A player listed under another position still counts.
func (t *PhysicalTable) Modifier(player, position string) float64 {
	key := teams.NormalizeName(player)
	if key == "" {
		return 0
	}
	if m, ok := t.byPosition[strings.ToUpper(position)][key]; ok {
		return m
	}
	for _, pos := range []string{"C", "PF", "SF", "SG", "PG"} {
		if m, ok := t.byPosition[pos][key]; ok {
			return m
		}
	}
	return 0
}

// TeamCenterModifier is the fallback when the opponent's depth chart is missing.
func (t *PhysicalTable) TeamCenterModifier(team string) float64 {
	return t.teamCenters[team]
}
