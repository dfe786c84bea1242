package teams

import (
	"strings"
)

// DefaultAliases maps every known spelling of a team to its canonical abbreviation.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Atlanta": "ATL", "Boston": "BOS", "Brooklyn": "BKN", "Charlotte": "CHA",
		"Chicago": "CHI", "Cleveland": "CLE", "Dallas": "DAL", "Denver": "DEN",
		"Detroit": "DET", "Golden State": "GS", "Houston": "HOU", "Indiana": "IND",
		"LA Clippers": "LAC", "LA Lakers": "LAL", "L.A. Clippers": "LAC",
		"L.A. Lakers": "LAL", "Los Angeles Clippers": "LAC",
		"Los Angeles Lakers": "LAL", "Memphis": "MEM", "Miami": "MIA",
		"Milwaukee": "MIL", "Minnesota": "MIN", "New Orleans": "NO",
		"New York": "NY", "Oklahoma City": "OKC", "Orlando": "ORL",
		"Philadelphia": "PHI", "Phoenix": "PHO", "Portland": "POR",
		"Sacramento": "SAC", "San Antonio": "SA", "Toronto": "TOR",
		"Utah": "UTA", "Washington": "WAS",
		"GSW": "GS", "NOP": "NO", "NYK": "NY", "SAS": "SA", "PHX": "PHO",
		"BK": "BKN", "BRK": "BKN", "OKL": "OKC", "Okla City": "OKC",
		"UTAH": "UTA", "WSH": "WAS", "CHO": "CHA",
		"Hawks": "ATL", "Celtics": "BOS", "Nets": "BKN", "Hornets": "CHA",
		"Bulls": "CHI", "Cavaliers": "CLE", "Mavericks": "DAL", "Nuggets": "DEN",
		"Pistons": "DET", "Warriors": "GS", "Rockets": "HOU", "Pacers": "IND",
		"Clippers": "LAC", "Lakers": "LAL", "Grizzlies": "MEM", "Heat": "MIA",
		"Bucks": "MIL", "Timberwolves": "MIN", "Pelicans": "NO", "Knicks": "NY",
		"Thunder": "OKC", "Magic": "ORL", "Seventysixers": "PHI", "76ers": "PHI",
		"Suns": "PHO", "Trailblazers": "POR", "Trail Blazers": "POR",
		"Kings": "SAC", "Spurs": "SA", "Raptors": "TOR", "Jazz": "UTA", "Wizards": "WAS",
	}
}

// Canonical abbreviations used by at least one source, keyed by canonical form.
var canonical = map[string]bool{
	"ATL": true, "BOS": true, "BKN": true, "CHA": true, "CHI": true, "CLE": true,
	"DAL": true, "DEN": true, "DET": true, "GS": true, "HOU": true, "IND": true,
	"LAC": true, "LAL": true, "MEM": true, "MIA": true, "MIL": true, "MIN": true,
	"NO": true, "NY": true, "OKC": true, "ORL": true, "PHI": true, "PHO": true,
	"POR": true, "SAC": true, "SA": true, "TOR": true, "UTA": true, "WAS": true,
}

// Multi-team placeholders used by season aggregates for traded players.
var multiTeam = map[string]bool{"TOT": true, "2TM": true, "3TM": true, "4TM": true}

// IsMultiTeam reports whether the abbreviation is a traded-player aggregate marker.
func IsMultiTeam(team string) bool {
	return multiTeam[strings.ToUpper(strings.TrimSpace(team))]
}

// AliasTable resolves team spellings to one canonical abbreviation. Lookups are
// case-insensitive; unknown names pass through unchanged.
type AliasTable struct {
	toCanonical map[string]string
	unresolved  map[string]int
}

func NewAliasTable(aliases map[string]string) *AliasTable {
	t := &AliasTable{
		toCanonical: make(map[string]string, len(aliases)+len(canonical)),
		unresolved:  make(map[string]int),
	}
	for abbr := range canonical {
		t.toCanonical[abbr] = abbr
	}
	for alias, abbr := range aliases {
		t.toCanonical[strings.ToUpper(strings.TrimSpace(alias))] = strings.ToUpper(strings.TrimSpace(abbr))
	}
	return t
}

// Resolve returns the canonical abbreviation for name.
func (t *AliasTable) Resolve(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	if abbr, ok := t.toCanonical[key]; ok {
		return abbr
	}
	if !multiTeam[key] {
		t.unresolved[key]++
	}
	return strings.TrimSpace(name)
}

// Unresolved returns the names Resolve could not map, with hit counts. Callers
// log these for audit.
func (t *AliasTable) Unresolved() map[string]int {
	out := make(map[string]int, len(t.unresolved))
	for k, v := range t.unresolved {
		out[k] = v
	}
	return out
}
