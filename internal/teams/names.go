package teams

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nameSuffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true}

// NormalizeName folds a player name into a join key: accents stripped, lowercase,
// punctuation removed and generational suffixes dropped. "Nikola Jokić" and
// "nikola jokic" produce the same key, as do "Jaren Jackson Jr." and "Jaren Jackson".
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-':
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for len(fields) > 1 && nameSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// ParseMatchup extracts the opponent from a box-score matchup string such as
// "BOS vs. NYK" or "BOS @ NYK". The second return value reports a home game.
func ParseMatchup(matchup string) (team, opponent string, home bool) {
	switch {
	case strings.Contains(matchup, " vs. "):
		parts := strings.SplitN(matchup, " vs. ", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	case strings.Contains(matchup, " vs "):
		parts := strings.SplitN(matchup, " vs ", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	case strings.Contains(matchup, " @ "):
		parts := strings.SplitN(matchup, " @ ", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), false
	}
	return "", "", false
}
