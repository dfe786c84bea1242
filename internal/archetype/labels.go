package archetype

import (
	"sort"
	"strings"
)

// Archetype labels.
const (
	TraditionalBig = "Traditional Big"
	StretchBig     = "Stretch Big"
	Stretch4       = "Stretch 4"
	Stretch5       = "Stretch 5"
	VersatileBig   = "Versatile Big"
	PointCenter    = "Point Center"
	PointForward   = "Point Forward"
	ScoringWing    = "Scoring Wing"
	ThreeAndDWing  = "3-and-D Wing"
	AthleticWing   = "Athletic Wing"
	ComboGuard     = "Combo Guard"
	Playmaker      = "Playmaker"
)

// Suffixes that separate clusters sharing a label.
const (
	SuffixOffensive = "Offensive"
	SuffixDefensive = "Defensive"
	SuffixRole      = "Role"
)

// LabelConfig holds the centroid decision-tree thresholds. Values are composite
// index units (sums of z-scores).
type LabelConfig struct {
	BigSize             float64 `mapstructure:"big_size"`
	BigSizeWithInterior float64 `mapstructure:"big_size_with_interior"`
	BigInteriorRebound  float64 `mapstructure:"big_interior_rebound"`
	ForwardSize         float64 `mapstructure:"forward_size"`

	BigPlaymaking float64 `mapstructure:"big_playmaking"`
	BigPerimeter  float64 `mapstructure:"big_perimeter"`
	BigInterior   float64 `mapstructure:"big_interior"`
	BigRebound    float64 `mapstructure:"big_rebound"`

	ForwardPlaymaking float64 `mapstructure:"forward_playmaking"`
	ForwardCreation   float64 `mapstructure:"forward_creation"`
	ForwardPerimeter  float64 `mapstructure:"forward_perimeter"`
	ForwardDefense    float64 `mapstructure:"forward_defense"`

	GuardPlaymaking      float64 `mapstructure:"guard_playmaking"`
	GuardPlaymakerCreate float64 `mapstructure:"guard_playmaker_creation"`
	GuardCreation        float64 `mapstructure:"guard_creation"`
	GuardPerimeter       float64 `mapstructure:"guard_perimeter"`
}

func DefaultLabelConfig() LabelConfig {
	return LabelConfig{
		BigSize:              1.5,
		BigSizeWithInterior:  0.75,
		BigInteriorRebound:   1.5,
		ForwardSize:          0.25,
		BigPlaymaking:        1.0,
		BigPerimeter:         0.5,
		BigInterior:          1.0,
		BigRebound:           1.0,
		ForwardPlaymaking:    1.0,
		ForwardCreation:      1.0,
		ForwardPerimeter:     0.3,
		ForwardDefense:       0.5,
		GuardPlaymaking:      1.0,
		GuardPlaymakerCreate: 0.5,
		GuardCreation:        0.75,
		GuardPerimeter:       0.5,
	}
}

// LabelCentroid names a single cluster centroid.
func LabelCentroid(c Indices, cfg LabelConfig) string {
	big := c[Size] >= cfg.BigSize ||
		(c[Size] >= cfg.BigSizeWithInterior && c[Interior]+c[Rebound] >= cfg.BigInteriorRebound)

	switch {
	case big:
		switch {
		case c[Playmaking] >= cfg.BigPlaymaking:
			return PointCenter
		case c[Perimeter] >= cfg.BigPerimeter:
			return StretchBig
		case c[Interior] >= cfg.BigInterior && c[Rebound] >= cfg.BigRebound:
			return TraditionalBig
		default:
			return VersatileBig
		}
	case c[Size] >= cfg.ForwardSize:
		switch {
		case c[Playmaking] >= cfg.ForwardPlaymaking:
			return PointForward
		case c[Creation] >= cfg.ForwardCreation:
			return ScoringWing
		case c[Perimeter] >= cfg.ForwardPerimeter || c[Defense] >= cfg.ForwardDefense:
			return ThreeAndDWing
		default:
			return AthleticWing
		}
	default:
		switch {
		case c[Playmaking] >= cfg.GuardPlaymaking && c[Creation] >= cfg.GuardPlaymakerCreate:
			return Playmaker
		case c[Creation] >= cfg.GuardCreation:
			return ComboGuard
		case c[Perimeter] >= cfg.GuardPerimeter:
			return ThreeAndDWing
		default:
			return ComboGuard
		}
	}
}

// LabelCentroids names every centroid. Clusters that share a label are told apart
// by suffix: the one with the most creation+playmaking is Offensive, the most
// defensive of the rest is Defensive and any others are Role.
func LabelCentroids(centroids []Indices, cfg LabelConfig) []string {
	labels := make([]string, len(centroids))
	groups := make(map[string][]int)
	var order []string
	for i, c := range centroids {
		labels[i] = LabelCentroid(c, cfg)
		if _, ok := groups[labels[i]]; !ok {
			order = append(order, labels[i])
		}
		groups[labels[i]] = append(groups[labels[i]], i)
	}

	for _, label := range order {
		members := groups[label]
		if len(members) < 2 {
			continue
		}
		remaining := append([]int(nil), members...)

		off := argmax(remaining, func(i int) float64 { return centroids[i][Creation] + centroids[i][Playmaking] })
		labels[remaining[off]] = label + " (" + SuffixOffensive + ")"
		remaining = append(remaining[:off], remaining[off+1:]...)

		def := argmax(remaining, func(i int) float64 { return centroids[i][Defense] })
		labels[remaining[def]] = label + " (" + SuffixDefensive + ")"
		remaining = append(remaining[:def], remaining[def+1:]...)

		sort.Ints(remaining)
		for _, i := range remaining {
			labels[i] = label + " (" + SuffixRole + ")"
		}
	}
	return labels
}

func argmax(idx []int, score func(int) float64) int {
	best := 0
	for j := 1; j < len(idx); j++ {
		if score(idx[j]) > score(idx[best]) {
			best = j
		}
	}
	return best
}

// BaseArchetype strips a disambiguating suffix: "Combo Guard (Role)" -> "Combo Guard".
func BaseArchetype(label string) string {
	if i := strings.Index(label, " ("); i > 0 && strings.HasSuffix(label, ")") {
		return label[:i]
	}
	return label
}
