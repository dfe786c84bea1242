package archetype

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/teams"
)

// Config is the classifier's tunable state.
type Config struct {
	KMeans             KMeansConfig      `mapstructure:"kmeans"`
	MinTrainingMinutes float64           `mapstructure:"min_training_minutes"`
	CorrelationWarn    float64           `mapstructure:"correlation_warn"`
	Labels             LabelConfig       `mapstructure:"labels"`
	Rules              RuleConfig        `mapstructure:"rules"`
	KnownArchetypes    map[string]string `mapstructure:"known_archetypes"`
}

func DefaultConfig() Config {
	return Config{
		KMeans:             KMeansConfig{K: 6, Seed: 42, NInit: 10, MaxIter: 300},
		MinTrainingMinutes: 800,
		CorrelationWarn:    0.5,
		Labels:             DefaultLabelConfig(),
		Rules:              DefaultRuleConfig(),
		KnownArchetypes: map[string]string{
			"Nikola Jok":         PointCenter,
			"Karl-Anthony Towns": "Stretch",
			"Stephen Curry":      ComboGuard,
			"LeBron James":       PointForward,
			"Rudy Gobert":        TraditionalBig,
			"Mikal Bridges":      "3-and-D",
			"Anthony Davis":      VersatileBig,
			"James Harden":       ComboGuard,
			"Giannis Ante":       PointForward,
			"Kevin Durant":       ScoringWing,
			"Kawhi Leonard":      ScoringWing,
			"Victor Wembanyama":  TraditionalBig,
			"Draymond Green":     PointForward,
		},
	}
}

// Assignment is one player's classification.
type Assignment struct {
	Name         string
	Team         string
	Indices      Indices
	Cluster      int
	ClusterLabel string
	Archetype    string
	Membership   []float64
	RulesApplied []string
}

// BaseArchetype is the archetype without a cluster suffix.
func (a Assignment) BaseArchetype() string {
	return BaseArchetype(a.Archetype)
}

// Mismatch is a known player whose label differs from the expected one.
type Mismatch struct {
	Player   string
	Expected string
	Actual   string
}

// Result is a full classification run.
type Result struct {
	Assignments   []Assignment
	Centroids     []Indices
	ClusterLabels []string
	TrainingSize  int
	Correlations  []CorrelationPair
	Mismatches    []Mismatch
}

// Classifier labels every player with exactly one archetype.
type Classifier struct {
	cfg   Config
	rules []Rule
	log   *logrus.Entry
}

func NewClassifier(cfg Config, log *logrus.Entry) *Classifier {
	return &Classifier{cfg: cfg, rules: DefaultRules(cfg.Rules), log: log}
}

// Classify runs indices, clustering, labelling and the rule cascade. Players are
// processed in name order so a fixed seed reproduces the same labels.
func (c *Classifier) Classify(players []PlayerFeatures) *Result {
	sorted := append([]PlayerFeatures(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	res := &Result{}
	if len(sorted) == 0 {
		return res
	}

	indices := BuildIndices(sorted)
	res.Correlations = Correlations(indices, c.cfg.CorrelationWarn)
	for _, pair := range res.Correlations {
		c.log.WithFields(logrus.Fields{"a": pair.A, "b": pair.B, "r": pair.R}).
			Warn("Composite indices are correlated")
	}

	points := make([][]float64, len(indices))
	var training [][]float64
	for i := range indices {
		points[i] = indices[i][:]
		if sorted[i].TotalMinutes >= c.cfg.MinTrainingMinutes {
			training = append(training, points[i])
		}
	}
	if len(training) < c.cfg.KMeans.K {
		c.log.WithField("qualified", len(training)).Debug("Too few qualified players, training on full pool")
		training = points
	}
	res.TrainingSize = len(training)

	raw := KMeans(training, c.cfg.KMeans)
	res.Centroids = make([]Indices, len(raw))
	for i, centroid := range raw {
		copy(res.Centroids[i][:], centroid)
	}
	res.ClusterLabels = LabelCentroids(res.Centroids, c.cfg.Labels)

	res.Assignments = make([]Assignment, len(sorted))
	for i := range sorted {
		cluster, _ := Nearest(points[i], raw)
		state := &PlayerState{Features: &sorted[i], Label: res.ClusterLabels[cluster]}
		ApplyRules(state, c.rules)

		res.Assignments[i] = Assignment{
			Name:         sorted[i].Name,
			Team:         sorted[i].Team,
			Indices:      indices[i],
			Cluster:      cluster,
			ClusterLabel: res.ClusterLabels[cluster],
			Archetype:    state.Label,
			Membership:   Membership(points[i], raw),
			RulesApplied: state.Applied,
		}
	}

	res.Mismatches = Validate(res.Assignments, c.cfg.KnownArchetypes)
	for _, m := range res.Mismatches {
		c.log.WithFields(logrus.Fields{
			"player":   m.Player,
			"expected": m.Expected,
			"actual":   m.Actual,
		}).Info("Archetype differs from reference label")
	}
	return res
}

// Validate compares labels with a reference table keyed by name fragment. A known
// player matches when the expected text appears in the label. Players missing from
// the pool are skipped.
func Validate(assignments []Assignment, known map[string]string) []Mismatch {
	fragments := make([]string, 0, len(known))
	for f := range known {
		fragments = append(fragments, f)
	}
	sort.Strings(fragments)

	var out []Mismatch
	for _, fragment := range fragments {
		expected := known[fragment]
		key := teams.NormalizeName(fragment)
		for _, a := range assignments {
			if !strings.Contains(teams.NormalizeName(a.Name), key) {
				continue
			}
			if !strings.Contains(strings.ToLower(a.Archetype), strings.ToLower(expected)) {
				out = append(out, Mismatch{Player: a.Name, Expected: expected, Actual: a.Archetype})
			}
			break
		}
	}
	return out
}

// Labels maps normalized player names to base archetypes.
func (r *Result) Labels() map[string]string {
	out := make(map[string]string, len(r.Assignments))
	for _, a := range r.Assignments {
		out[teams.NormalizeName(a.Name)] = a.BaseArchetype()
	}
	return out
}

// Rows converts the result into archetype rows for storage.
func (r *Result) Rows() []models.PlayerArchetype {
	rows := make([]models.PlayerArchetype, len(r.Assignments))
	for i, a := range r.Assignments {
		membership, _ := json.Marshal(a.Membership)
		indices, _ := json.Marshal(a.Indices.Map())
		rows[i] = models.PlayerArchetype{
			PlayerName:    a.Name,
			Team:          a.Team,
			Archetype:     a.Archetype,
			BaseArchetype: a.BaseArchetype(),
			ClusterLabel:  a.ClusterLabel,
			Cluster:       a.Cluster,
			RulesApplied:  strings.Join(a.RulesApplied, ","),
			Membership:    datatypes.JSON(membership),
			Indices:       datatypes.JSON(indices),
		}
	}
	return rows
}
