package matchup

// Weights combine the four sub-scores.
type Weights struct {
	Familiarity float64 `mapstructure:"familiarity"`
	Archetype   float64 `mapstructure:"archetype"`
	Size        float64 `mapstructure:"size"`
	Durability  float64 `mapstructure:"durability"`
}

// Config holds the interaction-layer constants.
type Config struct {
	Weights       Weights `mapstructure:"weights"`
	Scale         float64 `mapstructure:"scale"`
	MaxAdjustment float64 `mapstructure:"max_adjustment"`
	MinMinutes    float64 `mapstructure:"min_minutes"`

	// familiarity shrinkage never divides by fewer games than this
	MinPoolGames         int     `mapstructure:"min_pool_games"`
	ArchetypeFullSamples float64 `mapstructure:"archetype_full_samples"`

	SizeNormalizer      float64 `mapstructure:"size_normalizer"`
	SizeWeightCoef      float64 `mapstructure:"size_weight_coef"`
	SizeWingspanCoef    float64 `mapstructure:"size_wingspan_coef"`
	PerimeterSizeWeight float64 `mapstructure:"perimeter_size_weight"`

	StabilityMinutesSD     float64 `mapstructure:"stability_minutes_sd"`
	DefaultMinutesSD       float64 `mapstructure:"default_minutes_sd"`
	LowGames               int     `mapstructure:"low_games"`
	LowGamesPenalty        float64 `mapstructure:"low_games_penalty"`
	DefaultLeagueStability float64 `mapstructure:"default_league_stability"`
	MinLeaguePlayers       int     `mapstructure:"min_league_players"`

	InteriorArchetypes []string `mapstructure:"interior_archetypes"`
	// PositionGroups are ordered bigs to guards; archetypes in the same or an
	// adjacent group can match up.
	PositionGroups [][]string `mapstructure:"position_groups"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Familiarity: 0.35,
			Archetype:   0.25,
			Size:        0.25,
			Durability:  0.15,
		},
		Scale:                  30,
		MaxAdjustment:          3,
		MinMinutes:             5,
		MinPoolGames:           10,
		ArchetypeFullSamples:   100,
		SizeNormalizer:         30,
		SizeWeightCoef:         0.5,
		SizeWingspanCoef:       0.3,
		PerimeterSizeWeight:    0.3,
		StabilityMinutesSD:     10,
		DefaultMinutesSD:       5,
		LowGames:               20,
		LowGamesPenalty:        0.7,
		DefaultLeagueStability: 0.5,
		MinLeaguePlayers:       10,
		InteriorArchetypes: []string{
			"Traditional Big", "Versatile Big", "Stretch 5", "Point Center", "Stretch 4",
		},
		PositionGroups: [][]string{
			{"Traditional Big", "Stretch 5", "Point Center", "Stretch Big"},
			{"Versatile Big", "Stretch 4", "Point Forward"},
			{"Scoring Wing", "3-and-D Wing", "Athletic Wing"},
			{"Combo Guard", "Playmaker"},
		},
	}
}
