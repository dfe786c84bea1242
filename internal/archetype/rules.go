package archetype

// RuleConfig holds the reclassification thresholds. They were tuned by hand against
// one season of data and should be re-validated each season.
type RuleConfig struct {
	StretchThreeRate     float64 `mapstructure:"stretch_three_rate"`
	StretchFg3mPer100    float64 `mapstructure:"stretch_fg3m_per100"`
	TraditionalThreeRate float64 `mapstructure:"traditional_three_rate"`

	FacilitatorAstPer100 float64 `mapstructure:"facilitator_ast_per100"`
	FacilitatorTouches   float64 `mapstructure:"facilitator_touches_per_min"`
	PointCenterCPct      float64 `mapstructure:"point_center_c_pct"`

	FrontcourtPct           float64 `mapstructure:"frontcourt_pct"`
	FrontcourtBorderlinePct float64 `mapstructure:"frontcourt_borderline_pct"`
	BorderlineHeight        float64 `mapstructure:"borderline_height"`
	NoPositionHeight        float64 `mapstructure:"no_position_height"`
	FrontcourtRimShare      float64 `mapstructure:"frontcourt_rim_share"`

	VersatileStretchThreeRate float64 `mapstructure:"versatile_stretch_three_rate"`
	VersatileRimShare         float64 `mapstructure:"versatile_rim_share"`
	VersatileMaxThreeRate     float64 `mapstructure:"versatile_max_three_rate"`

	TranscendentPts     float64 `mapstructure:"transcendent_pts_per100"`
	TranscendentAst     float64 `mapstructure:"transcendent_ast_per100"`
	TranscendentUsg     float64 `mapstructure:"transcendent_usg"`
	TranscendentCPct    float64 `mapstructure:"transcendent_c_pct"`
	TranscendentFwdPct  float64 `mapstructure:"transcendent_forward_pct"`
	GuardPlaymakerAst   float64 `mapstructure:"guard_playmaker_ast_per100"`
	Stretch5CPct        float64 `mapstructure:"stretch5_c_pct"`
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		StretchThreeRate:          0.30,
		StretchFg3mPer100:         2.0,
		TraditionalThreeRate:      0.15,
		FacilitatorAstPer100:      7.0,
		FacilitatorTouches:        2.0,
		PointCenterCPct:           50,
		FrontcourtPct:             70,
		FrontcourtBorderlinePct:   55,
		BorderlineHeight:          80,
		NoPositionHeight:          82,
		FrontcourtRimShare:        0.45,
		VersatileStretchThreeRate: 0.35,
		VersatileRimShare:         0.55,
		VersatileMaxThreeRate:     0.10,
		TranscendentPts:           38,
		TranscendentAst:           9,
		TranscendentUsg:           30,
		TranscendentCPct:          40,
		TranscendentFwdPct:        50,
		GuardPlaymakerAst:         9.5,
		Stretch5CPct:              50,
	}
}

// PlayerState is a player moving through the reclassification cascade.
type PlayerState struct {
	Features *PlayerFeatures
	Label    string
	Applied  []string
}

// Base is the current label without a cluster suffix.
func (s *PlayerState) Base() string {
	return BaseArchetype(s.Label)
}

// Rule overrides a player's label when Applies holds.
type Rule struct {
	Name    string
	Applies func(*PlayerState) bool
	Apply   func(*PlayerState) string
}

func isOneOf(label string, set ...string) bool {
	for _, s := range set {
		if label == s {
			return true
		}
	}
	return false
}

// DefaultRules returns the cascade in its fixed order.
func DefaultRules(cfg RuleConfig) []Rule {
	return []Rule{
		{
			Name: "shot_zone_stretch",
			Applies: func(s *PlayerState) bool {
				return s.Base() == TraditionalBig &&
					s.Features.ThreeRate >= cfg.StretchThreeRate &&
					s.Features.Fg3mPer100 >= cfg.StretchFg3mPer100
			},
			Apply: func(*PlayerState) string { return StretchBig },
		},
		{
			Name: "shot_zone_traditional",
			Applies: func(s *PlayerState) bool {
				return s.Base() == StretchBig && s.Features.ThreeRate < cfg.TraditionalThreeRate
			},
			Apply: func(*PlayerState) string { return TraditionalBig },
		},
		{
			Name: "facilitating_big",
			Applies: func(s *PlayerState) bool {
				return isOneOf(s.Base(), TraditionalBig, StretchBig, VersatileBig) &&
					s.Features.AstPer100 >= cfg.FacilitatorAstPer100 &&
					s.Features.TouchesPerMin >= cfg.FacilitatorTouches
			},
			Apply: func(s *PlayerState) string {
				if s.Features.CPct >= cfg.PointCenterCPct {
					return PointCenter
				}
				return PointForward
			},
		},
		{
			Name: "frontcourt_by_position",
			Applies: func(s *PlayerState) bool {
				if !isOneOf(s.Base(), Playmaker, ComboGuard, ScoringWing, ThreeAndDWing, AthleticWing) {
					return false
				}
				f := s.Features
				if !f.HasPositionData() {
					return f.HeightIn >= cfg.NoPositionHeight
				}
				front := f.CPct + f.PFPct
				return front >= cfg.FrontcourtPct ||
					(front >= cfg.FrontcourtBorderlinePct && f.HeightIn >= cfg.BorderlineHeight)
			},
			Apply: func(s *PlayerState) string {
				switch {
				case s.Features.ThreeRate >= cfg.StretchThreeRate:
					return StretchBig
				case s.Features.RimShare >= cfg.FrontcourtRimShare:
					return TraditionalBig
				default:
					return VersatileBig
				}
			},
		},
		{
			Name: "versatile_shot_zone",
			Applies: func(s *PlayerState) bool {
				if s.Base() != VersatileBig {
					return false
				}
				f := s.Features
				return f.ThreeRate >= cfg.VersatileStretchThreeRate ||
					(f.RimShare >= cfg.VersatileRimShare && f.ThreeRate < cfg.VersatileMaxThreeRate)
			},
			Apply: func(s *PlayerState) string {
				if s.Features.ThreeRate >= cfg.VersatileStretchThreeRate {
					return StretchBig
				}
				return TraditionalBig
			},
		},
		{
			Name: "transcendent",
			Applies: func(s *PlayerState) bool {
				f := s.Features
				return f.PtsPer100 >= cfg.TranscendentPts &&
					f.AstPer100 >= cfg.TranscendentAst &&
					f.UsgPct >= cfg.TranscendentUsg
			},
			Apply: func(s *PlayerState) string {
				f := s.Features
				switch {
				case f.CPct >= cfg.TranscendentCPct:
					return PointCenter
				case f.SFPct+f.PFPct >= cfg.TranscendentFwdPct:
					return PointForward
				default:
					return Playmaker
				}
			},
		},
		{
			Name: "guard_playmaker",
			Applies: func(s *PlayerState) bool {
				return s.Base() == ComboGuard && s.Features.AstPer100 >= cfg.GuardPlaymakerAst
			},
			Apply: func(*PlayerState) string { return Playmaker },
		},
		{
			Name: "stretch_split",
			Applies: func(s *PlayerState) bool {
				return s.Base() == StretchBig
			},
			Apply: func(s *PlayerState) string {
				if s.Features.CPct >= cfg.Stretch5CPct {
					return Stretch5
				}
				return Stretch4
			},
		},
	}
}

// ApplyRules runs the cascade over one player. A rule that fires replaces the label
// outright, dropping any cluster suffix.
func ApplyRules(state *PlayerState, rules []Rule) {
	for _, r := range rules {
		if !r.Applies(state) {
			continue
		}
		next := r.Apply(state)
		if next != state.Label {
			state.Label = next
			state.Applied = append(state.Applied, r.Name)
		}
	}
}
