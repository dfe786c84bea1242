package models

import (
	"time"

	"gorm.io/datatypes"
)

// Output rows are written per run and become visible to readers only once their
// run is promoted (see PublishedRun).

// RotationProjection is the minutes projection for one player on a slate, with every
// adjustment term kept for audit.
type RotationProjection struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RunID            string    `gorm:"size:36;index;not null" json:"run_id"`
	SlateDate        time.Time `json:"slate_date"`
	Team             string    `gorm:"not null" json:"team"`
	PlayerName       string    `gorm:"not null" json:"player_name"`
	Position         string    `json:"position"`
	EspnSlot         string    `json:"espn_slot"`
	EspnDepth        int       `json:"espn_depth"`
	NewDepth         int       `json:"new_depth"`
	Promoted         bool      `json:"promoted"`
	Demoted          bool      `json:"demoted"`
	IsBench          bool      `json:"is_bench"`
	RoleBaseline     float64   `json:"role_baseline"`
	PlayerMPG        *float64  `json:"player_mpg"`
	Omega            float64   `json:"omega"`
	WeightedBase     float64   `json:"weighted_base"`
	StarterBump      float64   `json:"starter_bump"`
	InjuryBump       float64   `json:"injury_bump"`
	BenchPenalty     float64   `json:"bench_penalty"`
	GameContext      float64   `json:"game_context"`
	GameContextLabel string    `json:"game_context_label"`
	FoulBoost        float64   `json:"foul_boost"`
	MinFloor         float64   `json:"min_floor"`
	MaxCeiling       float64   `json:"max_ceiling"`
	RealityCap       *float64  `json:"reality_cap"`
	ProjectedMin     float64   `json:"projected_min"`
}

func (RotationProjection) TableName() string {
	return "rotation_projections"
}

// PlayerArchetype is one player's role label for a classification run.
type PlayerArchetype struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"size:36;index;not null" json:"run_id"`
	PlayerName    string         `gorm:"not null" json:"player_name"`
	Team          string         `json:"team"`
	Archetype     string         `gorm:"not null" json:"archetype"`
	BaseArchetype string         `json:"base_archetype"`
	ClusterLabel  string         `json:"cluster_label"`
	Cluster       int            `json:"cluster"`
	RulesApplied  string         `json:"rules_applied"`
	Membership    datatypes.JSON `json:"membership"`
	Indices       datatypes.JSON `json:"indices"`
}

func (PlayerArchetype) TableName() string {
	return "player_archetypes"
}

// ArchetypeProfile is the percentage each stat category contributes to an archetype's
// fantasy output. The seven percentages sum to 100.
type ArchetypeProfile struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	RunID     string  `gorm:"size:36;index;not null" json:"run_id"`
	Archetype string  `gorm:"not null" json:"archetype"`
	PtsPct    float64 `json:"pts_pct"`
	RebPct    float64 `json:"reb_pct"`
	AstPct    float64 `json:"ast_pct"`
	StlPct    float64 `json:"stl_pct"`
	BlkPct    float64 `json:"blk_pct"`
	Fg3mPct   float64 `json:"fg3m_pct"`
	TovPct    float64 `json:"tov_pct"`
	Samples   int     `json:"samples"`
}

func (ArchetypeProfile) TableName() string {
	return "archetype_profiles"
}

// DvaRecord is how an opposing defense performs against one archetype relative to
// the league. Components are percentage points and sum to DvsMultiplier.
type DvaRecord struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	RunID          string  `gorm:"size:36;index;not null" json:"run_id"`
	OpponentTeam   string  `gorm:"not null" json:"opponent_team"`
	Archetype      string  `gorm:"not null" json:"archetype"`
	LeagueFpPerMin float64 `json:"league_fp_per_min"`
	TeamFpPerMin   float64 `json:"team_fp_per_min"`
	FpPerMinDiff   float64 `json:"fp_per_min_diff"`
	DvsRaw         float64 `json:"dvs_raw"`
	DvsMultiplier  float64 `json:"dvs_multiplier"`
	Samples        int     `json:"samples"`
	RecentSamples  int     `json:"recent_samples"`
	PtsComponent   float64 `json:"pts_component"`
	RebComponent   float64 `json:"reb_component"`
	AstComponent   float64 `json:"ast_component"`
	StlComponent   float64 `json:"stl_component"`
	BlkComponent   float64 `json:"blk_component"`
	Fg3mComponent  float64 `json:"fg3m_component"`
	TovComponent   float64 `json:"tov_component"`
}

func (DvaRecord) TableName() string {
	return "dva_records"
}

// MatchupAdjustment is the bounded point adjustment for a player facing an opponent.
type MatchupAdjustment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	RunID            string         `gorm:"size:36;index;not null" json:"run_id"`
	SlateDate        time.Time      `json:"slate_date"`
	PlayerName       string         `gorm:"not null" json:"player_name"`
	OpponentTeam     string         `gorm:"not null" json:"opponent_team"`
	Archetype        string         `json:"archetype"`
	Familiarity      float64        `json:"familiarity"`
	ArchetypeMatchup float64        `json:"archetype_matchup"`
	Size             float64        `json:"size"`
	Durability       float64        `json:"durability"`
	RawScore         float64        `json:"raw_score"`
	FpAdjustment     float64        `json:"fp_adjustment_est"`
	Details          datatypes.JSON `json:"details"`
}

func (MatchupAdjustment) TableName() string {
	return "matchup_adjustments"
}

// DfsPlayerProjection is the per-player row handed to the lineup optimizer.
type DfsPlayerProjection struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RunID          string    `gorm:"size:36;index;not null" json:"run_id"`
	SlateDate      time.Time `json:"slate_date"`
	PlayerName     string    `gorm:"not null" json:"player_name"`
	Team           string    `json:"team"`
	Opponent       string    `json:"opponent"`
	Position       string    `json:"position"`
	TruePosition   string    `json:"true_position"`
	Archetype      string    `json:"archetype"`
	Salary         int       `json:"salary"`
	SalaryTier     string    `json:"salary_tier"`
	ProjectedMin   float64   `json:"projected_min"`
	FpPerMin       float64   `json:"fp_per_min"`
	BaseFP         float64   `json:"base_fp"`
	LineWeight     float64   `json:"line_weight"`
	DvpWeight      float64   `json:"dvp_weight"`
	RefWeight      float64   `json:"ref_weight"`
	MatchupAdj     float64   `json:"matchup_adj"`
	DvaAdj         float64   `json:"dva_adj"`
	ProjFP         float64   `json:"proj_fp"`
	RawFpSD        float64   `json:"raw_fp_sd"`
	FpSD           float64   `json:"fp_sd"`
	TierExpectedSD float64   `json:"tier_expected_sd"`
	TierCV         float64   `json:"tier_cv"`
	Ceiling        float64   `json:"ceiling"`
	Floor          float64   `json:"floor"`
	FpRange        float64   `json:"fp_range"`
	UpsideRatio    float64   `json:"upside_ratio"`
	ValueRatio     float64   `json:"value_ratio"`
	ValueVsTier    float64   `json:"value_vs_tier"`
	GamesPlayed    int       `json:"games_played"`
}

func (DfsPlayerProjection) TableName() string {
	return "dfs_player_projections"
}

// TierProfile is the salary-tier variance prior used by a run.
type TierProfile struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	RunID    string  `gorm:"size:36;index;not null" json:"run_id"`
	Tier     string  `gorm:"not null" json:"tier"`
	CV       float64 `json:"cv"`
	MedianSD float64 `json:"median_sd"`
	P95Cap   float64 `json:"p95_cap"`
	P5Floor  float64 `json:"p5_floor"`
	CVMax    float64 `json:"cv_max"`
	Source   string  `json:"source"` // empirical or default
}

func (TierProfile) TableName() string {
	return "tier_profiles"
}

// Run statuses recorded in the pipeline_runs ledger.
const (
	RunStatusRunning   = "running"
	RunStatusStaged    = "staged"
	RunStatusPublished = "published"
	RunStatusFailed    = "failed"
)

// PipelineRun is one execution of the projection pipeline.
type PipelineRun struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	SlateDate  time.Time      `gorm:"index" json:"slate_date"`
	Status     string         `gorm:"not null;index" json:"status"`
	Stage      string         `json:"stage"`
	Error      string         `json:"error,omitempty"`
	RowCounts  datatypes.JSON `json:"row_counts"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// PublishedRun is a single-row pointer to the run readers should see.
type PublishedRun struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunID       string    `gorm:"size:36;not null" json:"run_id"`
	SlateDate   time.Time `json:"slate_date"`
	PublishedAt time.Time `json:"published_at"`
}

func (PublishedRun) TableName() string {
	return "published_runs"
}

// PublishedRunID is the primary key of the one PublishedRun row.
const PublishedRunID = 1
