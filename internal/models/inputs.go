package models

import (
	"time"
)

// Fantasy scoring weights for the base stat categories.
const (
	PointsWeight    = 1.0
	ReboundsWeight  = 1.2
	AssistsWeight   = 1.5
	StealsWeight    = 3.0
	BlocksWeight    = 3.0
	TurnoversWeight = -1.0
)

// FantasyPoints applies the fixed linear scoring formula.
func FantasyPoints(pts, reb, ast, stl, blk, tov float64) float64 {
	return pts*PointsWeight + reb*ReboundsWeight + ast*AssistsWeight +
		stl*StealsWeight + blk*BlocksWeight + tov*TurnoversWeight
}

// PlayerGameLog is one box-score line for a player in a historical game.
// Rows are appended by ingestion and never mutated.
type PlayerGameLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PlayerName    string    `gorm:"not null;index" json:"player_name"`
	Team          string    `json:"team"`
	Opponent      string    `json:"opponent"`
	Matchup       string    `json:"matchup"` // "BOS vs. NYK" or "BOS @ NYK"
	GameDate      time.Time `gorm:"index" json:"game_date"`
	Minutes       float64   `json:"min"`
	Points        float64   `json:"pts"`
	Rebounds      float64   `json:"reb"`
	Assists       float64   `json:"ast"`
	Steals        float64   `json:"stl"`
	Blocks        float64   `json:"blk"`
	Threes        float64   `json:"fg3m"`
	Turnovers     float64   `json:"tov"`
	FantasyPoints float64   `json:"fp"`
}

func (PlayerGameLog) TableName() string {
	return "player_game_logs"
}

// Score returns the stored fantasy points, computing them when ingestion left them empty.
func (g PlayerGameLog) Score() float64 {
	if g.FantasyPoints != 0 {
		return g.FantasyPoints
	}
	return FantasyPoints(g.Points, g.Rebounds, g.Assists, g.Steals, g.Blocks, g.Turnovers)
}

// PlayerSeasonRates holds season-to-date rates for a player. The table is fully
// replaced on each ETL cycle.
type PlayerSeasonRates struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	PlayerName   string  `gorm:"not null;uniqueIndex" json:"player_name"`
	Team         string  `json:"team"`
	GamesPlayed  int     `json:"games_played"`
	TotalMinutes float64 `json:"total_minutes"`
	MPG          float64 `json:"mpg"`

	// Per-100-possession rates
	PtsPer100  float64 `json:"pts_per100"`
	RebPer100  float64 `json:"reb_per100"`
	AstPer100  float64 `json:"ast_per100"`
	StlPer100  float64 `json:"stl_per100"`
	BlkPer100  float64 `json:"blk_per100"`
	Fg3mPer100 float64 `json:"fg3m_per100"`
	TovPer100  float64 `json:"tov_per100"`
	FpPer100   float64 `json:"fp_per100"`
	UsgPct     float64 `json:"usg_pct"`

	// Shot zones, shares of FGA in [0,1]
	RimShare         float64 `json:"rim_share"`
	PaintShare       float64 `json:"paint_share"`
	MidShare         float64 `json:"mid_share"`
	ThreeShare       float64 `json:"three_share"`
	CornerThreeShare float64 `json:"corner_three_share"`
	AboveBreakShare  float64 `json:"above_break_share"`
	Fg3Pct           float64 `json:"fg3_pct"`

	// Shot creation
	CatchShootPct        float64 `json:"catch_shoot_pct"`
	PullUpPct            float64 `json:"pull_up_pct"`
	CatchShootThreeShare float64 `json:"catch_shoot_three_share"`
	PullUpThreeShare     float64 `json:"pull_up_three_share"`

	// Hustle, per 48 minutes
	Deflections float64 `json:"deflections"`
	Contests    float64 `json:"contests"`
	BoxOuts     float64 `json:"box_outs"`

	// Tracking
	TouchesPerMin    float64 `json:"touches_per_min"`
	SecondsPerTouch  float64 `json:"seconds_per_touch"`
	DribblesPerTouch float64 `json:"dribbles_per_touch"`
	TimeOfPossession float64 `json:"time_of_possession"`
	PostTouches      float64 `json:"post_touches"`
	PaintTouches     float64 `json:"paint_touches"`

	// Physical measurements
	HeightIn   float64 `json:"height_in"`
	WeightLbs  float64 `json:"weight_lbs"`
	WingspanIn float64 `json:"wingspan_in"`

	// Play-by-play position shares in percent
	PGPct float64 `json:"pg_pct"`
	SGPct float64 `json:"sg_pct"`
	SFPct float64 `json:"sf_pct"`
	PFPct float64 `json:"pf_pct"`
	CPct  float64 `json:"c_pct"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (PlayerSeasonRates) TableName() string {
	return "player_season_rates"
}

// DepthChartEntry is one scraped depth-chart slot, e.g. BOS PG1.
type DepthChartEntry struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Team         string `gorm:"not null;index" json:"team"`
	PositionSlot string `gorm:"not null" json:"position_slot"`
	PlayerName   string `gorm:"not null" json:"player_name"`
}

func (DepthChartEntry) TableName() string {
	return "depth_charts"
}

// InjuryStatus is one row of the injury report.
type InjuryStatus struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PlayerName string `gorm:"not null" json:"player_name"`
	Team       string `json:"team"`
	Status     string `json:"status"` // OUT, DOUBTFUL, GTD, ...
}

func (InjuryStatus) TableName() string {
	return "injury_statuses"
}

// IsOut reports whether the player is ruled out for the slate.
func (i InjuryStatus) IsOut() bool {
	switch i.Status {
	case "OUT", "Out", "out", "O":
		return true
	}
	return false
}

// GameOdds is the Vegas line for one game on the slate. Spread is quoted for the
// away team, the first team the odds board lists (negative when the away team is
// favored). Either value is nil when the board had no line.
type GameOdds struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GameDate time.Time `gorm:"index" json:"game_date"`
	HomeTeam string    `gorm:"not null" json:"home_team"`
	AwayTeam string    `gorm:"not null" json:"away_team"`
	Spread   *float64  `json:"spread"`
	Total    *float64  `json:"total"`
}

func (GameOdds) TableName() string {
	return "game_odds"
}

// TeamPace is a team's possessions per 48 minutes.
type TeamPace struct {
	ID   uint    `gorm:"primaryKey" json:"id"`
	Team string  `gorm:"not null;uniqueIndex" json:"team"`
	Pace float64 `json:"pace"`
}

func (TeamPace) TableName() string {
	return "team_pace"
}

// SalaryEntry is one player on the salary file for the slate.
type SalaryEntry struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	PlayerName  string   `gorm:"not null" json:"player_name"`
	Team        string   `gorm:"not null" json:"team"`
	Salary      int      `json:"salary"`
	Position    string   `json:"position"` // FanDuel eligibility, e.g. "PG/SG"
	IsBench     bool     `json:"is_bench"`
	RosterOrder int      `json:"roster_order"` // 0 when the source carries no ordering
	GamesPct    *float64 `json:"games_pct,omitempty"`
}

func (SalaryEntry) TableName() string {
	return "player_salaries"
}

// DvpEntry is the opponent's defense-vs-position score for one position.
type DvpEntry struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Team     string  `gorm:"not null;index" json:"team"`
	Position string  `gorm:"not null" json:"position"`
	DvpScore float64 `json:"dvp_score"`
}

func (DvpEntry) TableName() string {
	return "dvp_stats"
}

// HistoricLine is a team's Vegas-implied score for a past game.
type HistoricLine struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Team     string    `gorm:"not null;index" json:"team"`
	GameDate time.Time `json:"game_date"`
	TeamLine float64   `json:"team_line"`
}

func (HistoricLine) TableName() string {
	return "historic_lines"
}

// RefereeEnvironment is the assigned crew's historical foul differential for a game.
// Positive values favor the home team.
type RefereeEnvironment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GameDate    time.Time `json:"game_date"`
	HomeTeam    string    `gorm:"not null" json:"home_team"`
	AwayTeam    string    `gorm:"not null" json:"away_team"`
	AvgFoulDiff *float64  `json:"avg_foul_diff"`
}

func (RefereeEnvironment) TableName() string {
	return "game_foul_environment"
}
