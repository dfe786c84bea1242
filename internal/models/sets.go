package models

// Inputs is every ingested table a run reads. Odds and referee rows are limited
// to the slate; the rest are full tables.
type Inputs struct {
	GameLogs    []PlayerGameLog
	SeasonRates []PlayerSeasonRates
	DepthCharts []DepthChartEntry
	Injuries    []InjuryStatus
	Odds        []GameOdds
	Pace        []TeamPace
	Salaries    []SalaryEntry
	Dvp         []DvpEntry
	Lines       []HistoricLine
	Referees    []RefereeEnvironment
}

// Outputs is everything one run produces. Rows carry no run ID until staged.
type Outputs struct {
	Rotations   []RotationProjection
	Archetypes  []PlayerArchetype
	Profiles    []ArchetypeProfile
	Dva         []DvaRecord
	Matchups    []MatchupAdjustment
	Tiers       []TierProfile
	Projections []DfsPlayerProjection
}

// Counts returns the row count per output table.
func (o *Outputs) Counts() map[string]int {
	return map[string]int{
		RotationProjection{}.TableName():  len(o.Rotations),
		PlayerArchetype{}.TableName():     len(o.Archetypes),
		ArchetypeProfile{}.TableName():    len(o.Profiles),
		DvaRecord{}.TableName():           len(o.Dva),
		MatchupAdjustment{}.TableName():   len(o.Matchups),
		TierProfile{}.TableName():         len(o.Tiers),
		DfsPlayerProjection{}.TableName(): len(o.Projections),
	}
}

// InputTables lists the ingested models for migrations.
func InputTables() []interface{} {
	return []interface{}{
		&PlayerGameLog{}, &PlayerSeasonRates{}, &DepthChartEntry{}, &InjuryStatus{},
		&GameOdds{}, &TeamPace{}, &SalaryEntry{}, &DvpEntry{}, &HistoricLine{},
		&RefereeEnvironment{},
	}
}

// OutputTables lists the run-scoped output models.
func OutputTables() []interface{} {
	return []interface{}{
		&RotationProjection{}, &PlayerArchetype{}, &ArchetypeProfile{}, &DvaRecord{},
		&MatchupAdjustment{}, &TierProfile{}, &DfsPlayerProjection{},
	}
}
