package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/pkg/database"
	"github.com/stitts-dev/nba-projections/pkg/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *database.DB
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupSuite() {
	db, err := database.NewSQLiteConnection("file:store_repository?mode=memory&cache=shared")
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
	s.repo = NewRepository(db, 1, logrus.NewEntry(logger.Discard()))
	s.Require().NoError(s.repo.Migrate(s.ctx))
}

func (s *RepositoryTestSuite) TearDownSuite() {
	s.Require().NoError(s.db.Close())
}

func (s *RepositoryTestSuite) SetupTest() {
	// Clean database before each test
	tables := append(models.InputTables(), models.OutputTables()...)
	tables = append(tables, &models.PipelineRun{}, &models.PublishedRun{})
	for _, table := range tables {
		s.Require().NoError(s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error)
	}
}

func slate() time.Time {
	return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
}

func outputs(player string) *models.Outputs {
	return &models.Outputs{
		Rotations:   []models.RotationProjection{{SlateDate: slate(), Team: "BOS", PlayerName: player, ProjectedMin: 34}},
		Archetypes:  []models.PlayerArchetype{{PlayerName: player, Team: "BOS", Archetype: "Scoring Wing"}},
		Profiles:    []models.ArchetypeProfile{{Archetype: "Scoring Wing", PtsPct: 60, RebPct: 40}},
		Dva:         []models.DvaRecord{{OpponentTeam: "NY", Archetype: "Scoring Wing", DvsMultiplier: 1.2}},
		Matchups:    []models.MatchupAdjustment{{SlateDate: slate(), PlayerName: player, OpponentTeam: "NY"}},
		Tiers:       []models.TierProfile{{Tier: "stud", CV: 0.3, Source: "default"}},
		Projections: []models.DfsPlayerProjection{{SlateDate: slate(), PlayerName: player, Team: "BOS", Salary: 9800, ProjFP: 44.5}},
	}
}

func (s *RepositoryTestSuite) stage(runID, player string) {
	s.Require().NoError(s.repo.BeginRun(s.ctx, runID, slate()))
	s.Require().NoError(s.repo.StageOutputs(s.ctx, runID, outputs(player)))
}

func (s *RepositoryTestSuite) TestLoadInputsFiltersSlateGames() {
	s.Require().NoError(s.db.Create(&[]models.GameOdds{
		{GameDate: slate().Add(19 * time.Hour), HomeTeam: "BOS", AwayTeam: "NY", Spread: fptr(4.5), Total: fptr(224)},
		{GameDate: slate().AddDate(0, 0, 1), HomeTeam: "MIA", AwayTeam: "ORL", Spread: fptr(2), Total: fptr(210)},
	}).Error)
	s.Require().NoError(s.db.Create(&models.PlayerGameLog{PlayerName: "Jayson Tatum", Matchup: "BOS vs. NYK", GameDate: slate().AddDate(0, 0, -2), Minutes: 36, Points: 30}).Error)
	s.Require().NoError(s.db.Create(&models.SalaryEntry{PlayerName: "Jayson Tatum", Team: "BOS", Salary: 9800, Position: "SF/PF"}).Error)

	in, err := s.repo.LoadInputs(s.ctx, slate())
	s.Require().NoError(err)
	s.Len(in.Odds, 1)
	s.Equal("BOS", in.Odds[0].HomeTeam)
	s.Len(in.GameLogs, 1)
	s.Len(in.Salaries, 1)
	s.Empty(in.DepthCharts)
}

func (s *RepositoryTestSuite) TestNothingPublishedYet() {
	_, err := s.repo.CurrentRun(s.ctx)
	s.True(errors.Is(err, ErrNoPublishedRun))

	s.stage("run-a", "Jayson Tatum")
	_, _, err = s.repo.PublishedProjections(s.ctx)
	s.True(errors.Is(err, ErrNoPublishedRun))
}

func (s *RepositoryTestSuite) TestPromotePublishesStagedRun() {
	s.stage("run-a", "Jayson Tatum")
	s.Require().NoError(s.repo.Promote(s.ctx, "run-a"))

	rows, pointer, err := s.repo.PublishedProjections(s.ctx)
	s.Require().NoError(err)
	s.Equal("run-a", pointer.RunID)
	s.Require().Len(rows, 1)
	s.Equal("Jayson Tatum", rows[0].PlayerName)
	s.Equal("run-a", rows[0].RunID)

	runs, err := s.repo.RecentRuns(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(models.RunStatusPublished, runs[0].Status)
	s.NotNil(runs[0].FinishedAt)
	s.Contains(string(runs[0].RowCounts), "dfs_player_projections")
}

func (s *RepositoryTestSuite) TestFailedRunLeavesPreviousRunVisible() {
	s.stage("run-a", "Jayson Tatum")
	s.Require().NoError(s.repo.Promote(s.ctx, "run-a"))

	s.stage("run-b", "Jaylen Brown")
	s.Require().NoError(s.repo.MarkFailed(s.ctx, "run-b", "assemble", errors.New("boom")))

	s.Error(s.repo.Promote(s.ctx, "run-b"))
	rows, pointer, err := s.repo.PublishedProjections(s.ctx)
	s.Require().NoError(err)
	s.Equal("run-a", pointer.RunID)
	s.Require().Len(rows, 1)
	s.Equal("Jayson Tatum", rows[0].PlayerName)
}

func (s *RepositoryTestSuite) TestPromotePrunesBeyondRetention() {
	s.stage("run-a", "Jayson Tatum")
	s.Require().NoError(s.repo.Promote(s.ctx, "run-a"))
	s.stage("run-failed", "Nobody")
	s.Require().NoError(s.repo.MarkFailed(s.ctx, "run-failed", "dva", errors.New("boom")))
	s.stage("run-b", "Jaylen Brown")
	s.Require().NoError(s.repo.Promote(s.ctx, "run-b"))

	var runIDs []string
	s.Require().NoError(s.db.Model(&models.DfsPlayerProjection{}).Distinct("run_id").Pluck("run_id", &runIDs).Error)
	s.Equal([]string{"run-b"}, runIDs)

	var archetypes int64
	s.Require().NoError(s.db.Model(&models.PlayerArchetype{}).Count(&archetypes).Error)
	s.Equal(int64(1), archetypes)
}

func (s *RepositoryTestSuite) TestPromoteUnknownRun() {
	s.Error(s.repo.Promote(s.ctx, "missing"))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func fptr(v float64) *float64 { return &v }
