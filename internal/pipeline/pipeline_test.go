package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-projections/internal/cache"
	"github.com/stitts-dev/nba-projections/internal/minutes"
	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/internal/store"
	"github.com/stitts-dev/nba-projections/internal/teams"
	"github.com/stitts-dev/nba-projections/internal/volatility"
	"github.com/stitts-dev/nba-projections/pkg/config"
	"github.com/stitts-dev/nba-projections/pkg/database"
	"github.com/stitts-dev/nba-projections/pkg/logger"
)

var testSlate = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

type fixturePlayer struct {
	name     string
	team     string
	slot     string
	position string
	salary   int
	height   float64
	weight   float64
	mpg      float64
	pts      float64
}

var fixturePlayers = []fixturePlayer{
	{"Jalen Brunson", "NYK", "PG1", "PG", 9800, 74, 190, 35, 28},
	{"Mikal Bridges", "NYK", "SF1", "SF", 7200, 78, 209, 36, 18},
	{"Karl-Anthony Towns", "NYK", "C1", "C", 9400, 84, 248, 34, 25},
	{"Miles McBride", "NYK", "PG2", "PG", 4200, 74, 195, 18, 8},
	{"Jrue Holiday", "BOS", "PG1", "PG", 6500, 76, 205, 32, 12},
	{"Jayson Tatum", "BOS", "SF1", "SF", 10200, 80, 210, 36, 27},
	{"Kristaps Porzingis", "BOS", "C1", "C", 7600, 86, 240, 29, 20},
	{"Payton Pritchard", "BOS", "PG2", "PG", 5000, 73, 195, 22, 11},
}

func fixtureInputs() *models.Inputs {
	in := &models.Inputs{}
	for i, p := range fixturePlayers {
		opp := "BOS"
		if p.team == "BOS" {
			opp = "NYK"
		}
		for g := 0; g < 12; g++ {
			swing := float64(g%4) - 1.5
			log := models.PlayerGameLog{
				PlayerName: p.name,
				Team:       p.team,
				Opponent:   opp,
				Matchup:    fmt.Sprintf("%s vs. %s", p.team, opp),
				GameDate:   testSlate.AddDate(0, 0, -2*(g+1)),
				Minutes:    p.mpg + swing,
				Points:     p.pts + 2*swing,
				Rebounds:   4 + float64(i%3),
				Assists:    3 + float64(i%4),
				Steals:     1,
				Blocks:     float64(i % 2),
				Threes:     2,
				Turnovers:  2,
			}
			in.GameLogs = append(in.GameLogs, log)
		}

		games := 40
		in.SeasonRates = append(in.SeasonRates, models.PlayerSeasonRates{
			PlayerName:   p.name,
			Team:         p.team,
			GamesPlayed:  games,
			TotalMinutes: p.mpg * float64(games),
			MPG:          p.mpg,
			PtsPer100:    p.pts * 2.8,
			RebPer100:    8 + float64(i),
			AstPer100:    5 + float64(i%4)*2,
			StlPer100:    1.5,
			BlkPer100:    float64(i % 3),
			Fg3mPer100:   3,
			TovPer100:    3,
			FpPer100:     60 + float64(i)*3,
			UsgPct:       0.18 + float64(i%5)*0.03,
			RimShare:     0.2 + float64(i%3)*0.1,
			ThreeShare:   0.3,
			Fg3Pct:       0.36,
			HeightIn:     p.height,
			WeightLbs:    p.weight,
			WingspanIn:   p.height + 3,
		})
		in.DepthCharts = append(in.DepthCharts, models.DepthChartEntry{Team: p.team, PositionSlot: p.slot, PlayerName: p.name})
		in.Salaries = append(in.Salaries, models.SalaryEntry{
			PlayerName: p.name,
			Team:       p.team,
			Salary:     p.salary,
			Position:   p.position,
		})
	}

	in.Injuries = []models.InjuryStatus{{PlayerName: "Kristaps Porzingis", Team: "BOS", Status: "OUT"}}
	in.Odds = []models.GameOdds{{GameDate: testSlate, HomeTeam: "NYK", AwayTeam: "BOS", Spread: fptr(-3.5), Total: fptr(224)}}
	in.Pace = []models.TeamPace{{Team: "NYK", Pace: 97.5}, {Team: "BOS", Pace: 99.1}}
	in.Dvp = []models.DvpEntry{
		{Team: "BOS", Position: "PG", DvpScore: 45},
		{Team: "BOS", Position: "C", DvpScore: 52},
		{Team: "NYK", Position: "sf", DvpScore: 48},
	}
	in.Lines = []models.HistoricLine{{Team: "NYK", TeamLine: 112}, {Team: "BOS", TeamLine: 116}}
	diff := 1.2
	in.Referees = []models.RefereeEnvironment{{GameDate: testSlate, HomeTeam: "NYK", AwayTeam: "BOS", AvgFoulDiff: &diff}}
	return in
}

func fptr(v float64) *float64 { return &v }

func testLog() *logrus.Entry {
	return logrus.NewEntry(logger.Discard())
}

func TestComputeProducesEveryOutput(t *testing.T) {
	out := NewComputer(config.DefaultTuning(), testLog()).Compute(testSlate, fixtureInputs())

	assert.Len(t, out.Archetypes, len(fixturePlayers))
	assert.NotEmpty(t, out.Rotations)
	assert.NotEmpty(t, out.Dva)
	assert.NotEmpty(t, out.Profiles)
	assert.Len(t, out.Tiers, len(volatility.Tiers))

	// OUT players get neither minutes nor a projection, and are not matchup-scored.
	assert.Len(t, out.Projections, len(fixturePlayers)-1)
	assert.Len(t, out.Matchups, len(fixturePlayers)-1)
	for _, r := range out.Rotations {
		assert.NotEqual(t, "Kristaps Porzingis", r.PlayerName)
	}

	for _, p := range out.Projections {
		assert.NotEqual(t, "Kristaps Porzingis", p.PlayerName)
		assert.GreaterOrEqual(t, p.ProjFP, 0.0, p.PlayerName)
		assert.GreaterOrEqual(t, p.Ceiling, p.ProjFP, p.PlayerName)
		assert.LessOrEqual(t, p.Floor, p.ProjFP, p.PlayerName)
		assert.GreaterOrEqual(t, p.Floor, 0.0, p.PlayerName)
		assert.NotEmpty(t, p.SalaryTier, p.PlayerName)
		assert.NotEmpty(t, p.Opponent, p.PlayerName)
		assert.Equal(t, 12, p.GamesPlayed, p.PlayerName)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	c := NewComputer(config.DefaultTuning(), testLog())
	first := c.Compute(testSlate, fixtureInputs())
	second := c.Compute(testSlate, fixtureInputs())

	require.Equal(t, first.Counts(), second.Counts())
	for i := range first.Archetypes {
		assert.Equal(t, first.Archetypes[i].Archetype, second.Archetypes[i].Archetype)
	}
	for i := range first.Projections {
		assert.Equal(t, first.Projections[i].PlayerName, second.Projections[i].PlayerName)
		assert.InDelta(t, first.Projections[i].ProjFP, second.Projections[i].ProjFP, 1e-6)
		assert.InDelta(t, first.Projections[i].FpSD, second.Projections[i].FpSD, 1e-6)
	}
}

func TestComputeClassifiesDuplicateSpellingsOnce(t *testing.T) {
	in := fixtureInputs()
	dup := in.SeasonRates[len(in.SeasonRates)-1]
	for _, r := range in.SeasonRates {
		if r.PlayerName == "Kristaps Porzingis" {
			dup = r
		}
	}
	dup.PlayerName = "Kristaps Porziņģis"
	in.SeasonRates = append([]models.PlayerSeasonRates{dup}, in.SeasonRates...)

	out := NewComputer(config.DefaultTuning(), testLog()).Compute(testSlate, in)

	require.Len(t, out.Archetypes, len(fixturePlayers))
	matches := 0
	for _, a := range out.Archetypes {
		if teams.NormalizeName(a.PlayerName) == "kristaps porzingis" {
			matches++
			assert.Equal(t, "Kristaps Porzingis", a.PlayerName)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestComputeWithoutGame(t *testing.T) {
	in := fixtureInputs()
	in.Odds = nil
	in.Referees = nil
	out := NewComputer(config.DefaultTuning(), testLog()).Compute(testSlate, in)

	assert.Empty(t, out.Matchups)
	for _, p := range out.Projections {
		assert.Empty(t, p.Opponent)
		assert.Equal(t, 1.0, p.LineWeight)
		assert.Equal(t, 1.0, p.RefWeight)
	}
}

func TestComputeWithoutSpread(t *testing.T) {
	in := fixtureInputs()
	in.Odds[0].Spread = nil
	out := NewComputer(config.DefaultTuning(), testLog()).Compute(testSlate, in)

	require.NotEmpty(t, out.Rotations)
	for _, r := range out.Rotations {
		assert.Equal(t, minutes.ContextUnknown, r.GameContextLabel, r.PlayerName)
		assert.Equal(t, 0.0, r.GameContext, r.PlayerName)
	}
	for _, p := range out.Projections {
		assert.NotEmpty(t, p.Opponent)
		assert.Equal(t, 1.0, p.LineWeight, p.PlayerName)
	}
}

func TestComputeFavoriteGetsHigherLine(t *testing.T) {
	in := fixtureInputs()
	in.Lines = []models.HistoricLine{{Team: "NYK", TeamLine: 112}, {Team: "BOS", TeamLine: 112}}
	out := NewComputer(config.DefaultTuning(), testLog()).Compute(testSlate, in)

	weights := make(map[string]float64)
	for _, p := range out.Projections {
		weights[p.Team] = p.LineWeight
	}
	// BOS is the road favorite by 3.5
	assert.Greater(t, weights["BOS"], weights["NY"])
}

// fakeStore records calls and can cancel the run when a stage starts.
type fakeStore struct {
	inputs     *models.Inputs
	cancelAt   string
	cancel     context.CancelFunc
	stages     []string
	staged     bool
	promoted   bool
	failed     string
	failCause  error
	promoteErr error
}

func (f *fakeStore) LoadInputs(ctx context.Context, slate time.Time) (*models.Inputs, error) {
	return f.inputs, nil
}

func (f *fakeStore) BeginRun(ctx context.Context, runID string, slate time.Time) error {
	return nil
}

func (f *fakeStore) UpdateStage(ctx context.Context, runID, stage string) error {
	f.stages = append(f.stages, stage)
	if stage == f.cancelAt && f.cancel != nil {
		f.cancel()
	}
	return nil
}

func (f *fakeStore) StageOutputs(ctx context.Context, runID string, out *models.Outputs) error {
	f.staged = true
	return nil
}

func (f *fakeStore) Promote(ctx context.Context, runID string) error {
	if f.promoteErr != nil {
		return f.promoteErr
	}
	f.promoted = true
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, runID, stage string, cause error) error {
	f.failed = stage
	f.failCause = cause
	return nil
}

type fakePublisher struct {
	snaps []cache.Snapshot
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, snap cache.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.snaps = append(f.snaps, snap)
	return nil
}

func TestRunPublishes(t *testing.T) {
	st := &fakeStore{inputs: fixtureInputs()}
	pub := &fakePublisher{}
	p := New(Deps{Store: st, Publisher: pub, Tuning: config.DefaultTuning(), Log: testLog()})

	summary, err := p.Run(context.Background(), testSlate)
	require.NoError(t, err)

	assert.True(t, st.staged)
	assert.True(t, st.promoted)
	assert.Empty(t, st.failed)
	assert.Equal(t, []string{StagePrepare, StageRotation, StageArchetype, StageDVA, StageMatchup, StageAssemble, StageVolatility}, st.stages)
	assert.True(t, summary.Published)
	assert.Equal(t, len(fixturePlayers)-1, summary.Counts[models.DfsPlayerProjection{}.TableName()])
	require.Len(t, pub.snaps, 1)
	assert.Equal(t, summary.RunID, pub.snaps[0].RunID)
	assert.Len(t, pub.snaps[0].Projections, len(fixturePlayers)-1)
}

func TestRunCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &fakeStore{inputs: fixtureInputs(), cancelAt: StageDVA, cancel: cancel}
	pub := &fakePublisher{}
	p := New(Deps{Store: st, Publisher: pub, Tuning: config.DefaultTuning(), Log: testLog()})

	_, err := p.Run(ctx, testSlate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.False(t, st.staged)
	assert.False(t, st.promoted)
	assert.Equal(t, StageMatchup, st.failed)
	assert.Empty(t, pub.snaps)
}

func TestRunPromoteFailure(t *testing.T) {
	st := &fakeStore{inputs: fixtureInputs(), promoteErr: errors.New("constraint violated")}
	pub := &fakePublisher{}
	p := New(Deps{Store: st, Publisher: pub, Tuning: config.DefaultTuning(), Log: testLog()})

	_, err := p.Run(context.Background(), testSlate)
	require.Error(t, err)
	assert.Equal(t, StagePromote, st.failed)
	assert.Empty(t, pub.snaps)
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	st := &fakeStore{inputs: fixtureInputs()}
	pub := &fakePublisher{err: errors.New("redis down")}
	p := New(Deps{Store: st, Publisher: pub, Tuning: config.DefaultTuning(), Log: testLog()})

	summary, err := p.Run(context.Background(), testSlate)
	require.NoError(t, err)
	assert.True(t, st.promoted)
	assert.False(t, summary.Published)
}

func TestRunInProgress(t *testing.T) {
	locker := &LocalLocker{}
	release, err := locker.TryLock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, release)

	st := &fakeStore{inputs: fixtureInputs()}
	p := New(Deps{Store: st, Locker: locker, Tuning: config.DefaultTuning(), Log: testLog()})
	_, err = p.Run(context.Background(), testSlate)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, st.stages)

	require.NoError(t, release(context.Background()))
	_, err = p.Run(context.Background(), testSlate)
	assert.NoError(t, err)
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewSQLiteConnection("file:pipeline_e2e?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	repo := store.NewRepository(db, 2, testLog())
	require.NoError(t, repo.Migrate(ctx))

	in := fixtureInputs()
	for _, rows := range []interface{}{
		&in.GameLogs, &in.SeasonRates, &in.DepthCharts, &in.Injuries, &in.Odds,
		&in.Pace, &in.Salaries, &in.Dvp, &in.Lines, &in.Referees,
	} {
		require.NoError(t, db.Create(rows).Error)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	projections := cache.NewProjectionCache(client, testLog(), time.Hour, cache.BreakerConfig{Threshold: 3, Timeout: time.Second})

	p := New(Deps{
		Store:     repo,
		Locker:    cache.NewRedisLocker(client, time.Minute),
		Publisher: projections,
		Tuning:    config.DefaultTuning(),
		Log:       testLog(),
	})
	summary, err := p.Run(ctx, testSlate)
	require.NoError(t, err)

	rows, published, err := repo.PublishedProjections(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, published.RunID)
	assert.Len(t, rows, len(fixturePlayers)-1)

	snap, err := projections.Get(ctx, testSlate)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, snap.RunID)
	assert.False(t, mr.Exists(cache.RunLockKey))
}
