package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/pkg/database"
)

// ErrNoPublishedRun is returned by readers before any run has been promoted.
var ErrNoPublishedRun = errors.New("no published run")

const batchSize = 500

// Repository reads ingested tables and writes run-scoped outputs. Readers only
// ever see the run referenced by the published_runs pointer.
type Repository struct {
	db        *database.DB
	retention int
	log       *logrus.Entry
}

// NewRepository keeps the outputs of the latest retention published runs.
func NewRepository(db *database.DB, retention int, log *logrus.Entry) *Repository {
	if retention < 1 {
		retention = 1
	}
	return &Repository{db: db, retention: retention, log: log}
}

// Migrate creates or updates every table the pipeline touches.
func (r *Repository) Migrate(ctx context.Context) error {
	tables := append(models.InputTables(), models.OutputTables()...)
	tables = append(tables, &models.PipelineRun{}, &models.PublishedRun{})
	if err := r.db.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

// LoadInputs reads the ingested tables concurrently. Odds and referee rows are
// limited to games on the slate day.
func (r *Repository) LoadInputs(ctx context.Context, slate time.Time) (*models.Inputs, error) {
	in := &models.Inputs{}
	start := time.Date(slate.Year(), slate.Month(), slate.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	g, gctx := errgroup.WithContext(ctx)
	load := func(name string, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) {
		g.Go(func() error {
			if err := r.db.WithContext(gctx).Scopes(scopes...).Order("id").Find(dest).Error; err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
			return nil
		})
	}
	onSlate := func(db *gorm.DB) *gorm.DB {
		return db.Where("game_date >= ? AND game_date < ?", start, end)
	}

	load("game logs", &in.GameLogs)
	load("season rates", &in.SeasonRates)
	load("depth charts", &in.DepthCharts)
	load("injuries", &in.Injuries)
	load("game odds", &in.Odds, onSlate)
	load("team pace", &in.Pace)
	load("salaries", &in.Salaries)
	load("dvp", &in.Dvp)
	load("historic lines", &in.Lines)
	load("referee environment", &in.Referees, onSlate)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"game_logs":    len(in.GameLogs),
		"season_rates": len(in.SeasonRates),
		"depth_charts": len(in.DepthCharts),
		"salaries":     len(in.Salaries),
		"games":        len(in.Odds),
	}).Debug("Loaded pipeline inputs")
	return in, nil
}

// BeginRun records a new run in the ledger.
func (r *Repository) BeginRun(ctx context.Context, runID string, slate time.Time) error {
	run := models.PipelineRun{
		ID:        runID,
		SlateDate: slate,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// UpdateStage records the stage a running run has reached.
func (r *Repository) UpdateStage(ctx context.Context, runID, stage string) error {
	err := r.db.WithContext(ctx).Model(&models.PipelineRun{}).
		Where("id = ?", runID).
		Update("stage", stage).Error
	if err != nil {
		return fmt.Errorf("failed to update run stage: %w", err)
	}
	return nil
}

// StageOutputs writes every output row under runID in one transaction and marks
// the run staged. Staged rows are invisible to readers until Promote.
func (r *Repository) StageOutputs(ctx context.Context, runID string, out *models.Outputs) error {
	setRunID(runID, out)
	counts, err := json.Marshal(out.Counts())
	if err != nil {
		return fmt.Errorf("failed to encode row counts: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batches := []struct {
			name string
			rows interface{}
			n    int
		}{
			{"rotation projections", &out.Rotations, len(out.Rotations)},
			{"player archetypes", &out.Archetypes, len(out.Archetypes)},
			{"archetype profiles", &out.Profiles, len(out.Profiles)},
			{"dva records", &out.Dva, len(out.Dva)},
			{"matchup adjustments", &out.Matchups, len(out.Matchups)},
			{"tier profiles", &out.Tiers, len(out.Tiers)},
			{"dfs projections", &out.Projections, len(out.Projections)},
		}
		for _, b := range batches {
			if b.n == 0 {
				continue
			}
			if err := tx.CreateInBatches(b.rows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to stage %s: %w", b.name, err)
			}
		}

		err := tx.Model(&models.PipelineRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
			"status":     models.RunStatusStaged,
			"row_counts": datatypes.JSON(counts),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to mark run staged: %w", err)
		}
		return nil
	})
}

// Promote atomically points readers at runID, then prunes rows from runs that
// are neither published nor retained.
func (r *Repository) Promote(ctx context.Context, runID string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run models.PipelineRun
		if err := tx.First(&run, "id = ?", runID).Error; err != nil {
			return fmt.Errorf("failed to find run %s: %w", runID, err)
		}
		if run.Status != models.RunStatusStaged {
			return fmt.Errorf("run %s is %s, not staged", runID, run.Status)
		}

		pointer := models.PublishedRun{
			ID:          models.PublishedRunID,
			RunID:       runID,
			SlateDate:   run.SlateDate,
			PublishedAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"run_id", "slate_date", "published_at"}),
		}).Create(&pointer).Error
		if err != nil {
			return fmt.Errorf("failed to publish run: %w", err)
		}

		return tx.Model(&models.PipelineRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
			"status":      models.RunStatusPublished,
			"finished_at": now,
		}).Error
	})
	if err != nil {
		return err
	}

	if err := r.prune(ctx, runID); err != nil {
		r.log.WithError(err).Warn("Failed to prune old run outputs")
	}
	return nil
}

// MarkFailed records a failed run. Its staged rows, if any, are never promoted
// and are removed by the next prune.
func (r *Repository) MarkFailed(ctx context.Context, runID, stage string, cause error) error {
	now := time.Now().UTC()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := r.db.WithContext(ctx).Model(&models.PipelineRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":      models.RunStatusFailed,
		"stage":       stage,
		"error":       msg,
		"finished_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// CurrentRun returns the published run pointer.
func (r *Repository) CurrentRun(ctx context.Context) (*models.PublishedRun, error) {
	var pointer models.PublishedRun
	err := r.db.WithContext(ctx).First(&pointer, models.PublishedRunID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPublishedRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read published run: %w", err)
	}
	return &pointer, nil
}

// PublishedProjections returns the projection table of the published run.
func (r *Repository) PublishedProjections(ctx context.Context) ([]models.DfsPlayerProjection, *models.PublishedRun, error) {
	pointer, err := r.CurrentRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	var rows []models.DfsPlayerProjection
	err = r.db.WithContext(ctx).Where("run_id = ?", pointer.RunID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read published projections: %w", err)
	}
	return rows, pointer, nil
}

// RecentRuns lists the latest runs in the ledger, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (r *Repository) prune(ctx context.Context, current string) error {
	var keep []string
	err := r.db.WithContext(ctx).Model(&models.PipelineRun{}).
		Where("status = ?", models.RunStatusPublished).
		Order("finished_at DESC").
		Limit(r.retention).
		Pluck("id", &keep).Error
	if err != nil {
		return fmt.Errorf("failed to list retained runs: %w", err)
	}
	keep = append(keep, current)

	var removed int64
	for _, table := range models.OutputTables() {
		name := table.(interface{ TableName() string }).TableName()
		stmt := fmt.Sprintf("DELETE FROM %s WHERE run_id NOT IN ?", pq.QuoteIdentifier(name))
		res := r.db.WithContext(ctx).Exec(stmt, keep)
		if res.Error != nil {
			return fmt.Errorf("failed to prune %s: %w", name, res.Error)
		}
		removed += res.RowsAffected
	}
	if removed > 0 {
		r.log.WithFields(logrus.Fields{"rows": removed, "kept_runs": len(keep)}).Info("Pruned old run outputs")
	}
	return nil
}

func setRunID(runID string, out *models.Outputs) {
	for i := range out.Rotations {
		out.Rotations[i].RunID = runID
	}
	for i := range out.Archetypes {
		out.Archetypes[i].RunID = runID
	}
	for i := range out.Profiles {
		out.Profiles[i].RunID = runID
	}
	for i := range out.Dva {
		out.Dva[i].RunID = runID
	}
	for i := range out.Matchups {
		out.Matchups[i].RunID = runID
	}
	for i := range out.Tiers {
		out.Tiers[i].RunID = runID
	}
	for i := range out.Projections {
		out.Projections[i].RunID = runID
	}
}
