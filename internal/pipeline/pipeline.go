package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-projections/internal/cache"
	"github.com/stitts-dev/nba-projections/internal/models"
	"github.com/stitts-dev/nba-projections/pkg/config"
	"github.com/stitts-dev/nba-projections/pkg/logger"
)

// ErrRunInProgress is returned when another run holds the pipeline lock.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Store persists inputs and run-scoped outputs.
type Store interface {
	LoadInputs(ctx context.Context, slate time.Time) (*models.Inputs, error)
	BeginRun(ctx context.Context, runID string, slate time.Time) error
	UpdateStage(ctx context.Context, runID, stage string) error
	StageOutputs(ctx context.Context, runID string, out *models.Outputs) error
	Promote(ctx context.Context, runID string) error
	MarkFailed(ctx context.Context, runID, stage string, cause error) error
}

// Locker serializes runs. TryLock returns a nil release func when the lock is
// held elsewhere.
type Locker interface {
	TryLock(ctx context.Context) (func(context.Context) error, error)
}

// Publisher pushes a promoted run to readers outside the database.
type Publisher interface {
	Publish(ctx context.Context, snap cache.Snapshot) error
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) TryLock(ctx context.Context) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, nil
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}

// Deps wires a Pipeline. Publisher may be nil.
type Deps struct {
	Store     Store
	Locker    Locker
	Publisher Publisher
	Tuning    config.Tuning
	Log       *logrus.Entry
}

// Pipeline runs all stages for a slate and publishes the result atomically.
type Pipeline struct {
	store     Store
	locker    Locker
	publisher Publisher
	tuning    config.Tuning
	log       *logrus.Entry
}

func New(deps Deps) *Pipeline {
	locker := deps.Locker
	if locker == nil {
		locker = &LocalLocker{}
	}
	return &Pipeline{
		store:     deps.Store,
		locker:    locker,
		publisher: deps.Publisher,
		tuning:    deps.Tuning,
		log:       deps.Log,
	}
}

// RunSummary describes a completed run.
type RunSummary struct {
	RunID     string
	SlateDate time.Time
	Counts    map[string]int
	Duration  time.Duration
	Published bool // cache publish succeeded
}

// Run executes one full pipeline run. Outputs become visible only when every
// stage succeeds; a failed or cancelled run leaves the previous run published.
func (p *Pipeline) Run(ctx context.Context, slate time.Time) (*RunSummary, error) {
	release, err := p.locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			p.log.WithError(err).Warn("Failed to release run lock")
		}
	}()

	start := time.Now()
	runID := uuid.NewString()
	log := p.log.WithFields(logger.RunFields(runID, slate))

	if err := p.store.BeginRun(ctx, runID, slate); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	log.Info("Pipeline run started")

	current := StageLoad
	fail := func(cause error) error {
		log.WithError(cause).WithField("stage", current).Error("Pipeline run failed")
		if err := p.store.MarkFailed(context.Background(), runID, current, cause); err != nil {
			log.WithError(err).Error("Failed to record run failure")
		}
		return fmt.Errorf("stage %s: %w", current, cause)
	}

	in, err := p.store.LoadInputs(ctx, slate)
	if err != nil {
		return nil, fail(err)
	}

	computer := NewComputer(p.tuning, log)
	st := computer.newState(slate, in)
	for _, s := range computer.stages() {
		current = s.name
		if err := ctx.Err(); err != nil {
			return nil, fail(err)
		}
		if err := p.store.UpdateStage(ctx, runID, s.name); err != nil {
			return nil, fail(err)
		}
		if err := runStage(s, st); err != nil {
			return nil, fail(err)
		}
	}

	current = StageWrite
	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}
	if err := p.store.StageOutputs(ctx, runID, st.result); err != nil {
		return nil, fail(err)
	}

	current = StagePromote
	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}
	if err := p.store.Promote(ctx, runID); err != nil {
		return nil, fail(err)
	}

	summary := &RunSummary{
		RunID:     runID,
		SlateDate: slate,
		Counts:    st.result.Counts(),
		Duration:  time.Since(start),
	}
	summary.Published = p.publish(ctx, log, runID, slate, st.result.Projections)

	log.WithFields(logrus.Fields{
		"duration": summary.Duration.String(),
		"counts":   summary.Counts,
	}).Info("Pipeline run published")
	return summary, nil
}

// publish is best effort; the database is the source of truth.
func (p *Pipeline) publish(ctx context.Context, log *logrus.Entry, runID string, slate time.Time, rows []models.DfsPlayerProjection) bool {
	if p.publisher == nil {
		return false
	}
	err := p.publisher.Publish(ctx, cache.Snapshot{
		RunID:       runID,
		SlateDate:   slate,
		PublishedAt: time.Now().UTC(),
		Projections: rows,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to publish projections to cache")
		return false
	}
	return true
}

func runStage(s stage, st *state) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	s.run(st)
	return nil
}
