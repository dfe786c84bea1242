package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/stitts-dev/nba-projections/internal/cache"
	"github.com/stitts-dev/nba-projections/internal/minutes"
	"github.com/stitts-dev/nba-projections/internal/pipeline"
	"github.com/stitts-dev/nba-projections/internal/scheduler"
	"github.com/stitts-dev/nba-projections/internal/store"
	"github.com/stitts-dev/nba-projections/pkg/config"
	"github.com/stitts-dev/nba-projections/pkg/database"
	"github.com/stitts-dev/nba-projections/pkg/logger"
)

const usage = `usage: pipeline <command> [flags]

commands:
  run      run the pipeline once for a slate
  serve    run the pipeline on RUN_SCHEDULE until interrupted
  migrate  create or update the database tables
  runs     list recent pipeline runs
  baseline derive the minutes-by-depth table from stored game logs
`

const slateLayout = "2006-01-02"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("projection-pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "run":
		err = runOnce(ctx, cfg, log, args)
	case "serve":
		err = serve(ctx, cfg, log, args)
	case "migrate":
		err = migrate(ctx, cfg, log)
	case "runs":
		err = listRuns(ctx, cfg, args)
	case "baseline":
		err = deriveBaseline(ctx, cfg, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd).Error("Command failed")
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by the commands.
type app struct {
	db       *database.DB
	repo     *store.Repository
	redis    *redis.Client
	pipeline *pipeline.Pipeline
	tuning   config.Tuning
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
}

func connect(cfg *config.Config, log *logrus.Entry) (*database.DB, *store.Repository, error) {
	db, err := database.NewConnectionWithConfig(database.ConnectionConfig{
		DatabaseURL:     cfg.DatabaseURL,
		IsDevelopment:   cfg.IsDevelopment(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		ServiceName:     "projection-pipeline",
	})
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewRepository(db, cfg.PublishedRunRetention, log.WithField("component", "store")), nil
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Entry, tuningPath string) (*app, error) {
	if tuningPath == "" {
		tuningPath = cfg.TuningFile
	}
	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		return nil, err
	}
	if cfg.KMeansSeed != 0 {
		tuning.Archetype.KMeans.Seed = cfg.KMeansSeed
	}

	db, repo, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, repo: repo, tuning: tuning}

	deps := pipeline.Deps{
		Store:  repo,
		Tuning: tuning,
		Log:    log.WithField("component", "pipeline"),
	}
	if client := connectRedis(ctx, cfg, log); client != nil {
		a.redis = client
		deps.Locker = cache.NewRedisLocker(client, cfg.RunLockTTL)
		deps.Publisher = cache.NewProjectionCache(client, log.WithField("component", "cache"), cfg.CacheTTL, cache.BreakerConfig{
			Threshold: cfg.CircuitBreakerThreshold,
			Timeout:   cfg.CircuitBreakerTimeout,
		})
	}
	a.pipeline = pipeline.New(deps)

	log.WithFields(logrus.Fields{
		"tuning_version": tuning.Version,
		"kmeans_seed":    tuning.Archetype.KMeans.Seed,
		"redis":          a.redis != nil,
	}).Info("Pipeline initialized")
	return a, nil
}

// connectRedis returns nil when redis is unreachable; runs then fall back to an
// in-process lock and skip the cache.
func connectRedis(ctx context.Context, cfg *config.Config, log *logrus.Entry) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Invalid REDIS_URL, running without cache")
		return nil
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		client.Close()
		return nil
	}
	return client
}

func runOnce(ctx context.Context, cfg *config.Config, log *logrus.Entry, args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	slateFlag := fs.String("slate", "", "slate date (YYYY-MM-DD), defaults to today in US/Eastern")
	tuningFlag := fs.String("tuning", "", "tuning YAML file, overrides TUNING_FILE")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slate, err := parseSlate(*slateFlag)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log, *tuningFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.pipeline.Run(ctx, slate)
	if err != nil {
		return err
	}
	fmt.Printf("run %s published for %s in %s\n", summary.RunID, summary.SlateDate.Format(slateLayout), summary.Duration.Round(time.Millisecond))
	return nil
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Entry, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	tuningFlag := fs.String("tuning", "", "tuning YAML file, overrides TUNING_FILE")
	immediate := fs.Bool("now", false, "run once at startup before waiting for the schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log, *tuningFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	job := func(ctx context.Context) error {
		slate, _ := parseSlate("")
		_, err := a.pipeline.Run(ctx, slate)
		if errors.Is(err, pipeline.ErrRunInProgress) {
			log.Info("Skipping scheduled run, another run holds the lock")
			return nil
		}
		return err
	}
	sched, err := scheduler.New(cfg.RunSchedule, cfg.RunLockTTL, job, log)
	if err != nil {
		return err
	}
	if *immediate {
		if err := sched.Trigger(ctx); err != nil {
			log.WithError(err).Error("Startup run failed")
		}
	}

	sched.Start()
	<-ctx.Done()
	log.Info("Shutting down")
	sched.Stop()
	return nil
}

func migrate(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	db, repo, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	log.Info("Migrations applied")
	return nil
}

func listRuns(ctx context.Context, cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("runs", pflag.ContinueOnError)
	limit := fs.IntP("limit", "n", 10, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, repo, err := connect(cfg, logger.WithService("projection-pipeline"))
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repo.RecentRuns(ctx, *limit)
	if err != nil {
		return err
	}
	current, err := repo.CurrentRun(ctx)
	if err != nil && !errors.Is(err, store.ErrNoPublishedRun) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSLATE\tSTATUS\tSTAGE\tSTARTED\tERROR")
	for _, r := range runs {
		id := r.ID
		if current != nil && current.RunID == r.ID {
			id += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", id, r.SlateDate.Format(slateLayout), r.Status, r.Stage,
			r.StartedAt.Local().Format(time.DateTime), r.Error)
	}
	return w.Flush()
}

// deriveBaseline prints a minutes-by-depth table in tuning-file form, so a new
// season's table can be reviewed next to the current one before switching.
func deriveBaseline(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	db, repo, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	slate, _ := parseSlate("")
	in, err := repo.LoadInputs(ctx, slate)
	if err != nil {
		return err
	}
	rows := minutes.BoxScoresFromLogs(in.GameLogs, minutes.DepthPositions(in.DepthCharts))
	table, counts := minutes.DeriveBaseline(rows)
	current := minutes.DefaultBaselineMinutes()

	slots := make([]string, 0, len(table))
	for slot := range table {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		pi, di, _ := minutes.SplitSlot(slots[i])
		pj, dj, _ := minutes.SplitSlot(slots[j])
		if pi != pj {
			return pi < pj
		}
		return di < dj
	})

	fmt.Println("minutes:")
	fmt.Println("  baseline:")
	for _, slot := range slots {
		fmt.Printf("    %s: %.2f # n=%d current=%.2f\n", slot, table[slot], counts[slot], current[slot])
	}
	log.WithFields(logrus.Fields{"box_scores": len(rows), "slots": len(slots)}).Info("Derived baseline minutes")
	return nil
}

// parseSlate reads a slate date, defaulting to the current US/Eastern day.
func parseSlate(s string) (time.Time, error) {
	if s == "" {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	slate, err := time.Parse(slateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slate date %q: %w", s, err)
	}
	return slate, nil
}
