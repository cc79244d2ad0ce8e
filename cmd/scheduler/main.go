package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/feedwatch/internal/aggregate"
	"github.com/feedwatch/internal/ai"
	"github.com/feedwatch/internal/archive"
	"github.com/feedwatch/internal/config"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/monitor"
	"github.com/feedwatch/internal/report"
	"github.com/feedwatch/internal/schedule"
	"github.com/feedwatch/internal/source"
	"github.com/feedwatch/internal/source/rss"
	"github.com/feedwatch/internal/source/video"
	"github.com/feedwatch/internal/storage"
	"github.com/feedwatch/internal/storage/sqlite"
	"github.com/feedwatch/internal/tracker"
	"github.com/feedwatch/pkg/logger"
	"github.com/feedwatch/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "feedwatch-scheduler",
		Short: "Background scheduler for feedwatch",
		Long: `Runs scheduled monitoring, digest generation and cleanup tasks.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting feedwatch scheduler")

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	go startHealthServer()

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Initialize source manager
	sourceManager := source.NewManager()
	if cfg.Sources.Video.Enabled {
		for _, src := range video.NewMultiple(cfg.Sources.Video, limiter, log) {
			sourceManager.Register(src)
		}
	}
	if cfg.Sources.RSS.Enabled {
		for _, src := range rss.NewMultiple(cfg.Sources.RSS, log) {
			sourceManager.Register(src)
		}
	}

	// Restore the seen-ID state from the previous run
	tr := tracker.Load(cfg.Monitor.StateFile, cfg.Monitor.SeenCap, log)
	mon := monitor.New(sourceManager, tr, cfg.Monitor.CheckDelay, log)

	// Report generation, with AI summaries when enabled
	var summarizer report.Summarizer
	if cfg.Anthropic.Enabled {
		summarizer = ai.NewClient(cfg.Anthropic, limiter, log)
	}

	store, err := archive.NewStore(cfg.Archive.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The monitor job follows the configured scheduler mode; reports and
	// cleanup stay on cron since they are tied to times of day.
	monitorSched, err := schedule.New(cfg.Scheduler.Mode, cfg.Scheduler.MonitorCron, cfg.Scheduler.Interval, log)
	if err != nil {
		return fmt.Errorf("failed to create monitor scheduler: %w", err)
	}
	monitorSched.Add("monitor", func(ctx context.Context) {
		runMonitorPass(ctx, mon, tr)
	})

	reportSched, err := schedule.NewCron(cfg.Scheduler.ReportCron, log)
	if err != nil {
		return fmt.Errorf("failed to create report scheduler: %w", err)
	}
	reportSched.Add("report", func(ctx context.Context) {
		runReportJob(ctx, summarizer, store)
	})

	cleanupSched, err := schedule.NewCron(cfg.Scheduler.CleanupCron, log)
	if err != nil {
		return fmt.Errorf("failed to create cleanup scheduler: %w", err)
	}
	cleanupSched.Add("cleanup", func(ctx context.Context) {
		runCleanupJob(ctx, store)
	})

	monitorSched.Start(ctx)
	reportSched.Start(ctx)
	cleanupSched.Start(ctx)
	log.Info().Msg("Scheduler started")

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler")
	monitorSched.Stop()
	reportSched.Stop()
	cleanupSched.Stop()

	return nil
}

// runMonitorPass checks every source and persists what it found
func runMonitorPass(ctx context.Context, mon *monitor.Monitor, tr *tracker.Tracker) {
	result, err := mon.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled monitoring pass failed")
		return
	}

	var saved int
	for _, batch := range result.Batches {
		n, err := repo.SaveItems(ctx, batch.Items)
		if err != nil {
			log.Warn().Err(err).Str("source", batch.SourceName).Msg("Some items failed to save")
		}
		saved += n
	}
	if err := tr.Save(cfg.Monitor.StateFile); err != nil {
		log.Error().Err(err).Msg("Failed to save monitor state")
	}

	log.Info().
		Int("new_items", result.NewItems).
		Int("saved", saved).
		Int("errors", len(result.Errors)).
		Msg("Scheduled monitoring pass completed")
}

// runReportJob builds today's digest from the lookback window and archives it
func runReportJob(ctx context.Context, summarizer report.Summarizer, store *archive.Store) {
	since := time.Now().Add(-cfg.Report.Lookback)
	items, err := repo.ListItems(ctx, storage.ItemFilter{
		Since:     &since,
		OrderBy:   "published",
		OrderDesc: true,
		Limit:     10000,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to load items for report")
		return
	}

	generator := report.NewGenerator(aggregate.Options{
		Since:               since,
		MinImportance:       cfg.Report.MinImportance,
		MaxItemsPerCategory: cfg.Report.MaxItemsPerCategory,
		Title:               cfg.Report.Title,
	}, summarizer, log)

	rep := generator.Generate(ctx, batchBySource(items))

	meta, err := store.Archive(rep)
	if err != nil {
		log.Error().Err(err).Msg("Failed to archive report")
		return
	}

	log.Info().
		Str("archive_id", meta.ArchiveID).
		Int("total_items", rep.TotalItems).
		Msg("Scheduled report archived")
}

// runCleanupJob enforces the retention windows on archive and corpus
func runCleanupJob(ctx context.Context, store *archive.Store) {
	removed, err := store.CleanupOlderThan(cfg.Archive.RetentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Archive cleanup failed")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Old archives removed")
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.Archive.RetentionDays)
	rows, err := repo.DeleteItemsOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Corpus cleanup failed")
	} else if rows > 0 {
		log.Info().Int64("removed", rows).Msg("Old items removed from corpus")
	}
}

// batchBySource regroups persisted items into per-source batches
func batchBySource(items []*models.ContentItem) []models.SourceBatch {
	grouped := make(map[models.Source][]*models.ContentItem)
	var order []models.Source
	for _, item := range items {
		if _, ok := grouped[item.Source]; !ok {
			order = append(order, item.Source)
		}
		grouped[item.Source] = append(grouped[item.Source], item)
	}

	batches := make([]models.SourceBatch, 0, len(order))
	for _, src := range order {
		batches = append(batches, models.SourceBatch{
			SourceName: string(src),
			Source:     src,
			Items:      grouped[src],
		})
	}
	return batches
}

// startHealthServer starts a simple HTTP server for liveness checks
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("feedwatch scheduler"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
