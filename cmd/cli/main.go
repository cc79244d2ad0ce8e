package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/feedwatch/internal/aggregate"
	"github.com/feedwatch/internal/ai"
	"github.com/feedwatch/internal/archive"
	"github.com/feedwatch/internal/config"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/monitor"
	"github.com/feedwatch/internal/report"
	"github.com/feedwatch/internal/search"
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
		Use:   "feedwatch",
		Short: "Content feed monitor and daily digest generator",
		Long: `Watches video uploads and RSS feeds for new content, classifies and
scores what it finds, and builds searchable daily digests.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
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

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// buildSourceManager registers every enabled source
func buildSourceManager(limiter *ratelimit.MultiLimiter) *source.Manager {
	manager := source.NewManager()

	if cfg.Sources.Video.Enabled {
		for _, src := range video.NewMultiple(cfg.Sources.Video, limiter, log) {
			manager.Register(src)
		}
	}
	if cfg.Sources.RSS.Enabled {
		for _, src := range rss.NewMultiple(cfg.Sources.RSS, log) {
			manager.Register(src)
		}
	}

	return manager
}

// newGenerator wires the report generator, with AI summaries when enabled
func newGenerator(limiter *ratelimit.MultiLimiter) *report.Generator {
	opts := aggregate.Options{
		Since:               time.Now().Add(-cfg.Report.Lookback),
		MinImportance:       cfg.Report.MinImportance,
		MaxItemsPerCategory: cfg.Report.MaxItemsPerCategory,
		Title:               cfg.Report.Title,
	}

	var summarizer report.Summarizer
	if cfg.Anthropic.Enabled {
		summarizer = ai.NewClient(cfg.Anthropic, limiter, log)
	}

	return report.NewGenerator(opts, summarizer, log)
}

// loadIndex fills a search engine from the persisted corpus
func loadIndex(ctx context.Context) (*search.Engine, error) {
	items, err := repo.ListItems(ctx, storage.ItemFilter{
		OrderBy:   "published",
		OrderDesc: true,
		Limit:     10000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	engine := search.NewEngine(log)
	engine.Index(items)
	return engine, nil
}

// ============ CHECK COMMAND ============

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring pass over all sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			manager := buildSourceManager(limiter)
			tr := tracker.Load(cfg.Monitor.StateFile, cfg.Monitor.SeenCap, log)

			mon := monitor.New(manager, tr, cfg.Monitor.CheckDelay, log)
			result, err := mon.Run(ctx)
			if err != nil {
				return err
			}

			// Persist the new items and the seen-ID state
			var saved int
			for _, batch := range result.Batches {
				n, err := repo.SaveItems(ctx, batch.Items)
				if err != nil {
					log.Warn().Err(err).Str("source", batch.SourceName).Msg("Some items failed to save")
				}
				saved += n
			}
			if err := tr.Save(cfg.Monitor.StateFile); err != nil {
				return fmt.Errorf("failed to save monitor state: %w", err)
			}

			fmt.Printf("\n=== Check Results ===\n")
			fmt.Printf("Sources Checked: %d\n", result.SourcesChecked)
			fmt.Printf("Records Fetched: %d\n", result.RecordsFetched)
			fmt.Printf("New Items:       %d\n", result.NewItems)
			fmt.Printf("Items Saved:     %d\n", saved)
			fmt.Printf("Duration:        %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	return cmd
}

// ============ REPORT COMMAND ============

func reportCmd() *cobra.Command {
	var asJSON bool
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate today's digest from recently collected items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			since := time.Now().Add(-cfg.Report.Lookback)
			items, err := repo.ListItems(ctx, storage.ItemFilter{
				Since:     &since,
				OrderBy:   "published",
				OrderDesc: true,
				Limit:     10000,
			})
			if err != nil {
				return fmt.Errorf("failed to load items: %w", err)
			}

			limiter := ratelimit.NewDefaultLimiter()
			generator := newGenerator(limiter)
			rep := generator.Generate(ctx, batchBySource(items))

			if asJSON {
				data, err := report.RenderJSON(rep)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				fmt.Print(report.RenderMarkdown(rep))
			}

			if !noArchive {
				store, err := archive.NewStore(cfg.Archive.Dir, log)
				if err != nil {
					return fmt.Errorf("failed to open archive: %w", err)
				}
				meta, err := store.Archive(rep)
				if err != nil {
					return fmt.Errorf("failed to archive report: %w", err)
				}
				fmt.Printf("\nArchived as %s (%d bytes)\n", meta.ArchiveID, meta.FileSize)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip writing the report to the archive")

	return cmd
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

// ============ SEARCH COMMAND ============

func searchCmd() *cobra.Command {
	var (
		fields        []string
		categories    []string
		sources       []string
		minImportance float64
		maxImportance float64
		startDate     string
		endDate       string
		sortBy        string
		sortOrder     string
		limit         int
		offset        int
		caseSensitive bool
	)

	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search the collected content",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			query := search.DefaultQuery()
			query.Keywords = args
			query.CaseSensitive = caseSensitive
			query.SortBy = sortBy
			query.SortOrder = sortOrder
			query.Limit = limit
			query.Offset = offset
			if len(fields) > 0 {
				query.SearchIn = fields
			}
			for _, c := range categories {
				query.Categories = append(query.Categories, models.Category(c))
			}
			for _, s := range sources {
				query.Sources = append(query.Sources, models.Source(s))
			}
			if cmd.Flags().Changed("min-importance") {
				query.MinImportance = &minImportance
			}
			if cmd.Flags().Changed("max-importance") {
				query.MaxImportance = &maxImportance
			}
			if startDate != "" {
				t, err := time.Parse("2006-01-02", startDate)
				if err != nil {
					return fmt.Errorf("invalid start date %q, use YYYY-MM-DD", startDate)
				}
				query.StartDate = &t
			}
			if endDate != "" {
				t, err := time.Parse("2006-01-02", endDate)
				if err != nil {
					return fmt.Errorf("invalid end date %q, use YYYY-MM-DD", endDate)
				}
				// Include the whole end day
				t = t.Add(24*time.Hour - time.Nanosecond)
				query.EndDate = &t
			}

			engine, err := loadIndex(ctx)
			if err != nil {
				return err
			}

			results, err := engine.Search(query)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Results (%d) ===\n\n", len(results))
			for _, r := range results {
				fmt.Printf("%.2f | [%s/%s] %s\n", r.RelevanceScore, r.Item.Source, r.Item.Category, r.Item.Title)
				fmt.Printf("       %s\n", r.Item.URL)
				if r.Item.Author != "" {
					fmt.Printf("       Author: %s\n", r.Item.Author)
				}
				if r.Item.Published != nil {
					fmt.Printf("       Published: %s\n", r.Item.Published.Format(time.RFC1123))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "in", nil, "Fields to search: title, summary, author")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Filter by category")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Filter by source")
	cmd.Flags().Float64Var(&minImportance, "min-importance", 0, "Minimum importance score")
	cmd.Flags().Float64Var(&maxImportance, "max-importance", 1, "Maximum importance score")
	cmd.Flags().StringVar(&startDate, "start", "", "Earliest publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Latest publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sortBy, "sort", search.SortByRelevance, "Sort key: relevance, date, importance")
	cmd.Flags().StringVar(&sortOrder, "order", search.OrderDesc, "Sort order: asc, desc")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Results to skip")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match keywords case-sensitively")

	return cmd
}

// ============ ARCHIVE COMMANDS ============

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived reports",
	}

	cmd.AddCommand(archiveListCmd())
	cmd.AddCommand(archiveShowCmd())
	cmd.AddCommand(archiveDeleteCmd())
	cmd.AddCommand(archiveCleanupCmd())
	return cmd
}

func openArchive() (*archive.Store, error) {
	store, err := archive.NewStore(cfg.Archive.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return store, nil
}

func archiveListCmd() *cobra.Command {
	var startDate string
	var endDate string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}

			var start, end *time.Time
			if startDate != "" {
				t, err := time.Parse("2006-01-02", startDate)
				if err != nil {
					return fmt.Errorf("invalid start date %q, use YYYY-MM-DD", startDate)
				}
				start = &t
			}
			if endDate != "" {
				t, err := time.Parse("2006-01-02", endDate)
				if err != nil {
					return fmt.Errorf("invalid end date %q, use YYYY-MM-DD", endDate)
				}
				end = &t
			}

			archives := store.List(start, end, limit)
			fmt.Printf("\n=== Archived Reports (%d) ===\n\n", len(archives))
			for _, meta := range archives {
				fmt.Printf("[%s] %s | %d items | %d bytes\n",
					meta.ArchiveID,
					meta.ReportDate.Format("2006-01-02"),
					meta.TotalItems,
					meta.FileSize)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Earliest report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Latest report date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum archives to show (0 = all)")

	return cmd
}

func archiveShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [archive-id]",
		Short: "Print one archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}

			rep, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if rep == nil {
				return fmt.Errorf("archive %q not found", args[0])
			}

			if asJSON {
				data, err := report.RenderJSON(rep)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(report.RenderMarkdown(rep))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	return cmd
}

func archiveDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [archive-id]",
		Short: "Delete one archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}

			deleted, err := store.Delete(args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Printf("Archive %s was not present\n", args[0])
				return nil
			}
			fmt.Printf("Archive %s deleted\n", args[0])
			return nil
		},
	}
}

func archiveCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete archives older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}

			if days <= 0 {
				days = cfg.Archive.RetentionDays
			}

			removed, err := store.CleanupOlderThan(days)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d archives older than %d days\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention window in days (default from config)")
	return cmd
}

// ============ STATS COMMAND ============

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			engine, err := loadIndex(ctx)
			if err != nil {
				return err
			}

			stats := engine.Statistics()

			fmt.Printf("\n=== Corpus Statistics ===\n\n")
			fmt.Printf("Total Items: %d\n", stats.TotalItems)

			if len(stats.BySource) > 0 {
				fmt.Printf("\nBy Source:\n")
				for _, src := range []models.Source{models.SourceVideo, models.SourceRSS, models.SourceOther} {
					if n, ok := stats.BySource[src]; ok {
						fmt.Printf("  %-8s %d\n", src, n)
					}
				}
			}

			if len(stats.ByCategory) > 0 {
				fmt.Printf("\nBy Category:\n")
				for _, cat := range models.Categories {
					if n, ok := stats.ByCategory[cat]; ok {
						fmt.Printf("  %-14s %d\n", cat, n)
					}
				}
			}

			if stats.DateRange != nil {
				fmt.Printf("\nDate Range: %s to %s\n",
					stats.DateRange.Earliest.Format("2006-01-02"),
					stats.DateRange.Latest.Format("2006-01-02"))
			}

			return nil
		},
	}
}
