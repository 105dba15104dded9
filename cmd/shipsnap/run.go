package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shipsnap/pkg/config"
	"shipsnap/pkg/index"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/scraper"
	"shipsnap/pkg/shipspotting"
	"shipsnap/pkg/storage"
	"shipsnap/pkg/tracker"
)

var (
	// Run command flags
	trackerMode  string
	targetPhotos int
	concurrent   int
	batchSize    int
	bucket       string
	every        time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape photos for all tracked vessels",
	Long: `Run one full scrape: load the vessel list, skip vessels already in the
dedup index, discover and download photos for the rest, and flush the index.

With --every, the scrape repeats on the given interval until interrupted.`,
	Example: `  # One-off run with the configured vessel source
  shipsnap run

  # Use the static vessel list and a smaller photo target
  shipsnap run --mode static --target-photos 10

  # Scrape every six hours
  shipsnap run --every 6h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&trackerMode, "mode", "", "vessel source: api or static")
	runCmd.Flags().IntVar(&targetPhotos, "target-photos", 0, "photos to collect per vessel")
	runCmd.Flags().IntVar(&concurrent, "concurrent", 0, "concurrent photo downloads")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "vessels per batch")
	runCmd.Flags().StringVar(&bucket, "bucket", "", "storage bucket name")
	runCmd.Flags().DurationVar(&every, "every", 0, "repeat the run on this interval (e.g. 6h)")
}

func runScrape() error {
	flags := make(map[string]interface{})
	if trackerMode != "" {
		flags["mode"] = trackerMode
	}
	if targetPhotos > 0 {
		flags["target-photos"] = targetPhotos
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if batchSize > 0 {
		flags["batch-size"] = batchSize
	}
	if bucket != "" {
		flags["bucket"] = bucket
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	log := logger.GetLogger()
	log.WithField("version", version).Info("shipsnap starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if every <= 0 {
		return executeRun(ctx, cfg, log)
	}

	for {
		if err := executeRun(ctx, cfg, log); err != nil {
			log.WithError(err).Error("run failed")
		}

		log.InfoWithFields("sleeping until next run", map[string]interface{}{
			"interval": every.String(),
		})
		select {
		case <-ctx.Done():
			log.Info("interrupted, shutting down")
			return nil
		case <-time.After(every):
		}
	}
}

// executeRun wires the components for one scrape and runs it.
func executeRun(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := storage.NewMinIOStore(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	source, err := tracker.NewSource(&cfg.Tracker, log)
	if err != nil {
		return err
	}

	pool, err := shipspotting.NewSessionPool(ctx, &cfg.Site, &cfg.Download, &cfg.Retry, log)
	if err != nil {
		return fmt.Errorf("session pool initialization failed: %w", err)
	}

	finder := shipspotting.NewFinder(pool, cfg.Site.BaseURL, &cfg.Discovery, cfg.Site.GalleryConcurrency, log)
	dl := scraper.NewPoolDownloader(pool, store, &cfg.Site, &cfg.Storage, &cfg.Download)
	idx := index.NewManager(store, cfg.Storage.IndexKey, log)
	engine := scraper.NewEngine(cfg, source, idx, store, scraper.New(finder, dl, log), log)

	summary, err := engine.Run(ctx)
	if err != nil {
		if summary != nil {
			printSummary(summary)
		}
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *scraper.RunSummary) {
	fmt.Printf("vessels: %d  stored: %d  failed: %d  skipped: %d  elapsed: %s\n",
		s.TotalVessels, s.TotalItemsStored, s.FailedVessels, s.SkippedVessels, s.Elapsed.Round(time.Second))
}
