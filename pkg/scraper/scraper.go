package scraper

import (
	"context"
	"time"

	"shipsnap/internal/downloader"
	"shipsnap/pkg/config"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/storage"
	"shipsnap/pkg/tracker"
)

// ScrapeResult is the per-vessel outcome of one run.
type ScrapeResult struct {
	VesselID       string        `json:"vessel_id"`
	Found          int           `json:"found"`
	Stored         int           `json:"stored"`
	TotalAvailable int           `json:"total_available"`
	Elapsed        time.Duration `json:"elapsed"`
	Errors         []string      `json:"errors,omitempty"`
}

// Failed reports whether the vessel produced nothing this run
func (r *ScrapeResult) Failed() bool {
	return r.Stored == 0
}

// Scraper runs discovery and download for single vessels.
type Scraper struct {
	discoverer Discoverer
	downloader Downloader
	log        logger.Logger
}

// New creates a vessel scraper
func New(discoverer Discoverer, dl Downloader, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{discoverer: discoverer, downloader: dl, log: log}
}

// ScrapeVessel discovers and stores photos for one vessel. Discovery and
// per-item failures land in the result; only a fatal backend error is
// returned as an error.
func (s *Scraper) ScrapeVessel(ctx context.Context, vesselID string, details *tracker.VesselDetails) (*ScrapeResult, error) {
	start := time.Now()
	result := &ScrapeResult{VesselID: vesselID}

	discovery, err := s.discoverer.Discover(ctx, vesselID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Elapsed = time.Since(start)
		return result, nil
	}

	result.Found = len(discovery.PhotoIDs)
	result.TotalAvailable = discovery.TotalReported

	if result.Found == 0 {
		s.log.InfoWithFields("no photos for vessel", map[string]interface{}{
			"vessel_id": vesselID,
		})
		result.Elapsed = time.Since(start)
		return result, nil
	}

	stored, itemErrors, fatal := s.downloader.DownloadVessel(ctx, vesselID, discovery.PhotoIDs, details)
	result.Stored = stored
	result.Errors = append(result.Errors, itemErrors...)
	result.Elapsed = time.Since(start)

	logger.LogScrapeProgress(vesselID, result.Stored, result.Found)

	if fatal != nil {
		return result, fatal
	}
	return result, nil
}

// PoolDownloader adapts the download worker pool to the Downloader port.
type PoolDownloader struct {
	fetcher      downloader.PhotoFetcher
	store        storage.Store
	baseURL      string
	uploadPrefix string
	numWorkers   int
}

// NewPoolDownloader creates the production Downloader
func NewPoolDownloader(fetcher downloader.PhotoFetcher, store storage.Store, siteCfg *config.SiteConfig, storageCfg *config.StorageConfig, dlCfg *config.DownloadConfig) *PoolDownloader {
	return &PoolDownloader{
		fetcher:      fetcher,
		store:        store,
		baseURL:      siteCfg.BaseURL,
		uploadPrefix: storageCfg.UploadPrefix,
		numWorkers:   dlCfg.ConcurrentDownloads,
	}
}

func (p *PoolDownloader) DownloadVessel(ctx context.Context, vesselID string, photoIDs []string, details *tracker.VesselDetails) (int, []string, error) {
	return downloader.DownloadAll(ctx, p.fetcher, p.store, p.baseURL, p.uploadPrefix, p.numWorkers, vesselID, photoIDs, details)
}
