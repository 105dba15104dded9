package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"shipsnap/pkg/config"
	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/storage"
	"shipsnap/pkg/tracker"
)

// RunSummary aggregates one full run across all vessels.
type RunSummary struct {
	StartedAt        time.Time      `json:"started_at"`
	Elapsed          time.Duration  `json:"elapsed"`
	TotalVessels     int            `json:"total_vessels"`
	SkippedVessels   int            `json:"skipped_vessels"`
	TotalItemsStored int            `json:"total_items_stored"`
	FailedVessels    int            `json:"failed_vessels"`
	Results          []ScrapeResult `json:"results"`
}

// Engine drives all vessels of a run through discovery and download,
// in fixed-size batches with bounded per-batch concurrency.
type Engine struct {
	cfg     *config.Config
	source  tracker.Source
	index   DedupIndex
	store   storage.Store
	scraper *Scraper
	log     logger.Logger
}

// NewEngine creates the batch orchestrator
func NewEngine(cfg *config.Config, source tracker.Source, idx DedupIndex, store storage.Store, scr *Scraper, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		cfg:     cfg,
		source:  source,
		index:   idx,
		store:   store,
		scraper: scr,
		log:     log,
	}
}

// Run executes one full scrape. Preflight failures (storage unreachable)
// return a nil summary; once any vessel has been scheduled a summary is
// always produced, paired with an error if the run aborted on a fatal
// backend failure.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	if err := e.store.Ping(ctx); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("storage backend unreachable: %v", err),
		}
	}
	if err := e.index.Load(ctx); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("could not load dedup index: %v", err),
		}
	}

	ids, details, err := e.source.Vessels(ctx)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("could not load vessel list: %v", err),
		}
	}

	summary := &RunSummary{StartedAt: start.UTC()}

	var pending []string
	for _, id := range ids {
		if e.index.Contains(id) {
			summary.SkippedVessels++
			continue
		}
		pending = append(pending, id)
	}

	e.log.InfoWithFields("run starting", map[string]interface{}{
		"vessels": len(pending),
		"skipped": summary.SkippedVessels,
	})

	var fatal error
	batchSize := e.cfg.Batch.Size
	if batchSize < 1 {
		batchSize = len(pending)
	}

	for offset := 0; offset < len(pending) && fatal == nil; offset += batchSize {
		end := offset + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[offset:end]

		results, batchFatal := e.runBatch(ctx, batch, details)
		summary.Results = append(summary.Results, results...)
		if batchFatal != nil {
			fatal = batchFatal
		}
	}

	for _, res := range summary.Results {
		summary.TotalVessels++
		summary.TotalItemsStored += res.Stored
		if res.Failed() {
			summary.FailedVessels++
		} else {
			e.index.MarkPending(res.VesselID)
		}
	}

	if err := e.index.Flush(ctx); err != nil {
		e.log.WithError(err).Error("failed to flush dedup index")
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	summary.Elapsed = time.Since(start)
	e.persistSummary(ctx, summary)

	e.log.InfoWithFields("run complete", map[string]interface{}{
		"total_vessels":      summary.TotalVessels,
		"total_items_stored": summary.TotalItemsStored,
		"failed_vessels":     summary.FailedVessels,
		"skipped_vessels":    summary.SkippedVessels,
		"elapsed":            summary.Elapsed.String(),
	})

	return summary, fatal
}

// runBatch scrapes one batch with bounded vessel concurrency. The first
// fatal error stops further scheduling within the batch; vessels already in
// flight finish and report.
func (e *Engine) runBatch(ctx context.Context, batch []string, details map[string]tracker.VesselDetails) ([]ScrapeResult, error) {
	concurrency := e.cfg.Batch.VesselConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	var mu sync.Mutex
	var results []ScrapeResult
	var fatal error
	var wg sync.WaitGroup

	for _, vesselID := range batch {
		mu.Lock()
		abort := fatal != nil
		mu.Unlock()
		if abort {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(vesselID string) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					e.log.ErrorWithFields("vessel task panicked", map[string]interface{}{
						"vessel_id": vesselID,
						"panic":     fmt.Sprint(r),
					})
					mu.Lock()
					results = append(results, ScrapeResult{
						VesselID: vesselID,
						Errors:   []string{fmt.Sprintf("panic: %v", r)},
					})
					mu.Unlock()
				}
			}()

			var vd *tracker.VesselDetails
			if d, ok := details[vesselID]; ok {
				vd = &d
			}

			res, err := e.scraper.ScrapeVessel(ctx, vesselID, vd)

			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				results = append(results, *res)
			}
			if err != nil && fatal == nil {
				fatal = err
			}
		}(vesselID)
	}

	wg.Wait()
	return results, fatal
}

// persistSummary writes the run summary next to the photos. Best effort: a
// summary that cannot be stored is still returned to the caller.
func (e *Engine) persistSummary(ctx context.Context, summary *RunSummary) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		e.log.WithError(err).Warn("failed to encode run summary")
		return
	}
	key := fmt.Sprintf("runs/%s.json", summary.StartedAt.Format("2006-01-02T15-04-05Z"))
	if err := e.store.Put(ctx, key, data, "application/json"); err != nil {
		e.log.WithError(err).Warn("failed to persist run summary")
	}
}
