package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/shipspotting"
	"shipsnap/pkg/storage"
	"shipsnap/pkg/tracker"
)

// DownloadJob is one photo to fetch and persist
type DownloadJob struct {
	VesselID string
	PhotoID  string
	Details  *tracker.VesselDetails
}

// DownloadResult is the outcome of one job
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// PhotoFetcher downloads binary content through the session layer
type PhotoFetcher interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Metadata is the sidecar record written next to each stored photo.
type Metadata struct {
	VesselID    string                 `json:"vessel_id"`
	PhotoID     string                 `json:"photo_id"`
	SourceURL   string                 `json:"source_url"`
	PageURL     string                 `json:"page_url"`
	RetrievedAt time.Time              `json:"retrieved_at"`
	Vessel      *tracker.VesselDetails `json:"vessel,omitempty"`
}

// WorkerPool fetches photos and writes them with metadata to object storage.
// Per-item failures are reported, never raised; a storage write failure is
// fatal because it means data loss, not a flaky source.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	fetcher      PhotoFetcher
	store        storage.Store
	baseURL      string
	uploadPrefix string
	logger       logger.Logger
}

// NewWorkerPool creates a download worker pool
func NewWorkerPool(
	numWorkers int,
	fetcher PhotoFetcher,
	store storage.Store,
	baseURL string,
	uploadPrefix string,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:   numWorkers,
		jobQueue:     make(chan DownloadJob, numWorkers*2),
		resultQueue:  make(chan DownloadResult, numWorkers),
		ctx:          ctx,
		cancel:       cancel,
		fetcher:      fetcher,
		store:        store,
		baseURL:      baseURL,
		uploadPrefix: uploadPrefix,
		logger:       log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting download pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop drains the queue and shuts the pool down
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("download pool is shutting down")
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob tries each candidate URL for the photo, accepts the first
// image response, and persists payload plus metadata.
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	var data []byte
	var sourceURL string

	for _, candidate := range shipspotting.ImageURLCandidates(wp.baseURL, job.PhotoID) {
		body, contentType, err := wp.fetcher.Download(wp.ctx, candidate)
		if err != nil {
			wp.logger.DebugWithFields("candidate URL failed", map[string]interface{}{
				"worker_id": workerID,
				"photo_id":  job.PhotoID,
				"url":       candidate,
				"error":     err.Error(),
			})
			continue
		}
		if !isImage(contentType) {
			wp.logger.DebugWithFields("candidate URL is not an image", map[string]interface{}{
				"photo_id":     job.PhotoID,
				"url":          candidate,
				"content_type": contentType,
			})
			continue
		}
		data = body
		sourceURL = candidate
		break
	}

	if data == nil {
		result.Error = fmt.Errorf("no candidate URL yielded an image for photo %s", job.PhotoID)
		result.Duration = time.Since(start)
		logger.LogDownload(job.VesselID, job.PhotoID, false, result.Error)
		return result
	}

	if err := wp.persist(job, sourceURL, data); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		logger.LogDownload(job.VesselID, job.PhotoID, false, err)
		return result
	}

	result.Success = true
	result.Size = len(data)
	result.Duration = time.Since(start)
	logger.LogDownload(job.VesselID, job.PhotoID, true, nil)
	return result
}

// persist writes the photo and its metadata sidecar. The keys are derived
// from (vessel, photo), so re-running overwrites instead of duplicating.
func (wp *WorkerPool) persist(job DownloadJob, sourceURL string, data []byte) error {
	photoKey := storage.PhotoKey(wp.uploadPrefix, job.VesselID, job.PhotoID)
	if err := wp.store.Put(wp.ctx, photoKey, data, "image/jpeg"); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("storage write failed for %s: %v", photoKey, err),
		}
	}

	meta := Metadata{
		VesselID:    job.VesselID,
		PhotoID:     job.PhotoID,
		SourceURL:   sourceURL,
		PageURL:     shipspotting.PhotoPageURL(wp.baseURL, job.PhotoID),
		RetrievedAt: time.Now().UTC(),
		Vessel:      job.Details,
	}
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata for photo %s: %w", job.PhotoID, err)
	}

	metaKey := storage.MetadataKey(wp.uploadPrefix, job.VesselID, job.PhotoID)
	if err := wp.store.Put(wp.ctx, metaKey, encoded, "application/json"); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("storage write failed for %s: %v", metaKey, err),
		}
	}
	return nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// DownloadAll runs one vessel's photos through a dedicated pool and waits
// for every job. Returns the stored count and per-item error messages; a
// fatal storage error is returned separately so the caller can abort.
func DownloadAll(
	ctx context.Context,
	fetcher PhotoFetcher,
	store storage.Store,
	baseURL, uploadPrefix string,
	numWorkers int,
	vesselID string,
	photoIDs []string,
	details *tracker.VesselDetails,
) (stored int, itemErrors []string, fatal error) {
	if len(photoIDs) == 0 {
		return 0, nil, nil
	}

	pool := NewWorkerPool(numWorkers, fetcher, store, baseURL, uploadPrefix, nil)
	pool.Start()

	go func() {
		for _, photoID := range photoIDs {
			job := DownloadJob{VesselID: vesselID, PhotoID: photoID, Details: details}
			if err := pool.Submit(job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for result := range pool.Results() {
		select {
		case <-ctx.Done():
			// Unblock the workers and the submit goroutine, then drain
			// the remaining results so Stop can close the queue.
			pool.cancel()
			go func() {
				for range pool.Results() {
				}
			}()
			return stored, itemErrors, ctx.Err()
		default:
		}

		if result.Success {
			stored++
			continue
		}
		if result.Error != nil {
			if errs.IsFatal(result.Error) && fatal == nil {
				fatal = result.Error
			}
			itemErrors = append(itemErrors, result.Error.Error())
		}
	}

	return stored, itemErrors, fatal
}
