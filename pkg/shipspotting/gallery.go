package shipspotting

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"shipsnap/pkg/config"
	"shipsnap/pkg/logger"
)

// PageGetter fetches one URL through the resilient session layer.
type PageGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Finder discovers photo identifiers for vessels by paging through the
// site's gallery listing across sort orders.
type Finder struct {
	client   PageGetter
	baseURL  string
	cfg      *config.DiscoveryConfig
	waveSize int
	log      logger.Logger
}

// NewFinder creates a gallery discovery finder. waveSize is how many page
// fetches are issued per wave; the session layer's semaphore still bounds
// how many actually run at once.
func NewFinder(client PageGetter, baseURL string, cfg *config.DiscoveryConfig, waveSize int, log logger.Logger) *Finder {
	if log == nil {
		log = logger.GetLogger()
	}
	if waveSize < 1 {
		waveSize = 4
	}
	return &Finder{client: client, baseURL: baseURL, cfg: cfg, waveSize: waveSize, log: log}
}

// Discover returns up to the configured target of photo identifiers for one
// vessel, together with the best total reported by the site.
func (f *Finder) Discover(ctx context.Context, vesselID string) (*DiscoveryResult, error) {
	collected := make(map[string]bool)

	bestTotal, err := f.searchSort(ctx, vesselID, SortNewest, f.cfg.MaxGalleryPages, collected)
	if err != nil {
		return nil, err
	}

	if len(collected) == 0 {
		return &DiscoveryResult{PhotoIDs: nil, TotalReported: 0}, nil
	}

	// Alternate sorts surface photos the default sort's pagination hides.
	// Only worth the requests when the default sort came up short.
	if f.shortOfTarget(len(collected), bestTotal) {
		for _, order := range altSortOrders {
			total, err := f.searchSort(ctx, vesselID, order, f.cfg.AltSortMaxPages, collected)
			if err != nil {
				return nil, err
			}
			if total > 0 && total > bestTotal {
				bestTotal = total
			}
			if !f.shortOfTarget(len(collected), bestTotal) {
				break
			}
		}
	}

	ids := make([]string, 0, len(collected))
	for id := range collected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > f.cfg.TargetPhotosPerVessel {
		ids = ids[:f.cfg.TargetPhotosPerVessel]
	}

	if bestTotal == TotalUnknown {
		bestTotal = len(ids)
	}

	f.log.InfoWithFields("discovery complete", map[string]interface{}{
		"vessel_id":      vesselID,
		"photos":         len(ids),
		"total_reported": bestTotal,
	})

	return &DiscoveryResult{PhotoIDs: ids, TotalReported: bestTotal}, nil
}

// shortOfTarget reports whether more photos are worth chasing given what the
// site claims exists.
func (f *Finder) shortOfTarget(have, total int) bool {
	want := f.cfg.TargetPhotosPerVessel
	if total >= 0 && total < want {
		want = total
	}
	return have < want
}

// searchSort pages through one sort order, unioning identifiers into
// collected. Returns the best total reported by any page of this sort, or
// TotalUnknown.
func (f *Finder) searchSort(ctx context.Context, vesselID, sortBy string, maxPages int, collected map[string]bool) (int, error) {
	page1, err := f.client.Get(ctx, GalleryURL(f.baseURL, vesselID, sortBy, 1))
	if err != nil {
		// A failed first page means this sort contributes nothing, not
		// that the vessel has no photos.
		f.log.WithError(err).WarnWithFields("gallery page fetch failed", map[string]interface{}{
			"vessel_id": vesselID,
			"sort":      sortBy,
			"page":      1,
		})
		return TotalUnknown, nil
	}

	ids := ExtractPhotoIDs(page1)
	total := ExtractTotalCount(page1)

	if len(ids) == 0 {
		if total == TotalUnknown {
			total = 0
		}
		return total, nil
	}

	for id := range ids {
		collected[id] = true
	}

	perPage := len(ids)
	if f.cfg.PhotosPerPage > 0 && perPage > f.cfg.PhotosPerPage {
		perPage = f.cfg.PhotosPerPage
	}

	pagesNeeded := f.pagesNeeded(perPage, len(ids), total, maxPages)
	if pagesNeeded <= 1 {
		return total, nil
	}

	// Remaining pages are fetched in waves. A wave runs to completion even
	// when the target is met mid-wave; meeting the target only stops the
	// next wave from being scheduled.
	var mu sync.Mutex

	for start := 2; start <= pagesNeeded; start += f.waveSize {
		mu.Lock()
		met := !f.shortOfTarget(len(collected), total)
		mu.Unlock()
		if met {
			break
		}

		end := start + f.waveSize - 1
		if end > pagesNeeded {
			end = pagesNeeded
		}

		g, gctx := errgroup.WithContext(ctx)
		for page := start; page <= end; page++ {
			page := page
			g.Go(func() error {
				body, err := f.client.Get(gctx, GalleryURL(f.baseURL, vesselID, sortBy, page))
				if err != nil {
					f.log.WithError(err).WarnWithFields("gallery page fetch failed", map[string]interface{}{
						"vessel_id": vesselID,
						"sort":      sortBy,
						"page":      page,
					})
					return nil
				}
				pageIDs := ExtractPhotoIDs(body)
				pageTotal := ExtractTotalCount(body)

				mu.Lock()
				for id := range pageIDs {
					collected[id] = true
				}
				if pageTotal > total {
					total = pageTotal
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return total, err
		}
	}

	return total, nil
}

// pagesNeeded decides how far to page. A short first page means no more
// pages; a known total bounds the work; a full page with no total is an
// assumed-deep gallery, capped by maxPages.
func (f *Finder) pagesNeeded(perPage, firstPageCount, total, maxPages int) int {
	if f.cfg.PhotosPerPage > 0 && firstPageCount < f.cfg.PhotosPerPage {
		return 1
	}
	if total == TotalUnknown {
		return maxPages
	}

	want := f.cfg.TargetPhotosPerVessel
	if total < want {
		want = total
	}
	pages := (want + perPage - 1) / perPage
	if pages > maxPages {
		pages = maxPages
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}
