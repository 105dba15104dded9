package scraper

import (
	"context"

	"shipsnap/pkg/shipspotting"
	"shipsnap/pkg/tracker"
)

// Discoverer finds photo identifiers for a vessel
type Discoverer interface {
	Discover(ctx context.Context, vesselID string) (*shipspotting.DiscoveryResult, error)
}

// Downloader fetches and persists a vessel's photos.
// The fatal return indicates a backend failure that should abort the run;
// per-item failures come back as messages only.
type Downloader interface {
	DownloadVessel(ctx context.Context, vesselID string, photoIDs []string, details *tracker.VesselDetails) (stored int, itemErrors []string, fatal error)
}

// DedupIndex is the cross-run vessel membership set
type DedupIndex interface {
	Load(ctx context.Context) error
	Contains(vesselID string) bool
	MarkPending(vesselID string)
	Flush(ctx context.Context) error
}
