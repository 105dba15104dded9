package shipspotting

// TotalUnknown marks a discovery where no total count could be parsed.
const TotalUnknown = -1

// Sort orders supported by the gallery listing.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// altSortOrders are tried when the default sort comes up short.
var altSortOrders = []string{SortOldest, SortPopular}

// DiscoveryResult is the outcome of gallery discovery for one vessel.
//
// TotalReported is the site's self-reported photo count: -1 when unknown,
// 0 when the gallery is confirmed empty. It is a hint only; the site
// under-reports pagination, so it must never be used to assert completeness.
type DiscoveryResult struct {
	// PhotoIDs is deduplicated and truncated to the configured target.
	PhotoIDs      []string
	TotalReported int
}
