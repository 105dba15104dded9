package shipspotting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipsnap/pkg/config"
	"shipsnap/pkg/logger"
)

// fakeGallery serves canned gallery pages keyed by (sort, page).
type fakeGallery struct {
	mu    sync.Mutex
	pages map[string][]byte
	fail  map[string]bool
	calls []string
}

func newFakeGallery() *fakeGallery {
	return &fakeGallery{
		pages: make(map[string][]byte),
		fail:  make(map[string]bool),
	}
}

func pageKey(sortBy string, page int) string {
	return fmt.Sprintf("%s:%d", sortBy, page)
}

func (f *fakeGallery) set(sortBy string, page int, ids []string, total int) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	if total >= 0 {
		fmt.Fprintf(&sb, "<p>%d photos found</p>", total)
	}
	for _, id := range ids {
		fmt.Fprintf(&sb, `<a href="/photos/%s">photo</a>`, id)
	}
	sb.WriteString("</body></html>")
	f.pages[pageKey(sortBy, page)] = []byte(sb.String())
}

func (f *fakeGallery) Get(ctx context.Context, url string) ([]byte, error) {
	var sortBy string
	var page int
	for _, part := range strings.Split(url[strings.Index(url, "?")+1:], "&") {
		if v, ok := strings.CutPrefix(part, "sortBy="); ok {
			sortBy = v
		}
		if v, ok := strings.CutPrefix(part, "page="); ok {
			fmt.Sscanf(v, "%d", &page)
		}
	}
	key := pageKey(sortBy, page)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if f.fail[key] {
		return nil, errors.New("gave up after retries")
	}
	body, ok := f.pages[key]
	if !ok {
		return []byte("<html><body></body></html>"), nil
	}
	return body, nil
}

func (f *fakeGallery) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func testDiscoveryConfig() *config.DiscoveryConfig {
	return &config.DiscoveryConfig{
		TargetPhotosPerVessel: 5,
		PhotosPerPage:         3,
		MaxGalleryPages:       10,
		AltSortMaxPages:       2,
	}
}

func newTestFinder(client PageGetter, cfg *config.DiscoveryConfig) *Finder {
	return NewFinder(client, "https://example.com", cfg, 4, logger.NewTestLogger())
}

func TestDiscoverEmptyGallery(t *testing.T) {
	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, nil, -1)

	finder := newTestFinder(gallery, testDiscoveryConfig())
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.Empty(t, res.PhotoIDs)
	assert.Equal(t, 0, res.TotalReported)
}

func TestDiscoverSinglePartialPage(t *testing.T) {
	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002"}, 2)

	finder := newTestFinder(gallery, testDiscoveryConfig())
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1000001", "1000002"}, res.PhotoIDs)
	assert.Equal(t, 2, res.TotalReported)
	assert.Equal(t, 0, gallery.callCount(pageKey(SortNewest, 2)), "partial page means no further paging")
}

func TestDiscoverPagesUntilTarget(t *testing.T) {
	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002", "1000003"}, 9)
	gallery.set(SortNewest, 2, []string{"1000003", "1000004", "1000005"}, 9)
	gallery.set(SortNewest, 3, []string{"1000006", "1000007", "1000008"}, 9)

	finder := newTestFinder(gallery, testDiscoveryConfig())
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.Len(t, res.PhotoIDs, 5, "result is truncated to the target")
	assert.Equal(t, 9, res.TotalReported)

	seen := make(map[string]bool)
	for _, id := range res.PhotoIDs {
		assert.False(t, seen[id], "no duplicate identifiers")
		seen[id] = true
	}
}

func TestDiscoverFailedPageContributesNothing(t *testing.T) {
	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002", "1000003"}, 6)
	gallery.fail[pageKey(SortNewest, 2)] = true

	finder := newTestFinder(gallery, testDiscoveryConfig())
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err, "a failed page does not abort discovery")

	// Short of target triggers the alternate sorts, which have nothing new
	assert.ElementsMatch(t, []string{"1000001", "1000002", "1000003"}, res.PhotoIDs)
}

func TestDiscoverAlternateSortsFillTheGap(t *testing.T) {
	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002", "1000003"}, 8)
	gallery.set(SortNewest, 2, []string{"1000001", "1000002", "1000003"}, 8)
	gallery.set(SortOldest, 1, []string{"1000003", "2000001", "2000002"}, 8)

	finder := newTestFinder(gallery, testDiscoveryConfig())
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.Len(t, res.PhotoIDs, 5)
	assert.Contains(t, res.PhotoIDs, "2000001")
	assert.Contains(t, res.PhotoIDs, "2000002")
}

func TestDiscoverTargetMetSkipsAlternateSorts(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.TargetPhotosPerVessel = 3

	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002", "1000003"}, 50)

	finder := newTestFinder(gallery, cfg)
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.Len(t, res.PhotoIDs, 3)
	assert.Equal(t, 0, gallery.callCount(pageKey(SortOldest, 1)))
	assert.Equal(t, 0, gallery.callCount(pageKey(SortPopular, 1)))
}

func TestDiscoverUnknownTotalAssumesMaxPages(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.MaxGalleryPages = 3
	cfg.TargetPhotosPerVessel = 50

	gallery := newFakeGallery()
	gallery.set(SortNewest, 1, []string{"1000001", "1000002", "1000003"}, -1)
	gallery.set(SortNewest, 2, []string{"1000004", "1000005", "1000006"}, -1)
	gallery.set(SortNewest, 3, []string{"1000007", "1000008", "1000009"}, -1)

	finder := newTestFinder(gallery, cfg)
	res, err := finder.Discover(context.Background(), "9876543")
	require.NoError(t, err)

	assert.Equal(t, 1, gallery.callCount(pageKey(SortNewest, 2)))
	assert.Equal(t, 1, gallery.callCount(pageKey(SortNewest, 3)))
	assert.Equal(t, 0, gallery.callCount(pageKey(SortNewest, 4)), "page cap is authoritative")
	assert.GreaterOrEqual(t, len(res.PhotoIDs), 9)
}
