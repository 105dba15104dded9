package shipspotting

import (
	"fmt"
	"strings"
)

// GalleryURL builds the gallery listing URL for one vessel, sort order and
// page. The empty search fields are part of the site's expected query shape.
func GalleryURL(baseURL, vesselID, sortBy string, page int) string {
	return fmt.Sprintf(
		"%s/photos/gallery?shipName=&shipNameSearchMode=exact&imo=%s&mmsi=&eni=&callSign="+
			"&category=&user=&country=&location=&viewType=normal&sortBy=%s&page=%d",
		strings.TrimSuffix(baseURL, "/"), vesselID, sortBy, page,
	)
}

// PhotoPageURL builds the canonical photo page URL for a photo identifier.
func PhotoPageURL(baseURL, photoID string) string {
	return fmt.Sprintf("%s/photos/%s", strings.TrimSuffix(baseURL, "/"), photoID)
}

// ImageURLCandidates returns the ordered candidate image URLs for a photo.
// The primary pattern shards images by the last three digits of the
// identifier, reversed, one digit per path segment; the flat paths are
// fallbacks for older uploads.
func ImageURLCandidates(baseURL, photoID string) []string {
	base := strings.TrimSuffix(baseURL, "/")
	var urls []string

	if len(photoID) >= 3 {
		last := photoID[len(photoID)-3:]
		urls = append(urls, fmt.Sprintf("%s/photos/big/%c/%c/%c/%s.jpg",
			base, last[2], last[1], last[0], photoID))
	}

	urls = append(urls,
		fmt.Sprintf("%s/photos/big/%s.jpg", base, photoID),
		fmt.Sprintf("%s/photos/large/%s.jpg", base, photoID),
	)
	return urls
}
