package shipspotting

import (
	"bytes"
	"regexp"
	"strconv"

	"golang.org/x/net/html"
)

var photoHrefPattern = regexp.MustCompile(`/photos/(\d+)`)

// totalCountPatterns are tried in order against the raw page text; the first
// match wins. The site has shipped both phrasings.
var totalCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s+photos?\s+found`),
	regexp.MustCompile(`(?i)found\s+(\d+)\s+photo`),
}

// ExtractPhotoIDs tokenizes the gallery HTML and collects photo identifiers
// from anchor hrefs of the form /photos/<id>. Identifiers shorter than four
// digits are navigation artifacts, not photos.
func ExtractPhotoIDs(page []byte) map[string]bool {
	ids := make(map[string]bool)
	tokenizer := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ids
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				if m := photoHrefPattern.FindStringSubmatch(attr.Val); m != nil && len(m[1]) >= 4 {
					ids[m[1]] = true
				}
				break
			}
		}
	}
}

// ExtractTotalCount pulls the site's self-reported photo count out of the
// page text. Returns TotalUnknown when no pattern matches.
func ExtractTotalCount(page []byte) int {
	for _, pattern := range totalCountPatterns {
		if m := pattern.FindSubmatch(page); m != nil {
			if n, err := strconv.Atoi(string(m[1])); err == nil {
				return n
			}
		}
	}
	return TotalUnknown
}
