package extractor

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/livecast-service/internal/repository"
)

var (
	mediaSelector = "img, source, video, a, link[rel=preload]"
	mediaAttrs    = []string{"src", "data-src", "data-original", "poster", "href"}
)

// imageExtractor looks at the page's image and media resources. The stream
// address is either the resource URL itself or carried in one of its query
// parameters, plain or base64 encoded.
type imageExtractor struct {
	opts Options
}

func (e *imageExtractor) Extract(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", repository.ErrExtractionMiss
	}

	var found string
	doc.Find(mediaSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		for _, attr := range mediaAttrs {
			v, ok := s.Attr(attr)
			if !ok || v == "" {
				continue
			}
			if u := e.fromResource(v); u != "" {
				found = u
				return false
			}
		}
		return true
	})

	if found == "" {
		return "", repository.ErrExtractionMiss
	}
	return found, nil
}

func (e *imageExtractor) fromResource(raw string) string {
	raw = strings.TrimSpace(raw)
	if e.opts.valid(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	// Sorted so pages with several candidate parameters resolve the same way
	// on every run.
	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range query[k] {
			if e.opts.valid(v) {
				return v
			}
			if decoded := decodeBase64(v); decoded != "" && e.opts.valid(decoded) {
				return decoded
			}
		}
	}
	return ""
}

func decodeBase64(s string) string {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b)
		}
	}
	return ""
}
