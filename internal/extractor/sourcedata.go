package extractor

import (
	"encoding/json"
	"regexp"

	"github.com/user/livecast-service/internal/repository"
)

var sourceDataPattern = regexp.MustCompile(`(?s)var\s+sourceData\s*=\s*(\[.*?\]);`)

// sourceDataExtractor reads the player's `var sourceData = [...]` array.
type sourceDataExtractor struct {
	opts Options
}

func (e *sourceDataExtractor) Extract(body []byte) (string, error) {
	m := sourceDataPattern.FindStringSubmatch(unescape(body))
	if m == nil {
		return "", repository.ErrExtractionMiss
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(m[1]), &items); err != nil {
		return "", repository.ErrExtractionMiss
	}
	for _, item := range items {
		if u, ok := item["url"].(string); ok && e.opts.valid(u) {
			return u, nil
		}
	}
	return "", repository.ErrExtractionMiss
}
