package extractor

import (
	"regexp"

	"github.com/user/livecast-service/internal/repository"
)

// tokenExtractor finds a URL on the stream host carrying live t/token
// parameters in the raw page text.
type tokenExtractor struct {
	opts    Options
	pattern *regexp.Regexp
}

func newTokenExtractor(o Options) *tokenExtractor {
	return &tokenExtractor{opts: o, pattern: urlPattern(o.Host, "")}
}

func (e *tokenExtractor) Extract(body []byte) (string, error) {
	text := unescape(body)
	for _, m := range e.pattern.FindAllString(text, -1) {
		if e.opts.valid(m) {
			return m, nil
		}
	}
	return "", repository.ErrExtractionMiss
}

// urlPattern matches absolute URLs on host (any host when empty) whose text
// contains mustContain.
func urlPattern(host, mustContain string) *regexp.Regexp {
	h := `[^/\s"'<>]+`
	if host != "" {
		h = regexp.QuoteMeta(host)
	}
	expr := `https?://` + h + `[^\s"'<>\\]*`
	if mustContain != "" {
		expr = `https?://` + h + `[^\s"'<>\\]*` + regexp.QuoteMeta(mustContain) + `[^\s"'<>\\]*`
	}
	return regexp.MustCompile(expr)
}
