package extractor

import (
	"regexp"

	"github.com/user/livecast-service/internal/repository"
)

type m3u8Extractor struct {
	opts    Options
	pattern *regexp.Regexp
}

func newM3U8Extractor(o Options) *m3u8Extractor {
	return &m3u8Extractor{opts: o, pattern: urlPattern(o.Host, ".m3u8")}
}

func (e *m3u8Extractor) Extract(body []byte) (string, error) {
	for _, m := range e.pattern.FindAllString(unescape(body), -1) {
		if e.opts.valid(m) {
			return m, nil
		}
	}
	return "", repository.ErrExtractionMiss
}
