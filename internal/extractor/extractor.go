// Package extractor holds the strategies that recover a stream URL from a
// fetched page. The source site's layout is unversioned, so each rule lives
// behind the repository.Extractor interface and is picked by tag.
package extractor

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/user/livecast-service/internal/repository"
)

const (
	TagAuto       = "auto"
	TagToken      = "token"
	TagSourceData = "sourcedata"
	TagImage      = "image"
	TagM3U8       = "m3u8"
)

// Options configures what counts as a valid stream URL.
type Options struct {
	// Host is the stream CDN host; empty accepts any host.
	Host string
	// RequiredParams must all be present and non-empty in the query.
	RequiredParams []string
}

// DefaultOptions matches the CDN the default channel list resolves to.
func DefaultOptions() Options {
	return Options{
		Host:           "cdn.inteltelevision.com",
		RequiredParams: []string{"t", "token"},
	}
}

var constructors = map[string]func(Options) repository.Extractor{
	TagToken:      func(o Options) repository.Extractor { return newTokenExtractor(o) },
	TagSourceData: func(o Options) repository.Extractor { return &sourceDataExtractor{opts: o} },
	TagImage:      func(o Options) repository.Extractor { return &imageExtractor{opts: o} },
	TagM3U8:       func(o Options) repository.Extractor { return newM3U8Extractor(o) },
	TagAuto: func(o Options) repository.Extractor {
		return Chain{
			newTokenExtractor(o),
			&sourceDataExtractor{opts: o},
			&imageExtractor{opts: o},
			newM3U8Extractor(o),
		}
	},
}

// New returns the strategy registered under tag.
func New(tag string, opts Options) (repository.Extractor, error) {
	if tag == "" {
		tag = TagAuto
	}
	c, ok := constructors[tag]
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (known: %s)", tag, strings.Join(Tags(), ", "))
	}
	return c(opts), nil
}

// Known reports whether tag names a registered strategy.
func Known(tag string) bool {
	_, ok := constructors[tag]
	return ok
}

// Tags lists the registered strategy tags.
func Tags() []string {
	tags := make([]string, 0, len(constructors))
	for t := range constructors {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Chain tries each extractor in order and returns the first hit.
type Chain []repository.Extractor

func (c Chain) Extract(body []byte) (string, error) {
	for _, e := range c {
		if u, err := e.Extract(body); err == nil {
			return u, nil
		}
	}
	return "", repository.ErrExtractionMiss
}

// valid reports whether raw is an absolute stream URL on the configured host
// carrying every required parameter.
func (o Options) valid(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if o.Host != "" && !strings.EqualFold(u.Hostname(), o.Host) {
		return false
	}
	q := u.Query()
	for _, p := range o.RequiredParams {
		if q.Get(p) == "" {
			return false
		}
	}
	return true
}

// unescape undoes the JavaScript string escaping the source pages use.
func unescape(body []byte) string {
	s := string(body)
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `&amp;`, "&")
	return s
}
