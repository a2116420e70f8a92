// Package httpfetch resolves channels with plain HTTP requests.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/extractor"
	"github.com/user/livecast-service/internal/proxy"
	"github.com/user/livecast-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration // per request; must be > 0
	RateLimit float64       // requests per second across all workers; <= 0 disables
	Headers   map[string]string
	Rotation  *proxy.Manager
	// Transport overrides the base round tripper. Tests use it to point at a
	// local server without proxies.
	Transport http.RoundTripper
}

// Fetcher implements repository.StreamFetcher over net/http.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	extractors *extractor.Registry
	logger     *zap.Logger
}

// New creates a new Fetcher.
func New(opts Options, extractors *extractor.Registry, logger *zap.Logger) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %s", opts.Timeout)
	}

	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Rotation != nil {
			t.Proxy = opts.Rotation.Proxy
		}
		base = t
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &headerTransport{
				headers: opts.Headers,
				agents:  opts.Rotation,
				base:    base,
			},
		},
		limiter:    rate.NewLimiter(limit, 1),
		extractors: extractors,
		logger:     logger,
	}, nil
}

// Fetch requests the channel's source page and extracts its stream URL.
func (f *Fetcher) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		// The limiter refuses up front when the next slot lies past the
		// deadline; nothing was sent, so this is not a network failure.
		return "", fmt.Errorf("%w: rate limiter: %w", repository.ErrCycleTimeout, err)
	}

	body, err := f.get(ctx, ch.SourceURL)
	if err != nil {
		return "", err
	}

	streamURL, err := f.extractors.For(ch.Extractor).Extract(body)
	if err != nil {
		f.logger.Debug("no stream url in response", zap.String("channel", ch.ID), zap.Int("bytes", len(body)))
		return "", fmt.Errorf("%s: %w", ch.ID, err)
	}
	return streamURL, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", repository.ErrNetwork, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", repository.ErrNetwork, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", repository.ErrNetwork, err)
	}
	return body, nil
}
