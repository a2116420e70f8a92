// Package chromedp_crawler resolves channels whose source page only exposes
// the stream URL after its scripts have run.
package chromedp_crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/extractor"
	"github.com/user/livecast-service/internal/proxy"
	"github.com/user/livecast-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a headless browser fetcher.
type Options struct {
	Timeout   time.Duration // per page load; must be > 0
	RateLimit float64       // navigations per second; <= 0 disables
	Headers   map[string]string
	Rotation  *proxy.Manager
}

// ChromedpFetcher implements repository.StreamFetcher with one shared browser
// and a fresh tab per fetch.
type ChromedpFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	timeout    time.Duration
	headers    network.Headers
	agents     *proxy.Manager
	limiter    *rate.Limiter
	extractors *extractor.Registry
	logger     *zap.Logger
}

// NewChromedpFetcher launches the browser. Close must be called to stop it.
func NewChromedpFetcher(opts Options, extractors *extractor.Registry, logger *zap.Logger) (*ChromedpFetcher, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %s", opts.Timeout)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if opts.Rotation != nil {
		// The browser has a single upstream; rotation only applies per launch.
		if p := opts.Rotation.NextProxy(); p != nil {
			allocOpts = append(allocOpts, chromedp.ProxyServer(p.String()))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	sugar := logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	headers := make(network.Headers, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &ChromedpFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       opts.Timeout,
		headers:       headers,
		agents:        opts.Rotation,
		limiter:       rate.NewLimiter(limit, 1),
		extractors:    extractors,
		logger:        logger,
	}, nil
}

// Fetch loads the channel's page in a new tab and extracts the stream URL
// from the rendered document.
func (c *ChromedpFetcher) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// The limiter refuses up front when the next slot lies past the
		// deadline; nothing was sent, so this is not a network failure.
		return "", fmt.Errorf("%w: rate limiter: %w", repository.ErrCycleTimeout, err)
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
	defer cancelTimeout()
	// Tabs hang off the browser, so the caller's cancellation is forwarded.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var (
		mu     sync.Mutex
		status int64
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		if status == 0 {
			status = e.Response.Status
		}
		mu.Unlock()
	})

	var html string
	actions := []chromedp.Action{network.Enable()}
	if len(c.headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(c.headers))
	}
	if c.agents != nil {
		actions = append(actions, emulation.SetUserAgentOverride(c.agents.UserAgent()))
	}
	actions = append(actions,
		chromedp.Navigate(ch.SourceURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	start := time.Now()
	err := chromedp.Run(tabCtx, actions...)
	mu.Lock()
	code := status
	mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", repository.ErrNetwork, ch.ID, err)
	}
	if err := checkStatus(code, ch.SourceURL); err != nil {
		return "", err
	}

	streamURL, err := c.extractors.For(ch.Extractor).Extract([]byte(html))
	if err != nil {
		c.logger.Debug("no stream url in rendered page",
			zap.String("channel", ch.ID),
			zap.Int("bytes", len(html)),
			zap.Duration("load_time", time.Since(start)),
		)
		return "", fmt.Errorf("%s: %w", ch.ID, err)
	}
	return streamURL, nil
}

// checkStatus rejects non-2xx document responses. A zero status means no
// document response was observed, which happens for cached or file pages.
func checkStatus(status int64, url string) error {
	if status == 0 || (status >= 200 && status <= 299) {
		return nil
	}
	return fmt.Errorf("%w: unexpected status code %d from %s", repository.ErrNetwork, status, url)
}

// Close shuts the browser down.
func (c *ChromedpFetcher) Close() {
	c.browserCancel()
	c.allocCancel()
}
