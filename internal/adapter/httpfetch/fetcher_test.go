package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/extractor"
	"github.com/user/livecast-service/internal/proxy"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/internal/usecase"
	"go.uber.org/zap/zaptest"
)

const streamURL = "https://cdn.inteltelevision.com/live/cctv1/index.m3u8?t=1700000000&token=abcdef123456"

func newFetcher(t *testing.T, timeout time.Duration) *Fetcher {
	t.Helper()
	reg, err := extractor.NewRegistry(extractor.TagAuto, extractor.DefaultOptions())
	require.NoError(t, err)
	rot, err := proxy.NewManager(nil, []string{"test-agent"})
	require.NoError(t, err)

	f, err := New(Options{
		Timeout:   timeout,
		Headers:   BrowserHeaders("https://www.kds.tw/"),
		Rotation:  rot,
		Transport: http.DefaultTransport,
	}, reg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return f
}

func TestFetcher_Success(t *testing.T) {
	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(`<script>var src = "` + streamURL + `";</script>`))
	}))
	defer server.Close()

	f := newFetcher(t, time.Second)
	got, err := f.Fetch(context.Background(), entity.ChannelDescriptor{ID: "c1", SourceURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, streamURL, got)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "https://www.kds.tw/", gotReferer)
}

func TestFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: repository.ErrNetwork,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: repository.ErrNetwork,
		},
		{
			name: "placeholder page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html><body>loading...</body></html>"))
			},
			wantErr: repository.ErrExtractionMiss,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			wantErr: repository.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f := newFetcher(t, 100*time.Millisecond)
			_, err := f.Fetch(context.Background(), entity.ChannelDescriptor{ID: "c1", SourceURL: server.URL})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	f := newFetcher(t, time.Second)
	_, err := f.Fetch(context.Background(), entity.ChannelDescriptor{ID: "c1", SourceURL: addr})
	assert.ErrorIs(t, err, repository.ErrNetwork)
}

func TestNew_RequiresTimeout(t *testing.T) {
	reg, err := extractor.NewRegistry(extractor.TagAuto, extractor.DefaultOptions())
	require.NoError(t, err)
	_, err = New(Options{}, reg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestLoadHeaders(t *testing.T) {
	h, err := LoadHeaders("")
	require.NoError(t, err)
	assert.Nil(t, h)

	path := filepath.Join(t.TempDir(), "headers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Cookie": "a=b"}`), 0o644))
	h, err = LoadHeaders(path)
	require.NoError(t, err)
	assert.Equal(t, "a=b", h["Cookie"])

	require.NoError(t, os.WriteFile(path, []byte(`nope`), 0o644))
	_, err = LoadHeaders(path)
	assert.Error(t, err)
}

func TestFetcher_RateLimitStarvedByDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>var src = "` + streamURL + `";</script>`))
	}))
	defer server.Close()

	reg, err := extractor.NewRegistry(extractor.TagAuto, extractor.DefaultOptions())
	require.NoError(t, err)
	rot, err := proxy.NewManager(nil, []string{"test-agent"})
	require.NoError(t, err)
	f, err := New(Options{
		Timeout:   time.Second,
		RateLimit: 0.5,
		Rotation:  rot,
		Transport: http.DefaultTransport,
	}, reg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ds := []entity.ChannelDescriptor{
		{ID: "c1", Name: "One", SourceURL: server.URL},
		{ID: "c2", Name: "Two", SourceURL: server.URL},
		{ID: "c3", Name: "Three", SourceURL: server.URL},
	}
	policy := usecase.RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}
	o := usecase.NewOrchestrator(f, policy, 3, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	results := o.RunCycle(ctx, ds)

	var ok, timedOut int
	for _, r := range results {
		switch {
		case r.OK():
			ok++
		case r.Reason == entity.ReasonTimeout:
			timedOut++
			assert.Zero(t, r.Attempts, "%s never reached the network", r.Descriptor.ID)
		default:
			t.Errorf("%s: unexpected reason %q (%s)", r.Descriptor.ID, r.Reason, r.Error)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, timedOut)

	// Direct calls surface the sentinel too.
	_, err = f.Fetch(ctx, ds[0])
	assert.ErrorIs(t, err, repository.ErrCycleTimeout)
	assert.NotErrorIs(t, err, repository.ErrNetwork)
}
