package httpfetch

import (
	"net/http"

	"github.com/user/livecast-service/internal/proxy"
)

// headerTransport injects browser-like headers into every request.
type headerTransport struct {
	headers map[string]string
	agents  *proxy.Manager
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" && t.agents != nil {
		req.Header.Set("User-Agent", t.agents.UserAgent())
	}
	return t.base.RoundTrip(req)
}

// BrowserHeaders are the headers a desktop browser sends for a page load.
func BrowserHeaders(referer string) map[string]string {
	h := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
		"Upgrade-Insecure-Requests": "1",
	}
	if referer != "" {
		h["Referer"] = referer
	}
	return h
}
