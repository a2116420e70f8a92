package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/livecast-service/internal/delivery/http/handler"
	"github.com/user/livecast-service/internal/delivery/http/middleware"
	"github.com/user/livecast-service/pkg/metrics"
	"go.uber.org/zap"
)

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/", h.HandlePlaylistText)
	r.Get("/live.txt", h.HandlePlaylistText)
	r.Get("/live.m3u", h.HandlePlaylistM3U)
	r.Get("/download", h.HandleDownload)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/snapshot", h.HandleSnapshot)
		r.Get("/failures", h.HandleFailures)
		r.Post("/refresh", h.HandleRefresh)
	})

	return r
}
