package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/config"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/httpx"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/metrics"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/ratelimit"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/reportapi"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/store"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/stream"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/view"
)

// Server wires the dashboard together: config, the cached report client,
// both views, metrics and the live event hub.
type Server struct {
	Config  config.Config
	Reports *reportapi.CachedClient
	List    *view.ListView
	Stats   *view.StatsView
	Metrics *metrics.Registry
	Events  *stream.Hub
}

type openRedisFunc func(ctx context.Context) (*redis.Client, error)
type listenFunc func(server *http.Server) error

// Testable variables for main()
var (
	logFatalf   = log.Fatalf
	openRedisFn = store.NewRedis
	listenFn    = func(server *http.Server) error { return server.ListenAndServe() }
)

func main() {
	if err := runServer(openRedisFn, listenFn); err != nil {
		logFatalf("dashboard: %v", err)
	}
}

func runServer(openRedis openRedisFunc, listen listenFunc) error {
	ctx := context.Background()
	cfg := config.Load()

	var redisClient *redis.Client
	if openRedis != nil {
		client, err := openRedis(ctx)
		if err != nil {
			log.Printf("redis unavailable, falling back to in-memory cache/limits: %v", err)
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedis(redisClient, cfg.RateLimitWindow)
	} else {
		limiter = ratelimit.NewSliding(cfg.RateLimitWindow)
	}

	s := NewServer(cfg, store.NewCache(ctx, redisClient), limiter)

	addr := cfg.ListenAddr
	log.Printf("dashboard listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	if listen == nil {
		return errors.New("listen function required")
	}
	return listen(server)
}

// NewServer builds the component graph from already-selected backends.
func NewServer(cfg config.Config, cache store.Cache, limiter ratelimit.Limiter) *Server {
	reg := metrics.NewRegistry()
	hub := stream.NewHub()
	cached := &reportapi.CachedClient{
		Client:  reportapi.NewClient(cfg, limiter, reg),
		Cache:   cache,
		TTL:     cfg.CacheDuration,
		Enabled: cfg.CacheEnabled,
		Events:  hub,
		Metrics: reg,
	}
	return &Server{
		Config:  cfg,
		Reports: cached,
		List:    view.NewListView(cached),
		Stats:   view.NewStatsView(cached),
		Metrics: reg,
		Events:  hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.CORSMiddleware(s.Config.AllowedOrigins))
	r.Use(httpx.SecurityHeadersMiddleware(s.Config.CSPHeader()))
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "dashboard"})
	})
	r.Get("/api/v1/reports", s.handleListReports)
	r.Get("/api/v1/reports/{report_id}", s.handleReportDetail)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/metrics", s.Metrics.Handler())
	r.Get("/metrics/prometheus", s.Metrics.PrometheusHandler())
	r.Get("/v1/stream", s.streamEvents)
	return r
}
