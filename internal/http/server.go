// Package http serves the dashboard page, its HTMX partials and the chart
// images.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"autosales/internal/cache"
	"autosales/internal/core"
	"autosales/internal/dataset"
	applog "autosales/internal/log"
	"autosales/internal/middleware/ratelimit"
	"autosales/internal/middleware/security"
	"autosales/internal/middleware/trace"
	appweb "autosales/web"
)

// renderTimeout bounds how long a request waits for a chart render.
const renderTimeout = 7 * time.Second

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	ChartCacheSize int
	ChartCacheTTL  time.Duration
	// Templates overrides the embedded templates, mainly for tests.
	Templates fs.FS
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = applog.New(applog.DefaultConfig())
	}
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = ratelimit.DefaultConfig().RequestsPerMinute
	}
	if o.ChartCacheSize <= 0 {
		o.ChartCacheSize = 64
	}
	if o.ChartCacheTTL <= 0 {
		o.ChartCacheTTL = time.Hour
	}
	if o.Templates == nil {
		o.Templates = appweb.TemplatesFS
	}
	return o
}

type Server struct {
	http.Server
	templates *template.Template
	dataset   *dataset.Dataset
	logger    *applog.Logger

	views    *cache.LRUCache[core.View]
	charts   *cache.LRUCache[[]byte]
	cacheMgr *cache.Manager
	renders  singleflight.Group

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates around a loaded
// dataset, returning a ready-to-run server.
func NewServer(addr string, ds *dataset.Dataset, opts Options) *Server {
	opts = opts.withDefaults()
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		dataset:  ds,
		logger:   logger,
		views:    cache.NewLRUCache[core.View](opts.ChartCacheSize, opts.ChartCacheTTL),
		charts:   cache.NewLRUCache[[]byte](opts.ChartCacheSize, opts.ChartCacheTTL),
		cacheMgr: cache.NewManager(logger.Logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.cacheMgr.Register("views", s.views)
	s.cacheMgr.Register("charts", s.charts)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(opts.Templates, "templates/*.html")
	if err != nil {
		logger.LogError(context.Background(), "Failed parsing templates", err, applog.OpStartup, applog.ErrorTypeConfiguration)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/year-select", s.handleYearSelect)
	mux.HandleFunc("GET /ui/output", s.handleOutput)
	mux.HandleFunc("GET /charts/{file}", s.handleChart)
	mux.HandleFunc("GET /api/view", s.handleAPIView)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
