package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"SP500Tracker/internal/model"
	"SP500Tracker/internal/recorder"
)

//go:embed templates/*.tmpl
var embeddedFS embed.FS

// Controller is the refresh lifecycle the dashboard drives.
type Controller interface {
	Latest() *model.Snapshot
	Running() bool
	AutoRefresh() bool
	SetAutoRefresh(on bool)
	StockCount() int
	RefreshNow(count int) error
}

// Options configures the dashboard server.
type Options struct {
	Address     string
	PageRefresh time.Duration // meta-refresh interval while auto refresh is on
}

// Server hosts the gin dashboard for the tracker.
type Server struct {
	opts       Options
	ctrl       Controller
	rec        recorder.Recorder
	log        zerolog.Logger
	httpServer *http.Server
}

// NewServer constructs a dashboard server. rec may be nil when history is not recorded.
func NewServer(opts Options, ctrl Controller, rec recorder.Recorder, log zerolog.Logger) *Server {
	opts.Address = normalizeAddress(opts.Address)
	if opts.PageRefresh <= 0 {
		opts.PageRefresh = 5 * time.Minute
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Server{
		opts: opts,
		ctrl: ctrl,
		rec:  rec,
		log:  log.With().Str("component", "dashboard").Logger(),
	}
}

// Address reports the network address the dashboard server listens on.
func (s *Server) Address() string {
	return s.opts.Address
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (s *Server) Run(ctx context.Context) error {
	router, err := s.Router()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:              s.opts.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info().Str("address", s.opts.Address).Msg("dashboard listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Router builds the gin engine with every dashboard route.
func (s *Server) Router() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.log))
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl, err := template.New("dashboard").Funcs(funcMap).ParseFS(embeddedFS, "templates/index.tmpl")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.index)
	router.GET("/export.csv", s.exportCSV)
	router.POST("/refresh", s.refresh)
	router.POST("/auto-refresh", s.toggleAutoRefresh)

	api := router.Group("/api")
	api.GET("/snapshot", s.snapshot)
	api.GET("/history", s.history)
	api.GET("/health", s.health)
	api.HEAD("/health", s.health)

	router.GET("/metrics", metricsHandler())
	return router, nil
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil && parsed.Host != "" {
			addr = parsed.Host
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}
	return addr
}
