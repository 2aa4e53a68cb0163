package server

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSitesDir       = "config/sites"
	defaultCacheTTL       = 30 * time.Minute
	defaultViewportHeight = 800
	defaultViewportWidth  = 720
)

// Bookmark is a quick link shown on the index page.
type Bookmark struct {
	Title string
	URL   string
}

// Config describes server wiring and runtime behaviour.
type Config struct {
	Bookmarks []Bookmark
	SitesDir  string
	CacheTTL  time.Duration
	// Browser enables the headless Chrome layout probe behind /api/measure.
	Browser        bool
	ViewportHeight int
	ViewportWidth  int
	ReadingSpeed   int
	Logger         *log.Logger
	Clock          func() time.Time
	HTTPClient     *http.Client
}

// DefaultConfig populates configuration from environment variables.
func DefaultConfig() Config {
	cfg := Config{
		Logger:   log.Default(),
		Clock:    time.Now,
		SitesDir: strings.TrimSpace(os.Getenv("LECTERN_SITES_DIR")),
		CacheTTL: defaultCacheTTL,
	}
	if cfg.SitesDir == "" {
		cfg.SitesDir = defaultSitesDir
	}
	if raw := strings.TrimSpace(os.Getenv("LECTERN_CACHE_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			cfg.CacheTTL = d
		}
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LECTERN_BROWSER"))) {
	case "1", "true", "yes", "on":
		cfg.Browser = true
	}
	if raw := strings.TrimSpace(os.Getenv("LECTERN_WPM")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.ReadingSpeed = n
		}
	}
	if raw := strings.TrimSpace(os.Getenv("LECTERN_BOOKMARKS")); raw != "" {
		cfg.Bookmarks = parseBookmarks(raw)
	}
	return cfg
}

func parseBookmarks(raw string) []Bookmark {
	items := []Bookmark{}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "|", 2)
		if len(kv) != 2 {
			continue
		}
		title := strings.TrimSpace(kv[0])
		url := strings.TrimSpace(kv[1])
		if title == "" || url == "" {
			continue
		}
		items = append(items, Bookmark{Title: title, URL: url})
	}
	return items
}

// Server exposes the HTTP handlers of the reader host.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler
	logger  *log.Logger
	prefs   *prefStore
	cache   *pageCache
	sites   *siteConfigStore
	probe   *layoutProbe
	client  *http.Client
}

// New wires a new server with the provided configuration.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.SitesDir == "" {
		cfg.SitesDir = defaultSitesDir
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = defaultViewportHeight
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = defaultViewportWidth
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		logger: cfg.Logger,
		prefs:  newPrefStore(),
		cache:  newPageCache(cfg.Clock, cfg.CacheTTL),
		sites:  newSiteConfigStore(cfg.SitesDir, cfg.Logger),
		client: cfg.HTTPClient,
	}
	if cfg.Browser {
		s.probe = newLayoutProbe(s.logger)
	}
	s.registerRoutes()
	s.handler = withLogging(s.logger, s.mux)
	return s
}

// NewServer builds a server from the environment.
func NewServer() *Server {
	return New(DefaultConfig())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases the headless browser, if one was started.
func (s *Server) Close() {
	if s.probe != nil {
		s.probe.Close()
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/render", s.handleRender)
	s.mux.HandleFunc("/doc/", s.handleDoc)
	s.mux.HandleFunc("/read", s.handleRead)
	s.mux.HandleFunc("/prefs", s.handlePrefs)
	s.mux.HandleFunc("/progress.png", s.handleProgressImage)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/progress", s.handleProgress)
	s.mux.HandleFunc("/api/measure", s.handleMeasure)
	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.HandleFunc("/health", s.handleHealth)
}
