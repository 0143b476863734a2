package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and never mutated afterwards. Every
// request in the process shares the same instance.
type Config struct {
	BaseURL              string
	ReportTimeout        time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	CacheEnabled         bool
	CacheDuration        time.Duration
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	AllowedOrigins       string
	Origin               string
	CSPDirectives        map[string][]string
	ListenAddr           string
	ReadHeaderTimeout    time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
}

func Load() Config {
	cfg := Config{
		BaseURL:              strings.TrimSuffix(env("REPORT_API_URL", "http://localhost:3000"), "/"),
		ReportTimeout:        time.Millisecond * time.Duration(envInt("REPORT_TIMEOUT_MS", 30000)),
		MaxRetries:           envInt("REPORT_MAX_RETRIES", 3),
		RetryDelay:           time.Millisecond * time.Duration(envInt("REPORT_RETRY_DELAY_MS", 1000)),
		CacheEnabled:         envBool("REPORT_CACHE_ENABLED", true),
		CacheDuration:        time.Millisecond * time.Duration(envInt("REPORT_CACHE_DURATION_MS", 300000)),
		RateLimitMaxRequests: envInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:      time.Millisecond * time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 900000)),
		AllowedOrigins:       env("CORS_ALLOWED_ORIGINS", ""),
		Origin:               env("DASHBOARD_ORIGIN", "http://localhost:8080"),
		CSPDirectives:        parseDirectives(env("CSP_DIRECTIVES", "")),
		ListenAddr:           env("ADDR", ":8080"),
		ReadHeaderTimeout:    time.Second * time.Duration(envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5)),
		ReadTimeout:          time.Second * time.Duration(envInt("HTTP_READ_TIMEOUT_SEC", 15)),
		WriteTimeout:         time.Second * time.Duration(envInt("HTTP_WRITE_TIMEOUT_SEC", 30)),
		IdleTimeout:          time.Second * time.Duration(envInt("HTTP_IDLE_TIMEOUT_SEC", 120)),
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 5 * time.Minute
	}
	if cfg.RateLimitMaxRequests <= 0 {
		cfg.RateLimitMaxRequests = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 15 * time.Minute
	}
	return cfg
}

// CSPHeader renders the configured directive sets as a single
// Content-Security-Policy header value: "{directive} {space-joined sources}"
// segments joined by "; ", directives in sorted order.
func (c Config) CSPHeader() string {
	if len(c.CSPDirectives) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.CSPDirectives))
	for name := range c.CSPDirectives {
		names = append(names, name)
	}
	sort.Strings(names)
	segments := make([]string, 0, len(names))
	for _, name := range names {
		sources := strings.Join(c.CSPDirectives[name], " ")
		if sources == "" {
			segments = append(segments, name)
			continue
		}
		segments = append(segments, name+" "+sources)
	}
	return strings.Join(segments, "; ")
}

// parseDirectives reads "directive=src src;directive=src" pairs. An empty
// input yields the default policy for the dashboard page.
func parseDirectives(raw string) map[string][]string {
	out := map[string][]string{}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		if name == "" {
			continue
		}
		sources := []string{}
		if len(parts) == 2 {
			for _, src := range strings.Fields(parts[1]) {
				sources = append(sources, src)
			}
		}
		out[name] = sources
	}
	if len(out) == 0 {
		out = map[string][]string{
			"default-src": {"'self'"},
			"script-src":  {"'self'"},
			"style-src":   {"'self'", "'unsafe-inline'"},
			"img-src":     {"'self'", "data:"},
			"connect-src": {"'self'"},
			"report-uri":  {"/api/v1/report"},
		}
	}
	return out
}

func env(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
