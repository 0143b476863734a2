package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.BaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected default base url: %q", cfg.BaseURL)
	}
	if cfg.ReportTimeout != 30*time.Second {
		t.Fatalf("unexpected default timeout: %v", cfg.ReportTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("unexpected default retries: %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Fatalf("unexpected default retry delay: %v", cfg.RetryDelay)
	}
	if !cfg.CacheEnabled || cfg.CacheDuration != 5*time.Minute {
		t.Fatalf("unexpected cache defaults: enabled=%v duration=%v", cfg.CacheEnabled, cfg.CacheDuration)
	}
	if cfg.RateLimitMaxRequests != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %d/%v", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
	if len(cfg.CSPDirectives) == 0 {
		t.Fatal("expected default CSP directives")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPORT_API_URL", "https://reports.example.com/")
	t.Setenv("REPORT_TIMEOUT_MS", "1500")
	t.Setenv("REPORT_MAX_RETRIES", "1")
	t.Setenv("REPORT_CACHE_ENABLED", "false")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")

	cfg := Load()
	if cfg.BaseURL != "https://reports.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.ReportTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.ReportTimeout)
	}
	if cfg.MaxRetries != 1 {
		t.Fatalf("unexpected retries: %d", cfg.MaxRetries)
	}
	if cfg.CacheEnabled {
		t.Fatal("expected cache disabled")
	}
	if cfg.RateLimitMaxRequests != 5 || cfg.RateLimitWindow != time.Second {
		t.Fatalf("unexpected rate limit config: %d/%v", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
}

func TestLoadClampsBadValues(t *testing.T) {
	t.Setenv("REPORT_TIMEOUT_MS", "-5")
	t.Setenv("REPORT_MAX_RETRIES", "-2")
	t.Setenv("REPORT_RETRY_DELAY_MS", "0")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "not-a-number")

	cfg := Load()
	if cfg.ReportTimeout != 30*time.Second {
		t.Fatalf("expected timeout floor, got %v", cfg.ReportTimeout)
	}
	if cfg.MaxRetries != 0 {
		t.Fatalf("expected retries floor, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Fatalf("expected retry delay floor, got %v", cfg.RetryDelay)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("expected window fallback, got %v", cfg.RateLimitWindow)
	}
}

func TestCSPHeader(t *testing.T) {
	t.Setenv("CSP_DIRECTIVES", "script-src='self' https://cdn.example.com;default-src='none'")
	cfg := Load()
	header := cfg.CSPHeader()
	if header != "default-src 'none'; script-src 'self' https://cdn.example.com" {
		t.Fatalf("unexpected header: %q", header)
	}
}

func TestCSPHeaderDefaultPolicy(t *testing.T) {
	cfg := Load()
	header := cfg.CSPHeader()
	if !strings.Contains(header, "default-src 'self'") {
		t.Fatalf("expected default-src in header, got %q", header)
	}
	if !strings.Contains(header, "report-uri /api/v1/report") {
		t.Fatalf("expected report-uri in header, got %q", header)
	}
}
