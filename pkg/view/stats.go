package view

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/mileusna/useragent"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/reportapi"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/sanitize"
)

const topN = 10

type Entry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Tables struct {
	TotalReports        int     `json:"total_reports"`
	TopDirectives       []Entry `json:"top_directives"`
	TopBlockedURIs      []Entry `json:"top_blocked_uris"`
	TopClientIPs        []Entry `json:"top_client_ips"`
	TopDocuments        []Entry `json:"top_documents"`
	TopReferrers        []Entry `json:"top_referrers"`
	TopOperatingSystems []Entry `json:"top_operating_systems"`
	TopBrowsers         []Entry `json:"top_browsers"`
}

// StatsView aggregates the full report collection into top-N frequency
// tables. User agents are handed to the external parser and folded into
// "{name} {version}" OS and browser identifiers.
type StatsView struct {
	client *reportapi.CachedClient

	mu          sync.Mutex
	state       State
	errMsg      string
	rateLimited bool
	tables      Tables
}

func NewStatsView(client *reportapi.CachedClient) *StatsView {
	return &StatsView{client: client, state: StateLoading}
}

func (v *StatsView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.mu.Unlock()

	reports, err := v.client.Reports(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		var rlErr *reportapi.RateLimitError
		v.rateLimited = errors.As(err, &rlErr)
		v.state = StateFailed
		v.errMsg = err.Error()
		return err
	}

	directives := newCounter()
	blocked := newCounter()
	ips := newCounter()
	documents := newCounter()
	referrers := newCounter()
	oses := newCounter()
	browsers := newCounter()

	for _, r := range reports {
		f := r.Fields
		directives.add(f.ViolatedDirective)
		blocked.add(f.BlockedURI)
		ips.add(f.ClientIP)
		documents.add(f.DocumentURI)
		if strings.TrimSpace(f.Referrer) != "" {
			referrers.add(f.Referrer)
		}
		os, browser := parseUserAgent(f.UserAgent)
		oses.add(os)
		browsers.add(browser)
	}

	v.tables = Tables{
		TotalReports:        len(reports),
		TopDirectives:       directives.top(topN),
		TopBlockedURIs:      blocked.top(topN),
		TopClientIPs:        ips.top(topN),
		TopDocuments:        documents.top(topN),
		TopReferrers:        referrers.top(topN),
		TopOperatingSystems: oses.top(topN),
		TopBrowsers:         browsers.top(topN),
	}
	v.state = StateReady
	v.errMsg = ""
	v.rateLimited = false
	return nil
}

func (v *StatsView) State() (State, string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.errMsg, v.rateLimited
}

func (v *StatsView) Tables() Tables {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tables
}

// parseUserAgent derives "{name} {version}" OS and browser identifiers,
// substituting "Unknown" when the parser finds nothing.
func parseUserAgent(raw string) (string, string) {
	ua := useragent.Parse(raw)
	os := strings.TrimSpace(strings.TrimSpace(ua.OS) + " " + strings.TrimSpace(ua.OSVersion))
	if os == "" {
		os = "Unknown"
	}
	browser := strings.TrimSpace(strings.TrimSpace(ua.Name) + " " + strings.TrimSpace(ua.Version))
	if browser == "" {
		browser = "Unknown"
	}
	return os, browser
}

// counter groups values after input sanitization, so two raw values that
// differ only in stripped characters collapse into one key. First-seen
// order is kept so equal counts resolve deterministically.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(raw string) {
	key := sanitize.Input(raw)
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns the n highest counts, descending, displayed values HTML
// escaped. Ties keep first-occurrence order.
func (c *counter) top(n int) []Entry {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, Entry{Value: sanitize.HTML(key), Count: c.counts[key]})
	}
	return out
}
