package view

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/models"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/reportapi"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/sanitize"
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Sortable fields. reporttime, linenumber and statuscode order numerically,
// everything else lexicographically.
const (
	FieldViolatedDirective = "violateddirective"
	FieldBlockedURI        = "blockeduri"
	FieldClientIP          = "clientip"
	FieldUserAgent         = "useragent"
	FieldDocumentURI       = "documenturi"
	FieldReportTime        = "reporttime"
	FieldLineNumber        = "linenumber"
	FieldStatusCode        = "statuscode"
)

// ListView holds the fetched report collection and its presentation state:
// Loading -> {Ready, Failed}, with a rate-limited flag layered on top of
// Ready rather than replacing it.
type ListView struct {
	client *reportapi.CachedClient

	mu          sync.Mutex
	state       State
	errMsg      string
	rateLimited bool
	reports     []models.Report
	sortField   string
	sortAsc     bool
}

func NewListView(client *reportapi.CachedClient) *ListView {
	return &ListView{client: client, state: StateLoading}
}

// Load performs the cache-backed collection fetch and transitions the view.
// A rate-limit denial keeps already-loaded content visible and only raises
// the overlay flag.
func (v *ListView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.mu.Unlock()

	reports, err := v.client.Reports(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		var rlErr *reportapi.RateLimitError
		if errors.As(err, &rlErr) {
			v.rateLimited = true
			if len(v.reports) > 0 {
				v.state = StateReady
				return err
			}
		} else {
			v.rateLimited = false
		}
		v.state = StateFailed
		v.errMsg = err.Error()
		return err
	}
	v.state = StateReady
	v.errMsg = ""
	v.rateLimited = false
	v.reports = reports
	return nil
}

// State reports the current state, the failure message and the rate-limited
// flag.
func (v *ListView) State() (State, string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.errMsg, v.rateLimited
}

// SortBy toggles direction when field is already active, otherwise activates
// the field ascending.
func (v *ListView) SortBy(field string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sortField == field {
		v.sortAsc = !v.sortAsc
		return
	}
	v.sortField = field
	v.sortAsc = true
}

// SetSort sets the sort explicitly (HTTP query parameters bypass the toggle).
func (v *ListView) SetSort(field string, ascending bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sortField = field
	v.sortAsc = ascending
}

// Rows returns the collection filtered by query and ordered by the active
// sort. The query is sanitized and lowercased, then OR-matched as a
// substring across violated directive, blocked URI, client IP and user
// agent. An empty query keeps every row.
func (v *ListView) Rows(query string) []models.Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	needle := strings.ToLower(sanitize.Input(query))
	out := make([]models.Report, 0, len(v.reports))
	for _, r := range v.reports {
		if needle == "" || matches(r.Fields, needle) {
			out = append(out, r)
		}
	}
	if v.sortField != "" {
		field, asc := v.sortField, v.sortAsc
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return less(out[i].Fields, out[j].Fields, field)
			}
			return less(out[j].Fields, out[i].Fields, field)
		})
	}
	return out
}

// Select fetches the detail view for one report. Failures are logged and
// leave the list state untouched; the caller only sees the error.
func (v *ListView) Select(ctx context.Context, id string) (models.Report, error) {
	report, err := v.client.Report(ctx, id)
	if err != nil {
		log.Printf("report detail fetch failed for id %q: %v", sanitize.Input(id), err)
		return models.Report{}, err
	}
	return report, nil
}

func matches(f models.ReportFields, needle string) bool {
	for _, hay := range []string{f.ViolatedDirective, f.BlockedURI, f.ClientIP, f.UserAgent} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func less(a, b models.ReportFields, field string) bool {
	switch field {
	case FieldReportTime:
		return a.ReportTime < b.ReportTime
	case FieldLineNumber:
		return a.LineNumber < b.LineNumber
	case FieldStatusCode:
		return a.StatusCode < b.StatusCode
	default:
		return stringField(a, field) < stringField(b, field)
	}
}

func stringField(f models.ReportFields, field string) string {
	switch field {
	case FieldViolatedDirective:
		return f.ViolatedDirective
	case FieldBlockedURI:
		return f.BlockedURI
	case FieldClientIP:
		return f.ClientIP
	case FieldUserAgent:
		return f.UserAgent
	case FieldDocumentURI:
		return f.DocumentURI
	default:
		return ""
	}
}
