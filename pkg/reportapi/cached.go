package reportapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/metrics"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/models"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/sanitize"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/store"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/stream"
)

const (
	ReportsPath = "/api/v1/reports"
)

// CachedClient memoizes response payloads by full request URL with a
// time-based expiry. Entries are overwritten on refetch, never appended;
// expiry is checked at read time only. There is no in-flight duplicate
// suppression: two concurrent misses for the same URL each fetch and each
// store, last write wins.
type CachedClient struct {
	Client  *Client
	Cache   store.Cache
	TTL     time.Duration
	Enabled bool
	Events  *stream.Hub
	Metrics *metrics.Registry
}

// Fetch returns the JSON payload for path, from cache when fresh.
func (c *CachedClient) Fetch(ctx context.Context, path string) ([]byte, error) {
	key := c.Client.BaseURL + path
	if c.Enabled && c.Cache != nil {
		if cached, err := c.Cache.Get(ctx, key); err == nil {
			c.inc(metrics.CounterCacheHit)
			return cached, nil
		}
		c.inc(metrics.CounterCacheMiss)
	}

	body, err := c.Client.FetchWithRetry(ctx, path)
	if err != nil {
		c.publish(stream.NewEvent(stream.EventFetchFailed, map[string]string{"path": path, "error": err.Error()}))
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &ContentTypeError{URL: key, ContentType: "application/json (body is not valid JSON)"}
	}
	if c.Enabled && c.Cache != nil {
		_ = c.Cache.Set(ctx, key, body, c.TTL)
	}
	c.publish(stream.NewEvent(stream.EventReportsRefreshed, map[string]string{"path": path}))
	return body, nil
}

// Reports fetches the full collection.
func (c *CachedClient) Reports(ctx context.Context) ([]models.Report, error) {
	body, err := c.Fetch(ctx, ReportsPath)
	if err != nil {
		return nil, err
	}
	var reports []models.Report
	if err := json.Unmarshal(body, &reports); err != nil {
		return nil, fmt.Errorf("decode report collection: %w", err)
	}
	return reports, nil
}

// Report fetches one report by id. The id is sanitized before it is
// interpolated into the URL path.
func (c *CachedClient) Report(ctx context.Context, id string) (models.Report, error) {
	clean := sanitize.Input(id)
	if clean == "" {
		return models.Report{}, fmt.Errorf("empty report id")
	}
	body, err := c.Fetch(ctx, ReportsPath+"/"+url.PathEscape(clean))
	if err != nil {
		return models.Report{}, err
	}
	var report models.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return models.Report{}, fmt.Errorf("decode report %s: %w", clean, err)
	}
	return report, nil
}

func (c *CachedClient) publish(evt stream.Event) {
	if c.Events != nil {
		c.Events.Publish(evt)
	}
}

func (c *CachedClient) inc(name string) {
	if c.Metrics != nil {
		c.Metrics.Inc(name)
	}
}
