// Package scheduler talks to the scheduler admin REST API and maps its
// payloads into view models.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/log"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// Client issues GET requests against resolved endpoints.
type Client struct {
	endpoints *endpoints.Endpoints
	http      *http.Client
	logger    log.Logger
}

// NewClient binds a client to ep. A nil ep means configuration was never
// resolved and yields ErrNotInitialized.
func NewClient(ep *endpoints.Endpoints, opts ...Option) (*Client, error) {
	if ep == nil {
		return nil, ErrNotInitialized
	}
	c := &Client{
		endpoints: ep,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    log.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoints returns the resolved endpoints the client is bound to.
func (c *Client) Endpoints() *endpoints.Endpoints {
	return c.endpoints
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	if c == nil || c.endpoints == nil {
		return nil, 0, ErrNotInitialized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	c.logger.Debug("api request", "url", rawURL, "status", resp.StatusCode, "elapsed", time.Since(start))
	if resp.StatusCode >= 400 {
		return body, resp.StatusCode, fmt.Errorf("%w: GET %s returned status %d", ErrBadResponse, rawURL, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

// ListSchedulers fetches the scheduler topology.
func (c *Client) ListSchedulers(ctx context.Context) ([]Scheduler, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	body, _, err := c.get(ctx, c.endpoints.Schedulers())
	if err != nil {
		return nil, err
	}
	return decodeSchedulers(body)
}

// Search runs a search of kind. Params without a scheduler name are rejected
// before any request is made.
func (c *Client) Search(ctx context.Context, kind endpoints.Kind, p SearchParams) (*SearchResult, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	if p.SchedulerName == "" {
		return nil, fmt.Errorf("search requires a scheduler name")
	}
	base, err := c.endpoints.Schedules(kind, p.SchedulerName)
	if err != nil {
		return nil, err
	}
	body, _, err := c.get(ctx, withQuery(base, p.Query()))
	if err != nil {
		return nil, err
	}
	return decodeSearch(body)
}

// Detail returns every stored version of schedule id of kind. An empty
// answer, or a 404, is ErrNotFound.
func (c *Client) Detail(ctx context.Context, kind endpoints.Kind, schedulerName, id string) ([]Schedule, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	u, err := c.endpoints.ScheduleDetail(kind, schedulerName, id)
	if err != nil {
		return nil, err
	}
	body, status, err := c.get(ctx, u)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("schedule %s of %s: %w", id, schedulerName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	versions, err := decodeDetail(body, schedulerName)
	if err != nil {
		return nil, fmt.Errorf("schedule %s of %s: %w", id, schedulerName, err)
	}
	return versions, nil
}

// GetScheduleDetail looks up id among all schedules.
func (c *Client) GetScheduleDetail(ctx context.Context, schedulerName, id string) ([]Schedule, error) {
	return c.Detail(ctx, endpoints.KindAll, schedulerName, id)
}

// GetLiveScheduleDetail looks up id among schedules not yet triggered.
func (c *Client) GetLiveScheduleDetail(ctx context.Context, schedulerName, id string) ([]Schedule, error) {
	return c.Detail(ctx, endpoints.KindLive, schedulerName, id)
}

// GetHistoryScheduleDetail looks up id among triggered schedules.
func (c *Client) GetHistoryScheduleDetail(ctx context.Context, schedulerName, id string) ([]Schedule, error) {
	return c.Detail(ctx, endpoints.KindHistory, schedulerName, id)
}

// Stats fetches per-scheduler counters.
func (c *Client) Stats(ctx context.Context) ([]AppStat, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	u, err := c.endpoints.Stats()
	if err != nil {
		return nil, err
	}
	body, _, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return decodeStats(body)
}

func withQuery(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
