package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/salesboard/backend/internal/metrics"
	"github.com/salesboard/backend/internal/types"
)

// ListingLimit is the provider-side cap on bulk listing calls. Results
// beyond the cap are silently truncated upstream; the client reports
// the returned count and does not paginate further.
const ListingLimit = 5000

// timeFormat is how the provider expects window boundaries, in UTC.
const timeFormat = "2006-01-02 15:04:05"

// Client is the vendor CRM/telephony API client. All calls are POST
// requests carrying a per-feed opaque credential in the body.
type Client struct {
	endpoint   string
	feedKeys   map[types.Feed]string
	httpClient *http.Client
	limiter    *rate.Limiter
	workers    int
	timeout    time.Duration
	logger     zerolog.Logger
}

// Options configures a Client.
type Options struct {
	Endpoint          string
	RecordingsFeedKey string
	SalesFeedKey      string
	Workers           int           // concurrent detail fetches
	Timeout           time.Duration // per-call timeout
	Rate              float64       // detail fetches per second
}

// NewClient creates a new CRM client. The upstream is rate-sensitive,
// so detail fetches are paced by a token bucket and fanned out on a
// bounded worker pool.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	workers := opts.Workers
	if workers < 1 {
		workers = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	r := opts.Rate
	if r <= 0 {
		r = 20
	}
	return &Client{
		endpoint: opts.Endpoint,
		feedKeys: map[types.Feed]string{
			types.FeedRecordings: opts.RecordingsFeedKey,
			types.FeedSales:      opts.SalesFeedKey,
		},
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(r), workers),
		workers:    workers,
		timeout:    timeout,
		logger:     logger.With().Str("component", "crm_client").Logger(),
	}
}

// listingRequest is the bulk listing body shape.
type listingRequest struct {
	Credential string `json:"credential"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Limit      int    `json:"limit"`
}

// detailRequest is the drill-down lookup body shape.
type detailRequest struct {
	Credential string `json:"credential"`
	LookupID   string `json:"lookupId"`
}

// FetchRecords performs the bulk listing call for a feed over the
// given window. A failure here is fatal for the aggregation run.
func (c *Client) FetchRecords(ctx context.Context, feed types.Feed, window types.Window) ([]types.Record, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("crm endpoint not configured")
	}
	key, ok := c.feedKeys[feed]
	if !ok || key == "" {
		return nil, fmt.Errorf("missing credential for feed %s", feed)
	}

	body := listingRequest{
		Credential: key,
		StartDate:  window.StartUTC.UTC().Format(timeFormat),
		EndDate:    window.EndUTC.UTC().Format(timeFormat),
		Limit:      ListingLimit,
	}

	raw, err := c.post(ctx, fmt.Sprintf("%s/%s", c.endpoint, feed), body)
	if err != nil {
		metrics.Get().RecordListingError()
		return nil, fmt.Errorf("listing %s failed: %w", feed, err)
	}

	items, err := normalizeListing(raw)
	if err != nil {
		metrics.Get().RecordListingError()
		return nil, fmt.Errorf("listing %s returned unexpected shape: %w", feed, err)
	}

	records := make([]types.Record, 0, len(items))
	for _, item := range items {
		records = append(records, recordFromPayload(feed, item))
	}

	metrics.Get().RecordListing(feed, len(records))
	c.logger.Debug().
		Str("feed", string(feed)).
		Int("returned", len(records)).
		Bool("at_cap", len(records) >= ListingLimit).
		Msg("listing fetched")

	return records, nil
}

// FetchCallDetail fetches the drill-down payload for a single call.
func (c *Client) FetchCallDetail(ctx context.Context, id string) (types.Record, error) {
	item, err := c.fetchDetail(ctx, types.DetailCall, id)
	if err != nil {
		return types.Record{}, err
	}
	rec := recordFromPayload(types.FeedRecordings, item)
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// FetchLeadDetail fetches the drill-down payload for a single lead.
func (c *Client) FetchLeadDetail(ctx context.Context, id string) (types.Lead, error) {
	item, err := c.fetchDetail(ctx, types.DetailLead, id)
	if err != nil {
		return types.Lead{}, err
	}
	lead := leadFromPayload(item)
	if lead.ID == "" {
		lead.ID = id
	}
	return lead, nil
}

// fetchDetail performs one paced, timeout-bounded lookup call. The
// recordings feed credential authorizes drill-downs.
func (c *Client) fetchDetail(ctx context.Context, kind types.DetailKind, id string) (map[string]any, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("crm endpoint not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := detailRequest{
		Credential: c.feedKeys[types.FeedRecordings],
		LookupID:   id,
	}
	raw, err := c.post(callCtx, fmt.Sprintf("%s/%s", c.endpoint, kind), body)
	if err != nil {
		metrics.Get().RecordDetailError(kind)
		return nil, fmt.Errorf("%s detail %s failed: %w", kind, id, err)
	}

	item, err := normalizeDetail(raw)
	if err != nil {
		metrics.Get().RecordDetailError(kind)
		return nil, fmt.Errorf("%s detail %s returned unexpected shape: %w", kind, id, err)
	}

	metrics.Get().RecordDetail(kind)
	return item, nil
}

// post issues one POST with a JSON body and returns the raw response.
func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	return raw, nil
}
