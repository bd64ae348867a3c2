package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const (
	trackerUserAgent = "screentime"
	maxErrorBody     = 512
)

// TrackerError is returned when the tracker answers with a non-2xx status.
type TrackerError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *TrackerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tracker %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("tracker %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// ActivityWatchClient implements domain.Tracker against the ActivityWatch REST API.
type ActivityWatchClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewActivityWatchClient creates a tracker client for baseURL
// (e.g. http://localhost:5600/api/0). A zero timeout waits indefinitely.
func NewActivityWatchClient(baseURL string, timeout time.Duration) *ActivityWatchClient {
	return &ActivityWatchClient{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// ListSources fetches all buckets keyed by bucket ID.
func (c *ActivityWatchClient) ListSources(ctx context.Context) (map[string]domain.Bucket, error) {
	var buckets map[string]domain.Bucket
	if err := c.getJSON(ctx, "/buckets/", nil, &buckets); err != nil {
		return nil, err
	}
	for id, b := range buckets {
		if b.ID == "" {
			b.ID = id
			buckets[id] = b
		}
	}
	return buckets, nil
}

// FetchEvents fetches the events of one bucket between start and end.
func (c *ActivityWatchClient) FetchEvents(ctx context.Context, bucketID string, start, end time.Time) ([]domain.Event, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	var events []domain.Event
	path := "/buckets/" + url.PathEscape(bucketID) + "/events"
	if err := c.getJSON(ctx, path, query, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func (c *ActivityWatchClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", trackerUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not connect to ActivityWatch at %s (is it running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TrackerError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// Ensure ActivityWatchClient implements domain.Tracker.
var _ domain.Tracker = (*ActivityWatchClient)(nil)
