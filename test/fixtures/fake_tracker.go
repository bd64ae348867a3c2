// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const apiPrefix = "/api/0"

// FakeActivityWatch serves the subset of the ActivityWatch REST API screentime reads.
type FakeActivityWatch struct {
	server *httptest.Server

	mu       sync.Mutex
	buckets  map[string]domain.Bucket
	events   map[string][]domain.Event
	status   int // non-zero forces every response to this status
	requests map[string]int
}

// NewFakeActivityWatch starts a fake tracker. Call Close when done.
func NewFakeActivityWatch() *FakeActivityWatch {
	f := &FakeActivityWatch{
		buckets:  make(map[string]domain.Bucket),
		events:   make(map[string][]domain.Event),
		requests: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// BaseURL returns the API base to configure the client with.
func (f *FakeActivityWatch) BaseURL() string {
	return f.server.URL + apiPrefix
}

// Close shuts the server down.
func (f *FakeActivityWatch) Close() {
	f.server.Close()
}

// AddBucket registers a bucket with its events.
func (f *FakeActivityWatch) AddBucket(id string, events ...domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[id] = domain.Bucket{
		ID:       id,
		Type:     "currentwindow",
		Client:   "fixtures",
		Hostname: "testhost",
		Created:  time.Now().UTC().Format(time.RFC3339),
	}
	f.events[id] = events
}

// FailWith makes every request answer with status.
func (f *FakeActivityWatch) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Requests returns how many times path was requested.
func (f *FakeActivityWatch) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *FakeActivityWatch) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	f.requests[path]++

	if f.status != 0 {
		http.Error(w, `{"message":"forced failure"}`, f.status)
		return
	}

	switch {
	case path == "/buckets" || path == "/buckets/":
		writeJSON(w, f.buckets)

	case strings.HasPrefix(path, "/buckets/") && strings.HasSuffix(path, "/events"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/buckets/"), "/events")
		events, ok := f.events[id]
		if !ok {
			http.Error(w, `{"message":"There's no bucket named `+id+`"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, filterEvents(events, r))

	default:
		http.NotFound(w, r)
	}
}

// filterEvents keeps events starting inside the requested [start, end) window.
func filterEvents(events []domain.Event, r *http.Request) []domain.Event {
	start, errStart := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	end, errEnd := time.Parse(time.RFC3339, r.URL.Query().Get("end"))

	result := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if errStart == nil && ev.Timestamp.Before(start) {
			continue
		}
		if errEnd == nil && !ev.Timestamp.Before(end) {
			continue
		}
		result = append(result, ev)
	}
	return result
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// WindowEvent builds a window watcher event for app lasting d.
func WindowEvent(at time.Time, app string, d time.Duration) domain.Event {
	return domain.Event{
		Timestamp: at,
		Duration:  d.Seconds(),
		Data:      map[string]any{"app": app, "title": app},
	}
}

// WebEvent builds a browser watcher event for url lasting d.
func WebEvent(at time.Time, url string, d time.Duration) domain.Event {
	return domain.Event{
		Timestamp: at,
		Duration:  d.Seconds(),
		Data:      map[string]any{"url": url, "title": url, "audible": false},
	}
}
