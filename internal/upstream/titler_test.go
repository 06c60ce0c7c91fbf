package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"jamroom/internal/upstream"
)

// fussyProvider rejects requests carrying the "temperature" parameter
// and counts how many requests arrived with it.
type fussyProvider struct {
	mu            sync.Mutex
	requests      int
	withRejected  int
	rejectedParam string
}

func (p *fussyProvider) handler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	p.mu.Lock()
	p.requests++
	_, has := payload[p.rejectedParam]
	if has {
		p.withRejected++
	}
	p.mu.Unlock()

	if has {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "unknown parameter",
			"param": p.rejectedParam,
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"track_title": "Clean Title"})
}

func TestExtractLearnsRejectedParameter(t *testing.T) {
	provider := &fussyProvider{rejectedParam: "temperature"}
	srv := httptest.NewServer(http.HandlerFunc(provider.handler))
	defer srv.Close()

	c := upstream.NewTitleClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	title, err := c.Extract(ctx, "Artist - Song (Official Video)", "Artist")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if title != "Clean Title" {
		t.Fatalf("unexpected title: %q", title)
	}
	if provider.requests != 2 {
		t.Fatalf("expected 1 rejection + 1 retry, saw %d requests", provider.requests)
	}

	// The parameter was learned: the next call strips it preemptively
	// and succeeds in a single request.
	if _, err := c.Extract(ctx, "Another - Song", "Another"); err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}
	if provider.requests != 3 {
		t.Fatalf("expected exactly one more request, saw %d total", provider.requests)
	}
	if provider.withRejected != 1 {
		t.Fatalf("rejected parameter sent %d times, want 1", provider.withRejected)
	}
}

func TestExtractRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := upstream.NewTitleClient(srv.URL, 2*time.Second)
	if _, err := c.Extract(context.Background(), "t", "a"); !errors.Is(err, upstream.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestExtractEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"track_title": ""})
	}))
	defer srv.Close()

	c := upstream.NewTitleClient(srv.URL, 2*time.Second)
	if _, err := c.Extract(context.Background(), "t", "a"); !errors.Is(err, upstream.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestExtractProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := upstream.NewTitleClient(srv.URL, 2*time.Second)
	if _, err := c.Extract(context.Background(), "t", "a"); !errors.Is(err, upstream.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
