package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/types"
)

func testClient(endpoint string) *Client {
	return NewClient(Options{
		Endpoint:          endpoint,
		RecordingsFeedKey: "rec-key",
		SalesFeedKey:      "sales-key",
		Workers:           4,
		Timeout:           2 * time.Second,
		Rate:              1000, // effectively unpaced in tests
	}, zerolog.New(&bytes.Buffer{}))
}

func testWindow() types.Window {
	return types.Window{
		StartUTC: time.Date(2024, 1, 17, 5, 0, 0, 0, time.UTC),
		EndUTC:   time.Date(2024, 1, 17, 19, 30, 0, 0, time.UTC),
	}
}

func TestFetchRecords(t *testing.T) {
	var gotBody listingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/recordings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"c1","from":"555-123-4567","duration":120}]}`))
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchRecords(context.Background(), types.FeedRecordings, testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody.Credential != "rec-key" {
		t.Errorf("expected feed credential, got %q", gotBody.Credential)
	}
	if gotBody.StartDate != "2024-01-17 05:00:00" {
		t.Errorf("unexpected startDate %q", gotBody.StartDate)
	}
	if gotBody.EndDate != "2024-01-17 19:30:00" {
		t.Errorf("unexpected endDate %q", gotBody.EndDate)
	}
	if gotBody.Limit != ListingLimit {
		t.Errorf("expected limit %d, got %d", ListingLimit, gotBody.Limit)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != "c1" || rec.Feed != types.FeedRecordings || rec.DurationSecs != 120 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestFetchRecordsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchRecords(context.Background(), types.FeedRecordings, testWindow())
	if err == nil {
		t.Fatal("expected error for upstream 500")
	}
}

func TestFetchRecordsMissingCredential(t *testing.T) {
	c := NewClient(Options{Endpoint: "http://localhost:0"}, zerolog.New(&bytes.Buffer{}))
	if _, err := c.FetchRecords(context.Background(), types.FeedSales, testWindow()); err == nil {
		t.Fatal("expected error for missing credential")
	}
}

func TestFetchRecordsMissingEndpoint(t *testing.T) {
	c := NewClient(Options{RecordingsFeedKey: "k"}, zerolog.New(&bytes.Buffer{}))
	if _, err := c.FetchRecords(context.Background(), types.FeedRecordings, testWindow()); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestFetchLeadDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lead" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body detailRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.LookupID != "L1" {
			t.Errorf("expected lookupId L1, got %q", body.LookupID)
		}
		w.Write([]byte(`{"id":"L1","agent_email":"dana@x.com"}`))
	}))
	defer srv.Close()

	lead, err := testClient(srv.URL).FetchLeadDetail(context.Background(), "L1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.OwnerEmail != "dana@x.com" {
		t.Errorf("unexpected lead: %+v", lead)
	}
}

func TestFetchLeadsDedupesAndDegrades(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body detailRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.LookupID == "bad" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":"` + body.LookupID + `","agent_email":"rep@x.com"}`))
	}))
	defer srv.Close()

	ids := []string{"L1", "L2", "L1", "bad", "", "L2"}
	leads := testClient(srv.URL).FetchLeads(context.Background(), ids)

	// L1, L2, bad — duplicates and empties never hit the wire
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 upstream calls, got %d", got)
	}
	if len(leads) != 2 {
		t.Errorf("expected 2 leads (bad degraded), got %d", len(leads))
	}
	if _, ok := leads["bad"]; ok {
		t.Error("failed lookup must be omitted, not zero-valued")
	}
}

func TestFetchCallDetailsBoundedConcurrency(t *testing.T) {
	var inflight, peak int64
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()

		w.Write([]byte(`{"id":"x","from":"555-1"}`))
	}))
	defer srv.Close()

	ids := make([]string, 30)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	c := testClient(srv.URL) // 4 workers
	results := c.FetchCallDetails(context.Background(), ids)

	if len(results) != 30 {
		t.Errorf("expected 30 results, got %d", len(results))
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 4 {
		t.Errorf("expected at most 4 concurrent fetches, saw %d", peak)
	}
}

func TestFetchCallDetailTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"id":"slow"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		Endpoint:          srv.URL,
		RecordingsFeedKey: "k",
		Workers:           2,
		Timeout:           50 * time.Millisecond,
		Rate:              1000,
	}, zerolog.New(&bytes.Buffer{}))

	// A stalled fetch is a degraded record, not a hung batch
	start := time.Now()
	results := c.FetchCallDetails(context.Background(), []string{"slow"})
	if len(results) != 0 {
		t.Errorf("expected timeout to degrade the record, got %v", results)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout did not bound the fetch")
	}
}
