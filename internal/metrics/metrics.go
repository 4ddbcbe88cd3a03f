package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/salesboard/backend/internal/types"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Upstream fetch metrics
	listingsTotal     map[types.Feed]int64
	listingRecords    map[types.Feed]int64
	listingErrors     int64
	detailsTotal      map[types.DetailKind]int64
	detailErrors      map[types.DetailKind]int64

	// Pipeline metrics
	runsTotal          int64
	runErrors          int64
	recordsAttributed  int64
	recordsUnresolved  int64
	lastRunDuration    time.Duration

	// Cache metrics
	cacheHits   int64
	cacheMisses int64

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			listingsTotal:  make(map[types.Feed]int64),
			listingRecords: make(map[types.Feed]int64),
			detailsTotal:   make(map[types.DetailKind]int64),
			detailErrors:   make(map[types.DetailKind]int64),
			startTime:      time.Now(),
		}
	})
	return instance
}

// RecordListing records a successful bulk listing call and the number
// of records the provider returned
func (m *Metrics) RecordListing(feed types.Feed, count int) {
	m.mu.Lock()
	m.listingsTotal[feed]++
	m.listingRecords[feed] += int64(count)
	m.mu.Unlock()
}

// RecordListingError increments the listing failure counter
func (m *Metrics) RecordListingError() {
	m.mu.Lock()
	m.listingErrors++
	m.mu.Unlock()
}

// RecordDetail records a successful detail lookup
func (m *Metrics) RecordDetail(kind types.DetailKind) {
	m.mu.Lock()
	m.detailsTotal[kind]++
	m.mu.Unlock()
}

// RecordDetailError increments the detail failure counter
func (m *Metrics) RecordDetailError(kind types.DetailKind) {
	m.mu.Lock()
	m.detailErrors[kind]++
	m.mu.Unlock()
}

// RecordRun records a completed aggregation run
func (m *Metrics) RecordRun(duration time.Duration, attributed, unresolved int) {
	m.mu.Lock()
	m.runsTotal++
	m.recordsAttributed += int64(attributed)
	m.recordsUnresolved += int64(unresolved)
	m.lastRunDuration = duration
	m.mu.Unlock()
}

// RecordRunError increments the failed-run counter
func (m *Metrics) RecordRunError() {
	m.mu.Lock()
	m.runErrors++
	m.mu.Unlock()
}

// RecordCacheHit increments the cache hit counter
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

// RecordCacheMiss increments the cache miss counter
func (m *Metrics) RecordCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("salesboard_uptime_seconds", time.Since(m.startTime).Seconds())

		// Upstream fetch metrics
		for feed, count := range m.listingsTotal {
			write("salesboard_listings_total", count, "feed", string(feed))
		}
		for feed, count := range m.listingRecords {
			write("salesboard_listing_records_total", count, "feed", string(feed))
		}
		write("salesboard_listing_errors_total", m.listingErrors)
		for kind, count := range m.detailsTotal {
			write("salesboard_details_total", count, "kind", string(kind))
		}
		for kind, count := range m.detailErrors {
			write("salesboard_detail_errors_total", count, "kind", string(kind))
		}

		// Pipeline metrics
		write("salesboard_runs_total", m.runsTotal)
		write("salesboard_run_errors_total", m.runErrors)
		write("salesboard_records_attributed_total", m.recordsAttributed)
		write("salesboard_records_unresolved_total", m.recordsUnresolved)
		write("salesboard_last_run_duration_seconds", m.lastRunDuration.Seconds())

		// Cache metrics
		write("salesboard_cache_hits_total", m.cacheHits)
		write("salesboard_cache_misses_total", m.cacheMisses)
	}
}
