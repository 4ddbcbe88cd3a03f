package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/aggregator"
	"github.com/salesboard/backend/internal/cache"
	"github.com/salesboard/backend/internal/identity"
	"github.com/salesboard/backend/internal/metrics"
	"github.com/salesboard/backend/internal/roster"
	"github.com/salesboard/backend/internal/timewindow"
	"github.com/salesboard/backend/internal/types"
)

// Fetcher is the upstream surface the pipeline needs from the CRM
// client.
type Fetcher interface {
	FetchRecords(ctx context.Context, feed types.Feed, window types.Window) ([]types.Record, error)
	FetchCallDetails(ctx context.Context, ids []string) map[string]types.Record
	FetchLeads(ctx context.Context, ids []string) map[string]types.Lead
}

// Service runs the aggregation pipeline: window resolution, upstream
// fetch, detail prefetch, identity resolution, aggregation, and result
// caching. One logical flow per request; all intermediate state is
// owned by the run.
type Service struct {
	client  Fetcher
	roster  *roster.Roster
	windows *timewindow.Resolver
	agg     *aggregator.Aggregator
	cache   *cache.ResultCache
	logger  zerolog.Logger
}

// NewService creates a new pipeline service
func NewService(client Fetcher, r *roster.Roster, windows *timewindow.Resolver, resultCache *cache.ResultCache, logger zerolog.Logger) *Service {
	return &Service{
		client:  client,
		roster:  r,
		windows: windows,
		agg:     aggregator.New(logger),
		cache:   resultCache,
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// Dashboard returns the payload for the given window kind, serving
// from the result cache when a fresh entry exists. A systemic failure
// never surfaces as a panic or a nil payload; it comes back as a
// zero-valued payload carrying the error.
func (s *Service) Dashboard(ctx context.Context, kind timewindow.Kind, days int) *types.DashboardPayload {
	key := cache.Key(string(kind), days, time.Now())
	return s.cache.GetOrCompute(key, func() *types.DashboardPayload {
		return s.run(ctx, kind, days)
	})
}

// run executes one aggregation run end to end.
func (s *Service) run(ctx context.Context, kind timewindow.Kind, days int) *types.DashboardPayload {
	start := time.Now()
	logger := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	window, err := s.windows.Resolve(kind, time.Now(), days)
	if err != nil {
		logger.Error().Err(err).Msg("window resolution failed")
		metrics.Get().RecordRunError()
		return types.ZeroPayload(err.Error())
	}

	// Both listings are fatal on failure: a bad credential or an
	// unreachable endpoint must become an explicit error, not a
	// silent empty success.
	recordings, err := s.client.FetchRecords(ctx, types.FeedRecordings, window)
	if err != nil {
		logger.Error().Err(err).Msg("recordings listing failed")
		metrics.Get().RecordRunError()
		return types.ZeroPayload(err.Error())
	}
	sales, err := s.client.FetchRecords(ctx, types.FeedSales, window)
	if err != nil {
		logger.Error().Err(err).Msg("sales listing failed")
		metrics.Get().RecordRunError()
		return types.ZeroPayload(err.Error())
	}

	records := make([]types.Record, 0, len(recordings)+len(sales))
	records = append(records, recordings...)
	records = append(records, sales...)

	// Drill down on records the listing left under-specified. Failed
	// fetches degrade those records to unattributed; the batch
	// continues.
	records = s.mergeCallDetails(ctx, records)
	leads := s.prefetchLeads(ctx, records)

	resolver := identity.NewResolver(s.roster, leads, logger)
	out := s.agg.Aggregate(records, resolver)

	metrics.Get().RecordRun(time.Since(start), out.Attributed, out.Unresolved)
	logger.Info().
		Str("window", string(kind)).
		Time("start_utc", window.StartUTC).
		Time("end_utc", window.EndUTC).
		Int("recordings", len(recordings)).
		Int("sales", len(sales)).
		Int("agents", len(out.Buckets)).
		Int("unresolved", out.Unresolved).
		Dur("elapsed", time.Since(start)).
		Msg("aggregation run complete")

	return out.Payload
}

// mergeCallDetails fetches call drill-downs for recordings that carry
// no attribution hints and merges the detail fields in.
func (s *Service) mergeCallDetails(ctx context.Context, records []types.Record) []types.Record {
	var ids []string
	for _, rec := range records {
		if rec.Feed == types.FeedRecordings && needsCallDetail(rec) {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return records
	}

	details := s.client.FetchCallDetails(ctx, ids)
	for i, rec := range records {
		if rec.Feed != types.FeedRecordings {
			continue
		}
		if detail, ok := details[rec.ID]; ok {
			records[i] = mergeRecord(rec, detail)
		}
	}
	return records
}

// prefetchLeads collects the unique lead ids of records that still
// lack an explicit owner and fetches them in one bounded fan-out.
func (s *Service) prefetchLeads(ctx context.Context, records []types.Record) map[string]types.Lead {
	var ids []string
	for _, rec := range records {
		if rec.LeadID != "" && rec.OwnerName == "" && rec.OwnerEmail == "" {
			ids = append(ids, rec.LeadID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.client.FetchLeads(ctx, ids)
}

// needsCallDetail reports whether a listing row carries nothing the
// identity resolver could work with.
func needsCallDetail(rec types.Record) bool {
	return rec.ID != "" &&
		rec.OwnerName == "" && rec.OwnerEmail == "" &&
		rec.LeadID == "" &&
		rec.ToNumber == "" && rec.FromNumber == ""
}

// mergeRecord fills gaps in a listing row from its detail payload.
// Listing-known values win; the detail only supplements.
func mergeRecord(rec, detail types.Record) types.Record {
	if rec.LeadID == "" {
		rec.LeadID = detail.LeadID
	}
	if rec.ToNumber == "" {
		rec.ToNumber = detail.ToNumber
	}
	if rec.FromNumber == "" {
		rec.FromNumber = detail.FromNumber
	}
	if rec.OwnerName == "" {
		rec.OwnerName = detail.OwnerName
	}
	if rec.OwnerEmail == "" {
		rec.OwnerEmail = detail.OwnerEmail
	}
	if rec.DurationSecs == 0 {
		rec.DurationSecs = detail.DurationSecs
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = detail.Timestamp
	}
	return rec
}
