package aggregator

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/types"
)

// Resolver maps a record to its owning agent.
type Resolver interface {
	Resolve(types.Record) types.AgentIdentity
}

// Outcome is the result of one aggregation run.
type Outcome struct {
	Payload    *types.DashboardPayload
	Buckets    []*types.AgentBucket // first-appearance order
	Attributed int
	Unresolved int
}

// Aggregator folds resolved records into per-agent buckets and
// team-wide totals, and produces the ranked views. All state is local
// to one Aggregate call; nothing is shared across runs.
type Aggregator struct {
	logger zerolog.Logger
}

// New creates a new Aggregator
func New(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		logger: logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate folds the records into the dashboard payload. Team totals
// include unattributed records; per-agent buckets do not. Buckets are
// created lazily on first attributed record, and that creation order
// is the stable tie-break for equal ranking values.
func (a *Aggregator) Aggregate(records []types.Record, resolver Resolver) *Outcome {
	var team types.TeamView
	var teamTalkSecs float64

	buckets := make([]*types.AgentBucket, 0, 32)
	index := make(map[string]*types.AgentBucket)
	attributed, unresolved := 0, 0

	for _, rec := range records {
		// Team totals count every record, attributed or not.
		switch rec.Feed {
		case types.FeedRecordings:
			team.Calls++
			teamTalkSecs += rec.DurationSecs
		case types.FeedSales:
			team.SalesCount++
			team.TotalAmount += rec.Amount
		}

		id := resolver.Resolve(rec)
		if id.Unattributed() {
			unresolved++
			continue
		}
		attributed++

		bucket, ok := index[id.Name]
		if !ok {
			bucket = &types.AgentBucket{
				Name:     id.Name,
				Email:    id.Email,
				Headshot: id.Headshot,
			}
			index[id.Name] = bucket
			buckets = append(buckets, bucket)
		}

		switch rec.Feed {
		case types.FeedRecordings:
			bucket.Calls++
			bucket.TalkTimeSecs += rec.DurationSecs
		case types.FeedSales:
			bucket.SalesCount++
			bucket.TotalAmount += rec.Amount
			bucket.AV += rec.Amount * types.AVMultiplier
		}
	}

	team.TalkMin = roundOneDecimal(teamTalkSecs / 60)

	payload := &types.DashboardPayload{
		Team:     team,
		PerAgent: agentViews(buckets),
		Rank: map[string][]types.RankedEntry{
			types.MetricCalls: rank(buckets, func(b *types.AgentBucket) float64 { return float64(b.Calls) }),
			types.MetricTalk:  rank(buckets, func(b *types.AgentBucket) float64 { return b.TalkTimeSecs }),
			types.MetricSales: rank(buckets, func(b *types.AgentBucket) float64 { return float64(b.SalesCount) }),
			types.MetricAV:    rank(buckets, func(b *types.AgentBucket) float64 { return b.AV }),
		},
	}

	a.logger.Debug().
		Int("records", len(records)).
		Int("agents", len(buckets)).
		Int("attributed", attributed).
		Int("unresolved", unresolved).
		Msg("aggregation complete")

	return &Outcome{
		Payload:    payload,
		Buckets:    buckets,
		Attributed: attributed,
		Unresolved: unresolved,
	}
}

// agentViews converts buckets to the presentation shape in
// first-appearance order.
func agentViews(buckets []*types.AgentBucket) []types.AgentView {
	views := make([]types.AgentView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, types.AgentView{
			Name:            b.Name,
			Email:           b.Email,
			Calls:           b.Calls,
			TalkTimeMins:    roundOneDecimal(b.TalkTimeSecs / 60),
			TalkPerCallSecs: perCallSecs(b.TalkTimeSecs, b.Calls),
			SalesCount:      b.SalesCount,
			AV:              b.AV,
			Headshot:        b.Headshot,
		})
	}
	return views
}

// rank orders buckets descending by the metric value. Stable sort
// preserves first-appearance order on ties. Positions start at 1.
func rank(buckets []*types.AgentBucket, value func(*types.AgentBucket) float64) []types.RankedEntry {
	ordered := make([]*types.AgentBucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return value(ordered[i]) > value(ordered[j])
	})

	entries := make([]types.RankedEntry, 0, len(ordered))
	for i, b := range ordered {
		entries = append(entries, types.RankedEntry{Name: b.Name, Position: i + 1})
	}
	return entries
}

// TopBottom classifies the top-n and bottom-n agents of a ranked view.
// Computed from the current sort on every call, never cached from a
// prior metric. With 2n or fewer agents the two sets may overlap.
func TopBottom(ranked []types.RankedEntry, n int) (top, bottom []string) {
	if n < 0 {
		n = 0
	}
	for i := 0; i < n && i < len(ranked); i++ {
		top = append(top, ranked[i].Name)
	}
	start := len(ranked) - n
	if start < 0 {
		start = 0
	}
	for i := start; i < len(ranked); i++ {
		bottom = append(bottom, ranked[i].Name)
	}
	return top, bottom
}

// perCallSecs is the integer-rounded average call length. Zero calls
// yields zero.
func perCallSecs(talkSecs float64, calls int) int {
	if calls == 0 {
		return 0
	}
	return int(math.Round(talkSecs / float64(calls)))
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
