package types

import "time"

// Feed identifies an upstream listing endpoint.
type Feed string

const (
	FeedRecordings Feed = "recordings"
	FeedSales      Feed = "sold-products"
)

// DetailKind identifies an upstream drill-down lookup.
type DetailKind string

const (
	DetailCall DetailKind = "call"
	DetailLead DetailKind = "lead"
)

// Metric names used as ranking keys in the dashboard payload.
const (
	MetricCalls = "calls"
	MetricTalk  = "talk"
	MetricSales = "sales"
	MetricAV    = "av"
)

// UnknownAgent is the sentinel identity for records that cannot be
// attributed to a roster agent. Counted in team totals only.
const UnknownAgent = "Unknown"

// AVMultiplier converts a monthly sale amount to annualized value.
const AVMultiplier = 12

// Window is an absolute time range, derived from a civil-time anchor
// and converted to UTC for upstream queries.
type Window struct {
	StartUTC time.Time
	EndUTC   time.Time
}

// Record is a raw call or sale event as returned by the upstream
// provider, after field-name normalization. Immutable once fetched.
type Record struct {
	ID           string
	Feed         Feed
	LeadID       string
	ToNumber     string
	FromNumber   string
	OwnerName    string
	OwnerEmail   string
	Timestamp    time.Time
	DurationSecs float64
	Amount       float64
}

// Lead is the relevant slice of an upstream lead payload.
type Lead struct {
	ID         string
	OwnerName  string
	OwnerEmail string
}

// RosterEntry maps an agent's contact identifiers to display metadata.
// Loaded once per process from a static source; read-only afterwards.
type RosterEntry struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	Phones   []string `json:"phones,omitempty"`
	Headshot string   `json:"photo,omitempty"`
}

// AllPhones returns the entry's phone numbers, merging the single and
// multi-valued source fields.
func (e RosterEntry) AllPhones() []string {
	phones := make([]string, 0, len(e.Phones)+1)
	if e.Phone != "" {
		phones = append(phones, e.Phone)
	}
	phones = append(phones, e.Phones...)
	return phones
}

// AgentIdentity is a resolved canonical agent.
type AgentIdentity struct {
	Name     string
	Email    string
	Headshot string
}

// Unattributed reports whether the identity is the Unknown sentinel.
func (a AgentIdentity) Unattributed() bool {
	return a.Name == UnknownAgent
}

// AgentBucket accumulates per-agent counters during one aggregation
// run. Created lazily on first attributed record, never shared across
// runs.
type AgentBucket struct {
	Name         string
	Email        string
	Headshot     string
	Calls        int
	TalkTimeSecs float64
	SalesCount   int
	TotalAmount  float64
	AV           float64
}

// RankedEntry is one row of a ranked view, position starting at 1.
type RankedEntry struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TeamView is the team-wide section of the dashboard payload. Includes
// unattributed records.
type TeamView struct {
	Calls       int     `json:"calls"`
	TalkMin     float64 `json:"talkMin"`
	SalesCount  int     `json:"salesCount"`
	TotalAmount float64 `json:"totalAmount"`
}

// AgentView is the per-agent section of the dashboard payload.
type AgentView struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Calls           int     `json:"calls"`
	TalkTimeMins    float64 `json:"talkTimeMins"`
	TalkPerCallSecs int     `json:"talkPerCallSecs"`
	SalesCount      int     `json:"salesCount"`
	AV              float64 `json:"av"`
	Headshot        string  `json:"headshot,omitempty"`
}

// DashboardPayload is the single contract consumed by the presentation
// layer. On systemic failure it carries zero-valued aggregates plus a
// non-empty Error; consumers must treat that as "no data available".
type DashboardPayload struct {
	Team     TeamView                 `json:"team"`
	PerAgent []AgentView              `json:"perAgent"`
	Rank     map[string][]RankedEntry `json:"rank"`
	Error    string                   `json:"error,omitempty"`
}

// Clone returns a deep copy of the payload. The result cache stores
// clones so no caller can mutate a cached entry through a shared slice.
func (p *DashboardPayload) Clone() *DashboardPayload {
	out := &DashboardPayload{
		Team:  p.Team,
		Error: p.Error,
	}
	if p.PerAgent != nil {
		out.PerAgent = make([]AgentView, len(p.PerAgent))
		copy(out.PerAgent, p.PerAgent)
	}
	if p.Rank != nil {
		out.Rank = make(map[string][]RankedEntry, len(p.Rank))
		for metric, entries := range p.Rank {
			cp := make([]RankedEntry, len(entries))
			copy(cp, entries)
			out.Rank[metric] = cp
		}
	}
	return out
}

// ZeroPayload returns a well-formed all-zero payload with the given
// error message. Used whenever a run fails before aggregation.
func ZeroPayload(errMsg string) *DashboardPayload {
	return &DashboardPayload{
		PerAgent: []AgentView{},
		Rank: map[string][]RankedEntry{
			MetricCalls: {},
			MetricTalk:  {},
			MetricSales: {},
			MetricAV:    {},
		},
		Error: errMsg,
	}
}
