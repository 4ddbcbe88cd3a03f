package crm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salesboard/backend/internal/types"
)

// The provider returns lists either as a bare top-level array or
// wrapped in an object under one of these field names, checked in
// priority order.
var listFields = []string{"data", "records", "recordings", "calls", "leads", "sales", "results", "rows"}

// Field name variants for each semantic value, in priority order.
// Different provider endpoints (and endpoint versions) disagree on
// naming; these lists are the single place that knowledge lives.
var (
	idFields        = []string{"id", "recording_id", "recordingId", "call_id", "callId", "sale_id", "saleId"}
	leadIDFields    = []string{"lead_id", "leadId", "contact_id", "contactId"}
	toFields        = []string{"to", "to_number", "toNumber", "called_number", "destination"}
	fromFields      = []string{"from", "from_number", "fromNumber", "caller_number", "caller_id", "source"}
	ownerNameFields = []string{"owner", "owner_name", "agent", "agent_name", "user_name", "rep_name"}
	ownerMailFields = []string{"owner_email", "agent_email", "assigned_to_email", "user_email", "rep_email"}
	durationFields  = []string{"duration", "duration_seconds", "talk_time", "call_duration", "seconds"}
	amountFields    = []string{"amount", "sale_amount", "monthly_amount", "value", "price"}
	timeFields      = []string{"timestamp", "date_created", "created_at", "call_date", "sold_date", "date"}

	// Lead payloads carry the owning agent's email under yet more
	// names than the record payloads do.
	leadMailFields = []string{"agent_email", "owner_email", "assigned_to_email", "user_email", "email"}
	leadNameFields = []string{"agent", "agent_name", "owner", "owner_name", "assigned_to", "user_name"}
)

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// normalizeListing turns any accepted listing response shape into a
// slice of item objects.
func normalizeListing(raw []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("neither array nor object: %w", err)
	}
	for _, field := range listFields {
		inner, ok := envelope[field]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, fmt.Errorf("field %q is not an array: %w", field, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("no known list field present")
}

// normalizeDetail turns a detail response into a single item object,
// unwrapping single-element list envelopes.
func normalizeDetail(raw []byte) (map[string]any, error) {
	var item map[string]any
	if err := json.Unmarshal(raw, &item); err == nil {
		for _, field := range listFields {
			if inner, ok := item[field].([]any); ok && len(inner) > 0 {
				if first, ok := inner[0].(map[string]any); ok {
					return first, nil
				}
			}
		}
		return item, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return items[0], nil
	}
	return nil, fmt.Errorf("not a detail object")
}

// recordFromPayload maps one normalized item to a Record using the
// field priority lists.
func recordFromPayload(feed types.Feed, item map[string]any) types.Record {
	return types.Record{
		ID:           stringField(item, idFields...),
		Feed:         feed,
		LeadID:       stringField(item, leadIDFields...),
		ToNumber:     stringField(item, toFields...),
		FromNumber:   stringField(item, fromFields...),
		OwnerName:    stringField(item, ownerNameFields...),
		OwnerEmail:   stringField(item, ownerMailFields...),
		Timestamp:    timeField(item, timeFields...),
		DurationSecs: numberField(item, durationFields...),
		Amount:       numberField(item, amountFields...),
	}
}

// leadFromPayload maps one normalized lead item to a Lead.
func leadFromPayload(item map[string]any) types.Lead {
	return types.Lead{
		ID:         stringField(item, idFields...),
		OwnerName:  stringField(item, leadNameFields...),
		OwnerEmail: stringField(item, leadMailFields...),
	}
}

// stringField returns the first non-empty string value among names.
// Numeric ids are stringified since the provider is inconsistent about
// quoting them.
func stringField(item map[string]any, names ...string) string {
	for _, name := range names {
		switch v := item[name].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// numberField returns the first parseable numeric value among names.
func numberField(item map[string]any, names ...string) float64 {
	for _, name := range names {
		switch v := item[name].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// timeField returns the first parseable timestamp among names.
func timeField(item map[string]any, names ...string) time.Time {
	for _, name := range names {
		s, ok := item[name].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}
