package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/types"
)

// Roster is the static lookup table mapping contact identifiers to
// agents. Loaded once per process; read-only afterwards, so it is safe
// for unsynchronized concurrent reads during aggregation runs.
type Roster struct {
	entries   []types.RosterEntry
	byEmail   map[string]int
	byPhone   map[string]int
	overrides map[string]string // lowercased provider name -> canonical name
	logger    zerolog.Logger
}

// document accepts both roster source shapes: a bare entry array or an
// object with an "agents" field, optionally carrying name overrides.
type document struct {
	Agents    []types.RosterEntry `json:"agents"`
	Overrides map[string]string   `json:"overrides"`
}

// Load reads and parses the roster file at path.
func Load(path string, logger zerolog.Logger) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return Parse(data, logger)
}

// Parse builds a Roster from raw JSON.
func Parse(data []byte, logger zerolog.Logger) (*Roster, error) {
	var entries []types.RosterEntry
	var overrides map[string]string

	if err := json.Unmarshal(data, &entries); err != nil {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse roster: %w", err)
		}
		entries = doc.Agents
		overrides = doc.Overrides
	}

	r := &Roster{
		entries:   entries,
		byEmail:   make(map[string]int),
		byPhone:   make(map[string]int),
		overrides: make(map[string]string),
		logger:    logger.With().Str("component", "roster").Logger(),
	}

	for i, entry := range entries {
		if email := NormalizeEmail(entry.Email); email != "" {
			r.byEmail[email] = i
		}
		for _, phone := range entry.AllPhones() {
			if p := NormalizePhone(phone); p != "" {
				r.byPhone[p] = i
			}
		}
	}
	for from, to := range overrides {
		r.overrides[strings.ToLower(strings.TrimSpace(from))] = to
	}

	r.logger.Info().
		Int("agents", len(entries)).
		Int("phones", len(r.byPhone)).
		Int("overrides", len(r.overrides)).
		Msg("roster loaded")

	return r, nil
}

// Entries returns the loaded roster entries in file order.
func (r *Roster) Entries() []types.RosterEntry {
	return r.entries
}

// Size returns the number of roster agents.
func (r *Roster) Size() int {
	return len(r.entries)
}

// ByEmail looks up an agent by email. The key is normalized before
// comparison.
func (r *Roster) ByEmail(email string) (types.AgentIdentity, bool) {
	i, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return types.AgentIdentity{}, false
	}
	return r.identity(i), true
}

// ByPhone looks up an agent by phone number. The key is normalized to
// canonical digits before comparison.
func (r *Roster) ByPhone(phone string) (types.AgentIdentity, bool) {
	p := NormalizePhone(phone)
	if p == "" {
		return types.AgentIdentity{}, false
	}
	i, ok := r.byPhone[p]
	if !ok {
		return types.AgentIdentity{}, false
	}
	return r.identity(i), true
}

// ByName looks up an agent by display name, applying the override
// remap first. Matching is case-insensitive on trimmed names.
func (r *Roster) ByName(name string) (types.AgentIdentity, bool) {
	canonical := r.CanonicalName(name)
	for i, entry := range r.entries {
		if strings.EqualFold(strings.TrimSpace(entry.Name), canonical) {
			return r.identity(i), true
		}
	}
	return types.AgentIdentity{}, false
}

// CanonicalName maps a provider-supplied display name to the roster's
// canonical spelling. Roster names win over provider names so the same
// human is never split into two buckets by formatting drift.
func (r *Roster) CanonicalName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.overrides[key]; ok {
		return canonical
	}
	for _, entry := range r.entries {
		if strings.EqualFold(strings.TrimSpace(entry.Name), strings.TrimSpace(name)) {
			return entry.Name
		}
	}
	return strings.TrimSpace(name)
}

func (r *Roster) identity(i int) types.AgentIdentity {
	entry := r.entries[i]
	return types.AgentIdentity{
		Name:     entry.Name,
		Email:    NormalizeEmail(entry.Email),
		Headshot: entry.Headshot,
	}
}

// NormalizeEmail lowercases and trims an email for use as a map key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone reduces a raw phone string to canonical digits-only
// form. An 11-digit number with a leading US country code is reduced
// to its 10-digit form so "+1 (555) 123-4567" and "5551234567" key
// identically.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
