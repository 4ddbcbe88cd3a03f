package identity

import (
	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/roster"
	"github.com/salesboard/backend/internal/types"
)

// Resolver maps a raw record to a canonical agent identity. Lead
// payloads are prefetched by the pipeline and consulted by id, so
// resolution itself is pure table lookups and safe to run over the
// whole batch synchronously.
type Resolver struct {
	roster *roster.Roster
	leads  map[string]types.Lead
	logger zerolog.Logger
}

// NewResolver creates a Resolver over the given roster and prefetched
// leads. leads may be nil when no records referenced a lead.
func NewResolver(r *roster.Roster, leads map[string]types.Lead, logger zerolog.Logger) *Resolver {
	return &Resolver{
		roster: r,
		leads:  leads,
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// Resolve applies the resolution chain, first match wins:
// explicit owner on the record, then the referenced lead's agent
// email, then phone-number roster matching (from before to, since
// outbound calls dial from the agent's line). Unmatched records get
// the Unknown sentinel.
func (r *Resolver) Resolve(rec types.Record) types.AgentIdentity {
	if id, ok := r.fromOwnerFields(rec.OwnerName, rec.OwnerEmail); ok {
		return id
	}

	if rec.LeadID != "" {
		if lead, ok := r.leads[rec.LeadID]; ok {
			if id, ok := r.fromOwnerFields(lead.OwnerName, lead.OwnerEmail); ok {
				return id
			}
		}
	}

	if id, ok := r.roster.ByPhone(rec.FromNumber); ok {
		return id
	}
	if id, ok := r.roster.ByPhone(rec.ToNumber); ok {
		return id
	}

	return types.AgentIdentity{Name: types.UnknownAgent}
}

// fromOwnerFields resolves an explicit owner name/email pair. Email is
// preferred since it is the stronger key; a name that misses the
// roster still yields an identity under its canonical spelling.
func (r *Resolver) fromOwnerFields(name, email string) (types.AgentIdentity, bool) {
	if email != "" {
		if id, ok := r.roster.ByEmail(email); ok {
			return id, true
		}
	}
	if name != "" {
		if id, ok := r.roster.ByName(name); ok {
			return id, true
		}
		return types.AgentIdentity{
			Name:  r.roster.CanonicalName(name),
			Email: roster.NormalizeEmail(email),
		}, true
	}
	return types.AgentIdentity{}, false
}
