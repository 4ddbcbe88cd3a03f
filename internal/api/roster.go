package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/roster"
)

// RosterHandler serves the loaded agent roster for card rendering
type RosterHandler struct {
	roster *roster.Roster
	logger zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(r *roster.Roster, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		roster: r,
		logger: logger.With().Str("component", "roster_handler").Logger(),
	}
}

// rosterAgent is the outward roster shape; phone numbers stay internal.
type rosterAgent struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Headshot string `json:"headshot,omitempty"`
}

// GetRoster handles GET /api/roster
func (h *RosterHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	entries := h.roster.Entries()
	agents := make([]rosterAgent, 0, len(entries))
	for _, entry := range entries {
		agents = append(agents, rosterAgent{
			Name:     entry.Name,
			Email:    roster.NormalizeEmail(entry.Email),
			Headshot: entry.Headshot,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]rosterAgent{"agents": agents})
}
