package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/aggregator"
	"github.com/salesboard/backend/internal/timewindow"
	"github.com/salesboard/backend/internal/types"
)

// Pipeline is the aggregation surface the handlers consume.
type Pipeline interface {
	Dashboard(ctx context.Context, kind timewindow.Kind, days int) *types.DashboardPayload
}

// DashboardHandler serves the leaderboard payload to the presentation
// layer.
type DashboardHandler struct {
	svc         Pipeline
	defaultDays int
	logger      zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(svc Pipeline, defaultDays int, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:         svc,
		defaultDays: defaultDays,
		logger:      logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// windowKind maps the query parameter onto a window kind.
func windowKind(param string) (timewindow.Kind, bool) {
	switch param {
	case "", "today":
		return timewindow.KindToday, true
	case "week", "weekly", "weekly-friday":
		return timewindow.KindWeeklyFriday, true
	case "last", "last-n-days":
		return timewindow.KindLastNDays, true
	default:
		return "", false
	}
}

// GetDashboard returns the aggregated leaderboard payload
// GET /api/dashboard?window=today|week|last&days=N
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	kind, ok := windowKind(r.URL.Query().Get("window"))
	if !ok {
		http.Error(w, "unknown window", http.StatusBadRequest)
		return
	}

	days := h.defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	payload := h.svc.Dashboard(r.Context(), kind, days)

	// A systemic failure ships the same payload shape, zero-valued,
	// behind a 502 so the board renders a "no data" state instead of
	// crashing.
	status := http.StatusOK
	if payload.Error != "" {
		status = http.StatusBadGateway
		h.logger.Warn().Str("window", string(kind)).Str("error", payload.Error).Msg("serving degraded payload")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// highlightResponse carries the top/bottom classification for one
// metric in the current sort order.
type highlightResponse struct {
	Metric string   `json:"metric"`
	Top    []string `json:"top"`
	Bottom []string `json:"bottom"`
}

// GetHighlights returns the top-3/bottom-3 agents for a metric,
// recomputed from the current ranked order on every request
// GET /api/dashboard/highlights?metric=av&window=today
func (h *DashboardHandler) GetHighlights(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = types.MetricAV
	}
	switch metric {
	case types.MetricCalls, types.MetricTalk, types.MetricSales, types.MetricAV:
	default:
		http.Error(w, "unknown metric", http.StatusBadRequest)
		return
	}

	kind, ok := windowKind(r.URL.Query().Get("window"))
	if !ok {
		http.Error(w, "unknown window", http.StatusBadRequest)
		return
	}

	payload := h.svc.Dashboard(r.Context(), kind, h.defaultDays)
	if payload.Error != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": payload.Error})
		return
	}

	top, bottom := aggregator.TopBottom(payload.Rank[metric], 3)
	if top == nil {
		top = []string{}
	}
	if bottom == nil {
		bottom = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(highlightResponse{Metric: metric, Top: top, Bottom: bottom})
}
