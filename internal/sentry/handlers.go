package sentry

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/alerts", Handler: m.handleRecentAlerts},
		{Method: "GET", Path: "/alerts/archive", Handler: m.handleArchivedAlerts},
		{Method: "POST", Path: "/alerts/{id}/ack", Handler: m.handleAcknowledge},
		{Method: "GET", Path: "/summary", Handler: m.handleSummary},
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
		{Method: "POST", Path: "/reset/cluster/{id}", Handler: m.handleResetCluster},
		{Method: "POST", Path: "/reset/device/{id}", Handler: m.handleResetDevice},
	}
}

// handleRecentAlerts returns the in-memory alert history, newest first.
func (m *Module) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	limit := sentryParseLimit(r, 100)
	alerts := m.orch.RecentAlerts(limit)
	if alerts == nil {
		alerts = []Alert{}
	}
	sentryWriteJSON(w, http.StatusOK, alerts)
}

// handleArchivedAlerts queries the durable alert archive with optional
// type, since, and limit filters.
func (m *Module) handleArchivedAlerts(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		sentryWriteError(w, http.StatusServiceUnavailable, "alert archive not available")
		return
	}

	filter := AlertFilter{
		Type:  r.URL.Query().Get("type"),
		Limit: sentryParseLimit(r, 100),
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			sentryWriteError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}

	alerts, err := m.store.ListAlerts(r.Context(), filter)
	if err != nil {
		m.logger.Warn("failed to list archived alerts", zap.Error(err))
		sentryWriteError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	sentryWriteJSON(w, http.StatusOK, alerts)
}

// handleAcknowledge marks an alert as acknowledged in history and in the
// archive. An entry that has rolled out of history but still sits in the
// archive counts as found.
func (m *Module) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		sentryWriteError(w, http.StatusBadRequest, "alert id is required")
		return
	}

	found := m.orch.Acknowledge(id)
	if m.store != nil {
		archived, err := m.store.SetAcknowledged(r.Context(), id)
		if err != nil {
			m.logger.Warn("failed to acknowledge archived alert",
				zap.String("alert_id", id), zap.Error(err))
		} else if archived {
			found = true
		}
	}
	if !found {
		sentryWriteError(w, http.StatusNotFound, "no alert with that id")
		return
	}
	sentryWriteJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "id": id})
}

// handleSummary returns alert totals by type, with the spoken rendering.
func (m *Module) handleSummary(w http.ResponseWriter, r *http.Request) {
	s := m.orch.Summary()
	sentryWriteJSON(w, http.StatusOK, map[string]any{
		"total":   s.Total,
		"by_type": s.ByType,
		"spoken":  s.Spoken(),
	})
}

// handleStatus returns the pipeline's operational state.
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	sentryWriteJSON(w, http.StatusOK, map[string]any{
		"running":       m.orch.Running(),
		"history_len":   m.orch.HistoryLen(),
		"poll_interval": m.cfg.PollInterval.String(),
		"cooldown":      m.cfg.Cooldown.String(),
		"patterns":      len(m.cfg.Patterns),
		"archive":       m.store != nil,
	})
}

// handleResetCluster clears a cluster from the dedup set so it can alert
// again on its next observation.
func (m *Module) handleResetCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		sentryWriteError(w, http.StatusBadRequest, "cluster id is required")
		return
	}
	m.orch.ResetCluster(id)
	sentryWriteJSON(w, http.StatusOK, map[string]string{"status": "reset", "cluster_id": id})
}

// handleResetDevice clears a device from the dedup set.
func (m *Module) handleResetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		sentryWriteError(w, http.StatusBadRequest, "device id is required")
		return
	}
	m.orch.ResetDevice(id)
	sentryWriteJSON(w, http.StatusOK, map[string]string{"status": "reset", "device_id": id})
}

// -- helpers --

func sentryWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem type URIs, matching the slug style of the server package.
var sentryProblemTypes = map[int]string{
	http.StatusBadRequest:          "https://airwarden.dev/problems/bad-request",
	http.StatusNotFound:            "https://airwarden.dev/problems/not-found",
	http.StatusInternalServerError: "https://airwarden.dev/problems/internal-error",
	http.StatusServiceUnavailable:  "https://airwarden.dev/problems/service-unavailable",
}

func sentryWriteError(w http.ResponseWriter, status int, detail string) {
	problemType, ok := sentryProblemTypes[status]
	if !ok {
		problemType = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   problemType,
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func sentryParseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
