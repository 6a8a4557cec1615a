package sentry

// history is a bounded, insertion-ordered buffer of emitted alerts with an
// ID index for O(1) re-emission checks. Oldest entries are evicted first.
// Not safe for concurrent use; the orchestrator's mutex guards it.
type history struct {
	max     int
	entries []*Alert
	ids     map[string]struct{}
}

func newHistory(max int) *history {
	if max <= 0 {
		max = 1
	}
	return &history{
		max: max,
		ids: make(map[string]struct{}, max),
	}
}

// Contains reports whether an alert with the given ID is in the buffer.
func (h *history) Contains(id string) bool {
	_, ok := h.ids[id]
	return ok
}

// Append adds an alert, evicting the oldest entry when at capacity.
func (h *history) Append(a *Alert) {
	if len(h.entries) >= h.max {
		evicted := h.entries[0]
		h.entries = h.entries[1:]
		delete(h.ids, evicted.ID)
	}
	h.entries = append(h.entries, a)
	h.ids[a.ID] = struct{}{}
}

// Len returns the number of buffered alerts.
func (h *history) Len() int {
	return len(h.entries)
}

// Recent returns up to limit alerts, newest first, as copies.
func (h *history) Recent(limit int) []Alert {
	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make([]Alert, 0, limit)
	for i := len(h.entries) - 1; i >= len(h.entries)-limit; i-- {
		out = append(out, *h.entries[i])
	}
	return out
}

// Snapshot returns all buffered alerts in insertion order, as copies.
func (h *history) Snapshot() []Alert {
	out := make([]Alert, len(h.entries))
	for i, a := range h.entries {
		out[i] = *a
	}
	return out
}

// Acknowledge marks the alert with the given ID as acknowledged.
// Returns whether a match was found.
func (h *history) Acknowledge(id string) bool {
	if !h.Contains(id) {
		return false
	}
	for _, a := range h.entries {
		if a.ID == id {
			a.Acknowledged = true
			return true
		}
	}
	return false
}

// CountByType returns alert counts grouped by alert type.
func (h *history) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, a := range h.entries {
		counts[a.Type]++
	}
	return counts
}
