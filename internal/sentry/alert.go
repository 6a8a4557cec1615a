package sentry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Alert type identifiers, one per detection source.
const (
	TypeCorrelationCluster   = "correlation_cluster"
	TypeConvergenceMilestone = "convergence_milestone"
	TypeSurveillance         = "surveillance_detection"
	TypeKismetIDS            = "kismet_ids"
)

// Priority orders alerts by urgency. Lower value = more urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
	PriorityInfo     Priority = 5
)

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// SpokenPrefix returns the phrase prepended to voice delivery for this
// priority. LOW and INFO alerts are spoken without a prefix.
func (p Priority) SpokenPrefix() string {
	switch p {
	case PriorityCritical:
		return "Critical alert. "
	case PriorityHigh:
		return "Alert. "
	case PriorityMedium:
		return "Notice. "
	default:
		return ""
	}
}

// ParsePriority converts a priority name to its value. Matching is
// case-insensitive. Returns false for unknown names.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(s) {
	case "critical":
		return PriorityCritical, true
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "info":
		return PriorityInfo, true
	default:
		return 0, false
	}
}

// Alert is a single alert-worthy event. All fields except Acknowledged are
// immutable after creation; a changed situation produces a new Alert with a
// new ID rather than mutating an existing one.
type Alert struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Priority     Priority       `json:"priority"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
	ClusterID    string         `json:"cluster_id,omitempty"`
	DeviceID     string         `json:"device_id,omitempty"`
	NetworkID    string         `json:"network_id,omitempty"`
	Confidence   float64        `json:"confidence"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Acknowledged bool           `json:"acknowledged"`
}

// NewAlertID derives a deterministic alert ID from a stable (kind, key)
// pair. Identical inputs always yield the identical ID, which is what makes
// deduplication idempotent across process restarts.
func NewAlertID(kind, key string) string {
	digest := sha256.Sum256([]byte(kind + ":" + key))
	return kind + "-" + hex.EncodeToString(digest[:])[:12]
}
