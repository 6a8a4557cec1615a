package sentry

import "strings"

// SurveillancePattern maps a network-name substring to a device type and
// alert priority. The table is ordered: the first matching entry wins.
type SurveillancePattern struct {
	Pattern    string
	DeviceType string
	Priority   Priority
}

// DefaultSurveillancePatterns returns the built-in surveillance SSID table.
func DefaultSurveillancePatterns() []SurveillancePattern {
	return []SurveillancePattern{
		{Pattern: "FLOCK", DeviceType: "ALPR Camera", Priority: PriorityCritical},
		{Pattern: "RAVEN", DeviceType: "Acoustic Sensor", Priority: PriorityCritical},
		{Pattern: "PENGUIN", DeviceType: "Surveillance Camera", Priority: PriorityHigh},
		{Pattern: "FS EXT", DeviceType: "Flock Extender", Priority: PriorityHigh},
		{Pattern: "SHOTSPOT", DeviceType: "Gunshot Sensor", Priority: PriorityCritical},
		{Pattern: "PIGVISION", DeviceType: "Surveillance System", Priority: PriorityHigh},
	}
}

// matchPattern returns the first pattern whose substring appears in the
// network name, case-insensitively.
func matchPattern(patterns []SurveillancePattern, networkName string) (SurveillancePattern, bool) {
	upper := strings.ToUpper(networkName)
	for _, p := range patterns {
		if strings.Contains(upper, strings.ToUpper(p.Pattern)) {
			return p, true
		}
	}
	return SurveillancePattern{}, false
}

// clusterTypePriority maps correlation cluster types to alert priorities.
// Types not listed here are INFO and never auto-alerted.
var clusterTypePriority = map[string]Priority{
	"pnl_match":         PriorityHigh,
	"cross_linked":      PriorityMedium,
	"pnl_cross_vendor":  PriorityMedium,
	"manufacturer_rssi": PriorityLow,
	"bt_name":           PriorityLow,
	"manufacturer":      PriorityInfo,
	"pnl_overlap":       PriorityLow,
	"bt_rssi":           PriorityInfo,
	"randomised":        PriorityInfo,
}

// clusterTypeDescription maps cluster types to voice-friendly phrases.
var clusterTypeDescription = map[string]string{
	"pnl_match":         "fingerprint-matched device group",
	"cross_linked":      "cross-protocol linked device",
	"pnl_cross_vendor":  "multi-vendor device cluster",
	"manufacturer_rssi": "vendor-grouped device",
	"bt_name":           "named Bluetooth device group",
	"pnl_overlap":       "partial fingerprint match",
}

func describeClusterType(clusterType string) string {
	if d, ok := clusterTypeDescription[clusterType]; ok {
		return d
	}
	return "device cluster"
}

func priorityForClusterType(clusterType string) Priority {
	if p, ok := clusterTypePriority[clusterType]; ok {
		return p
	}
	return PriorityInfo
}
