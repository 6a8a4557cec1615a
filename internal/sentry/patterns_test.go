package sentry

import "testing"

func TestMatchPattern(t *testing.T) {
	patterns := DefaultSurveillancePatterns()

	tests := []struct {
		network  string
		device   string
		priority Priority
		match    bool
	}{
		{"FLOCK-42891", "ALPR Camera", PriorityCritical, true},
		{"flock-hidden", "ALPR Camera", PriorityCritical, true}, // case-insensitive
		{"RAVEN-003", "Acoustic Sensor", PriorityCritical, true},
		{"penguin-cam7", "Surveillance Camera", PriorityHigh, true},
		{"FS EXT 12", "Flock Extender", PriorityHigh, true},
		{"ShotSpot-NW", "Gunshot Sensor", PriorityCritical, true},
		{"PIGVISION-4", "Surveillance System", PriorityHigh, true},
		{"HomeWiFi", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		p, ok := matchPattern(patterns, tt.network)
		if ok != tt.match {
			t.Errorf("matchPattern(%q) matched = %v, want %v", tt.network, ok, tt.match)
			continue
		}
		if !ok {
			continue
		}
		if p.DeviceType != tt.device || p.Priority != tt.priority {
			t.Errorf("matchPattern(%q) = (%s, %v), want (%s, %v)",
				tt.network, p.DeviceType, p.Priority, tt.device, tt.priority)
		}
	}
}

func TestMatchPattern_FirstMatchWins(t *testing.T) {
	patterns := []SurveillancePattern{
		{Pattern: "CAM", DeviceType: "first", Priority: PriorityHigh},
		{Pattern: "CAMERA", DeviceType: "second", Priority: PriorityCritical},
	}
	p, ok := matchPattern(patterns, "street-CAMERA-3")
	if !ok || p.DeviceType != "first" {
		t.Errorf("got (%v, %v), want the earlier table entry", p.DeviceType, ok)
	}
}

func TestPriorityForClusterType(t *testing.T) {
	tests := []struct {
		clusterType string
		want        Priority
	}{
		{"pnl_match", PriorityHigh},
		{"cross_linked", PriorityMedium},
		{"pnl_cross_vendor", PriorityMedium},
		{"manufacturer_rssi", PriorityLow},
		{"bt_name", PriorityLow},
		{"pnl_overlap", PriorityLow},
		{"manufacturer", PriorityInfo},
		{"bt_rssi", PriorityInfo},
		{"randomised", PriorityInfo},
		{"never_seen_before", PriorityInfo},
	}
	for _, tt := range tests {
		if got := priorityForClusterType(tt.clusterType); got != tt.want {
			t.Errorf("priorityForClusterType(%q) = %v, want %v", tt.clusterType, got, tt.want)
		}
	}
}

func TestDescribeClusterType(t *testing.T) {
	if got := describeClusterType("pnl_match"); got != "fingerprint-matched device group" {
		t.Errorf("describeClusterType(pnl_match) = %q", got)
	}
	if got := describeClusterType("unknown_type"); got != "device cluster" {
		t.Errorf("describeClusterType fallback = %q, want %q", got, "device cluster")
	}
}
