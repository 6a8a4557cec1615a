package sentry

import "testing"

func TestNewAlertID(t *testing.T) {
	a := NewAlertID("cluster", "c1")
	b := NewAlertID("cluster", "c1")
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}

	if NewAlertID("cluster", "c1") == NewAlertID("surveillance", "c1") {
		t.Error("different kinds produced identical IDs")
	}
	if NewAlertID("cluster", "c1") == NewAlertID("cluster", "c2") {
		t.Error("different keys produced identical IDs")
	}

	// kind prefix + dash + 12 hex chars
	if len(a) != len("cluster")+1+12 {
		t.Errorf("ID %q has unexpected length", a)
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityCritical, "critical"},
		{PriorityHigh, "high"},
		{PriorityMedium, "medium"},
		{PriorityLow, "low"},
		{PriorityInfo, "info"},
		{Priority(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		ok   bool
	}{
		{"critical", PriorityCritical, true},
		{"CRITICAL", PriorityCritical, true},
		{"High", PriorityHigh, true},
		{"medium", PriorityMedium, true},
		{"low", PriorityLow, true},
		{"info", PriorityInfo, true},
		{"urgent", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePriority(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePriority(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSpokenPrefix(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityCritical, "Critical alert. "},
		{PriorityHigh, "Alert. "},
		{PriorityMedium, "Notice. "},
		{PriorityLow, ""},
		{PriorityInfo, ""},
	}
	for _, tt := range tests {
		if got := tt.p.SpokenPrefix(); got != tt.want {
			t.Errorf("Priority(%d).SpokenPrefix() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
