package sentry

import "context"

// Cluster is a correlation engine cluster snapshot: a group of device
// sightings believed to originate from one physical device.
type Cluster struct {
	Confidence  float64  `json:"confidence"`
	ClusterType string   `json:"cluster_type"`
	MemberCount int      `json:"member_count"`
	Label       string   `json:"label"`
	NetworkIDs  []string `json:"network_ids"`
}

// ConvergenceInfo reports the correlation engine's progress narrowing its
// matching tolerance toward the target value.
type ConvergenceInfo struct {
	ConvergencePct float64 `json:"convergence_pct"`
	Converged      bool    `json:"converged"`
	RSSIGapDBm     float64 `json:"rssi_gap_dbm"`
	Step           int     `json:"step"`
}

// WirelessDevice is a device observed by the wireless scanner.
type WirelessDevice struct {
	DeviceID    string `json:"device_id"`
	NetworkName string `json:"network_name"`
	SignalDBm   int    `json:"signal_dbm"`
}

// ScannerAlert is an intrusion-style alert raised by the wireless scanner.
// The ID is assigned upstream and is already unique.
type ScannerAlert struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Text   string `json:"text"`
}

// Correlator is the interface the orchestrator expects from the upstream
// correlation engine. Consumer-side; any implementation is substitutable,
// including test doubles.
type Correlator interface {
	Clusters(ctx context.Context) (map[string]Cluster, error)
	ConvergenceInfo(ctx context.Context) (ConvergenceInfo, error)
}

// DeviceScanner is the interface the orchestrator expects from the wireless
// scanner. Both calls may fail; failures yield an empty detection cycle for
// that source.
type DeviceScanner interface {
	Devices(ctx context.Context, phy string) ([]WirelessDevice, error)
	RecentAlerts(ctx context.Context) ([]ScannerAlert, error)
}

// VoiceSink delivers spoken alert text. Fire-and-forget from the
// orchestrator's perspective; failures are logged, never propagated.
type VoiceSink interface {
	Speak(ctx context.Context, text string) error
}
