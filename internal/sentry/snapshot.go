package sentry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// snapshot is the durable pipeline state: the dedup sets, the convergence
// watermark, and the bounded history. These alone determine whether a
// re-observed situation produces a new alert after a restart.
type snapshot struct {
	AlertedClusterIDs  []string `json:"alerted_cluster_ids"`
	AlertedDeviceIDs   []string `json:"alerted_device_ids"`
	LastConvergencePct float64  `json:"last_convergence_pct"`
	AlertHistory       []Alert  `json:"alert_history"`
}

// SaveSnapshot writes the durable state to the configured persistence path
// via write-to-temporary-then-rename, so a crash mid-write never corrupts
// the previous snapshot. No-op when persistence is disabled.
func (o *Orchestrator) SaveSnapshot() error {
	if o.cfg.PersistencePath == "" {
		return nil
	}

	o.mu.Lock()
	snap := snapshot{
		AlertedClusterIDs:  sortedKeys(o.alertedClusters),
		AlertedDeviceIDs:   sortedKeys(o.alertedDevices),
		LastConvergencePct: o.convergencePct,
		AlertHistory:       o.hist.Snapshot(),
	}
	o.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(o.cfg.PersistencePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := o.cfg.PersistencePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, o.cfg.PersistencePath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// loadSnapshot restores durable state at startup. A missing file is a cold
// start; a malformed file is treated the same way and logged, never
// propagated as a crash.
func (o *Orchestrator) loadSnapshot() {
	if o.cfg.PersistencePath == "" {
		return
	}

	data, err := os.ReadFile(o.cfg.PersistencePath)
	if err != nil {
		if !os.IsNotExist(err) {
			o.logger.Warn("snapshot read failed, starting cold", zap.Error(err))
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		o.logger.Warn("snapshot is malformed, starting cold",
			zap.String("path", o.cfg.PersistencePath),
			zap.Error(err),
		)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, id := range snap.AlertedClusterIDs {
		o.alertedClusters[id] = struct{}{}
	}
	for _, id := range snap.AlertedDeviceIDs {
		o.alertedDevices[id] = struct{}{}
	}
	o.convergencePct = snap.LastConvergencePct

	// Restoring history keeps the per-ID re-emission guard effective
	// across restarts.
	for i := range snap.AlertHistory {
		a := snap.AlertHistory[i]
		if o.hist.Contains(a.ID) {
			continue
		}
		o.hist.Append(&a)
	}

	o.logger.Info("alert state restored",
		zap.Int("clusters_tracked", len(o.alertedClusters)),
		zap.Int("devices_tracked", len(o.alertedDevices)),
		zap.Int("history_entries", o.hist.Len()),
	)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
