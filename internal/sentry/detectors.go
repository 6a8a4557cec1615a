package sentry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// The detectors below share one failure policy: a collaborator error yields
// an empty candidate list for that source and a warning log, never a cycle
// abort. Collaborator calls happen before the lock is taken; only the
// dedup-state transition runs under it.

// detectClusters produces candidates for new high-confidence correlation
// clusters. The cluster ID joins the dedup set as soon as a candidate is
// generated, guaranteeing at-most-once generation per ID even within one
// cycle.
func (o *Orchestrator) detectClusters(ctx context.Context) []*Alert {
	if o.deps.Correlator == nil {
		return nil
	}

	clusters, err := o.deps.Correlator.Clusters(ctx)
	if err != nil {
		o.logger.Warn("cluster query failed", zap.Error(err))
		return nil
	}

	// Iterate in sorted order so candidate order is deterministic.
	ids := make([]string, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*Alert
	for _, cid := range ids {
		if _, seen := o.alertedClusters[cid]; seen {
			continue
		}

		cluster := clusters[cid]
		if cluster.Confidence < o.cfg.ConfidenceThreshold {
			continue
		}

		priority := priorityForClusterType(cluster.ClusterType)
		if priority > PriorityLow {
			// INFO-class cluster types never auto-alert.
			continue
		}

		o.alertedClusters[cid] = struct{}{}

		label := cluster.Label
		if label == "" {
			label = cid
		}

		networkIDs := cluster.NetworkIDs
		if len(networkIDs) > 5 {
			networkIDs = networkIDs[:5]
		}

		out = append(out, &Alert{
			ID:         NewAlertID("cluster", cid),
			Type:       TypeCorrelationCluster,
			Priority:   priority,
			Message:    clusterMessage(label, cluster),
			Timestamp:  o.now().UTC(),
			ClusterID:  cid,
			Confidence: cluster.Confidence,
			Metadata: map[string]any{
				"cluster_type": cluster.ClusterType,
				"member_count": cluster.MemberCount,
				"network_ids":  networkIDs,
			},
		})
	}
	return out
}

// clusterMessage builds a concise, voice-friendly cluster alert message.
func clusterMessage(label string, c Cluster) string {
	parts := []string{
		fmt.Sprintf("New %s identified: %s.", describeClusterType(c.ClusterType), label),
		fmt.Sprintf("Confidence %.0f%% with %d members.", c.Confidence*100, c.MemberCount),
	}
	if len(c.NetworkIDs) > 0 {
		n := c.NetworkIDs
		if len(n) > 3 {
			n = n[:3]
		}
		parts = append(parts, fmt.Sprintf("Networks: %s.", strings.Join(n, ", ")))
	}
	return strings.Join(parts, " ")
}

// convergenceMilestones are the fixed crossing points, in percent.
var convergenceMilestones = []float64{50, 90, 100}

// detectConvergence fires at most once per crossing of each milestone,
// comparing the previous watermark against the current percentage. The
// watermark advances unconditionally every cycle, milestone or not.
func (o *Orchestrator) detectConvergence(ctx context.Context) []*Alert {
	if o.deps.Correlator == nil {
		return nil
	}

	info, err := o.deps.Correlator.ConvergenceInfo(ctx)
	if err != nil {
		o.logger.Warn("convergence query failed", zap.Error(err))
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*Alert
	for _, milestone := range convergenceMilestones {
		if o.convergencePct < milestone && milestone <= info.ConvergencePct {
			out = append(out, &Alert{
				ID:        NewAlertID("convergence", fmt.Sprintf("%g", milestone)),
				Type:      TypeConvergenceMilestone,
				Priority:  PriorityInfo,
				Message:   convergenceMessage(info),
				Timestamp: o.now().UTC(),
				Metadata: map[string]any{
					"convergence_pct": info.ConvergencePct,
					"converged":       info.Converged,
					"rssi_gap_dbm":    info.RSSIGapDBm,
					"step":            info.Step,
				},
			})
		}
	}

	o.convergencePct = info.ConvergencePct
	return out
}

func convergenceMessage(info ConvergenceInfo) string {
	if info.Converged {
		return fmt.Sprintf(
			"Correlation engine fully converged at step %d. WiFi tolerance is %.1f dBm. Clusters are now at maximum precision.",
			info.Step, info.RSSIGapDBm,
		)
	}
	return fmt.Sprintf(
		"Correlation engine reached %.0f%% convergence. Current WiFi tolerance: %.1f dBm.",
		info.ConvergencePct, info.RSSIGapDBm,
	)
}

// detectSurveillance scans wireless devices for known surveillance network
// name patterns. First matching pattern wins; matched device IDs join the
// dedup set immediately.
func (o *Orchestrator) detectSurveillance(ctx context.Context) []*Alert {
	if o.deps.Scanner == nil {
		return nil
	}

	devices, err := o.deps.Scanner.Devices(ctx, o.cfg.ScannerPhy)
	if err != nil {
		o.logger.Warn("device scan failed", zap.Error(err))
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*Alert
	for _, dev := range devices {
		if _, seen := o.alertedDevices[dev.DeviceID]; seen {
			continue
		}

		p, ok := matchPattern(o.cfg.Patterns, dev.NetworkName)
		if !ok {
			continue
		}

		o.alertedDevices[dev.DeviceID] = struct{}{}

		out = append(out, &Alert{
			ID:       NewAlertID("surveillance", dev.DeviceID),
			Type:     TypeSurveillance,
			Priority: p.Priority,
			Message: fmt.Sprintf("Surveillance device detected: %s. SSID %s, signal %d dBm.",
				p.DeviceType, dev.NetworkName, dev.SignalDBm),
			Timestamp: o.now().UTC(),
			DeviceID:  dev.DeviceID,
			NetworkID: dev.NetworkName,
			Metadata: map[string]any{
				"device_type":     p.DeviceType,
				"signal_dbm":      dev.SignalDBm,
				"pattern_matched": p.Pattern,
			},
		})
	}
	return out
}

// detectScannerAlerts forwards the scanner's own intrusion alerts. Upstream
// IDs are already unique, so this source dedups purely through history.
func (o *Orchestrator) detectScannerAlerts(ctx context.Context) []*Alert {
	if o.deps.Scanner == nil {
		return nil
	}

	recent, err := o.deps.Scanner.RecentAlerts(ctx)
	if err != nil {
		o.logger.Warn("scanner alert query failed", zap.Error(err))
		return nil
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*Alert
	for _, sa := range recent {
		key := sa.ID
		if key == "" {
			key = sa.Header
		}
		id := NewAlertID("kismet_alert", key)
		if o.hist.Contains(id) {
			continue
		}

		msg := fmt.Sprintf("Kismet alert: %s.", sa.Header)
		if sa.Text != "" {
			text := sa.Text
			if len(text) > 80 {
				text = text[:80]
			}
			msg += " " + text
		}

		out = append(out, &Alert{
			ID:        id,
			Type:      TypeKismetIDS,
			Priority:  PriorityMedium,
			Message:   msg,
			Timestamp: o.now().UTC(),
			Metadata: map[string]any{
				"scanner_alert_type": sa.Header,
			},
		})
	}
	return out
}
