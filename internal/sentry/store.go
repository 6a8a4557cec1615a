package sentry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SentryStore is the durable alert archive. Unlike the bounded in-memory
// history, the archive keeps every accepted alert until retention pruning.
type SentryStore struct {
	db *sql.DB
}

// NewSentryStore creates a store backed by the given database.
func NewSentryStore(db *sql.DB) *SentryStore {
	return &SentryStore{db: db}
}

// InsertAlert archives an accepted alert. Duplicate IDs are ignored: the
// archive mirrors history's at-most-once-per-ID property.
func (s *SentryStore) InsertAlert(ctx context.Context, a *Alert) error {
	var metadata any
	if len(a.Metadata) > 0 {
		data, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("marshal alert metadata: %w", err)
		}
		metadata = string(data)
	}

	ack := 0
	if a.Acknowledged {
		ack = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sentry_alerts (
			id, alert_type, priority, message, cluster_id, device_id,
			network_id, confidence, metadata, acknowledged, emitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, int(a.Priority), a.Message,
		nullable(a.ClusterID), nullable(a.DeviceID), nullable(a.NetworkID),
		a.Confidence, metadata, ack, a.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// AlertFilter narrows ListAlerts results. Zero values mean "no constraint".
type AlertFilter struct {
	Type  string
	Since time.Time
	Limit int
}

// ListAlerts returns archived alerts matching the filter, newest first.
func (s *SentryStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	query := `
		SELECT id, alert_type, priority, message, cluster_id, device_id,
		       network_id, confidence, metadata, acknowledged, emitted_at
		FROM sentry_alerts WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += " AND alert_type = ?"
		args = append(args, filter.Type)
	}
	if !filter.Since.IsZero() {
		query += " AND emitted_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	query += " ORDER BY emitted_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var priority, ack int
		var clusterID, deviceID, networkID, metadata sql.NullString
		if err := rows.Scan(
			&a.ID, &a.Type, &priority, &a.Message,
			&clusterID, &deviceID, &networkID,
			&a.Confidence, &metadata, &ack, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Priority = Priority(priority)
		a.ClusterID = clusterID.String
		a.DeviceID = deviceID.String
		a.NetworkID = networkID.String
		a.Acknowledged = ack != 0
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal alert metadata: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetAcknowledged updates the archived acknowledgment flag. Reports
// whether a row with that ID existed.
func (s *SentryStore) SetAcknowledged(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sentry_alerts SET acknowledged = 1 WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	return n > 0, nil
}

// PruneBefore deletes archived alerts emitted before the cutoff.
// Returns the number of rows removed.
func (s *SentryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sentry_alerts WHERE emitted_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
