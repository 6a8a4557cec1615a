package sentry

import (
	"database/sql"

	"github.com/airwarden/airwarden/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create sentry alert archive",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS sentry_alerts (
						id TEXT PRIMARY KEY,
						alert_type TEXT NOT NULL,
						priority INTEGER NOT NULL,
						message TEXT NOT NULL,
						cluster_id TEXT,
						device_id TEXT,
						network_id TEXT,
						confidence REAL NOT NULL DEFAULT 0,
						metadata TEXT,
						acknowledged INTEGER NOT NULL DEFAULT 0,
						emitted_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_sentry_alerts_time ON sentry_alerts(emitted_at)`,
					`CREATE INDEX IF NOT EXISTS idx_sentry_alerts_type_time ON sentry_alerts(alert_type, emitted_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
