package sentry

import "time"

// Config holds the alert pipeline configuration.
type Config struct {
	Cooldown            time.Duration `mapstructure:"cooldown"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	MaxHistory          int           `mapstructure:"max_history"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	PersistencePath     string        `mapstructure:"persistence_path"`
	SnapshotInterval    time.Duration `mapstructure:"snapshot_interval"`
	ScannerPhy          string        `mapstructure:"scanner_phy"`
	RetentionPeriod     time.Duration `mapstructure:"retention_period"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`

	// Patterns overrides the built-in surveillance SSID table.
	// Populated from config by the module, not by mapstructure.
	Patterns []SurveillancePattern `mapstructure:"-"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Cooldown:            30 * time.Second,
		PollInterval:        5 * time.Second,
		MaxHistory:          500,
		ConfidenceThreshold: 0.70,
		SnapshotInterval:    5 * time.Minute,
		ScannerPhy:          "wifi",
		RetentionPeriod:     30 * 24 * time.Hour,
		MaintenanceInterval: 1 * time.Hour,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig. An empty
// PersistencePath stays empty: that disables snapshot persistence.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = d.SnapshotInterval
	}
	if c.ScannerPhy == "" {
		c.ScannerPhy = d.ScannerPhy
	}
	if c.RetentionPeriod <= 0 {
		c.RetentionPeriod = d.RetentionPeriod
	}
	if c.MaintenanceInterval <= 0 {
		c.MaintenanceInterval = d.MaintenanceInterval
	}
	if len(c.Patterns) == 0 {
		c.Patterns = DefaultSurveillancePatterns()
	}
	return c
}
