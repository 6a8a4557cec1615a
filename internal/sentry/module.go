package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
	_ plugin.Validator    = (*Module)(nil)
)

// Module wraps the alert orchestrator as an AirWarden plugin. It owns the
// durable alert archive, forwards accepted alerts to the event bus, and runs
// the retention maintenance loop.
type Module struct {
	logger *zap.Logger
	cfg    Config
	collab Collaborators

	orch  *Orchestrator
	store *SentryStore
	bus   plugin.EventBus

	removeListener func()

	maintCancel context.CancelFunc
	maintDone   chan struct{}
}

// New creates a new sentry plugin instance.
func New() *Module {
	return &Module{}
}

// SetCollaborators injects the detection sources and voice sink. Must be
// called before Init; the composition root wires the concrete clients here.
func (m *Module) SetCollaborators(c Collaborators) {
	m.collab = c
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "sentry",
		Version:     "0.1.0",
		Description: "Alert orchestration for wireless surveillance detection",
		Roles:       []string{"alerting"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	var cfg Config
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal sentry config: %w", err)
		}
		cfg.Patterns = patternsFromConfig(deps.Config, m.logger)
	}
	m.cfg = cfg.withDefaults()

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "sentry", migrations()); err != nil {
			return fmt.Errorf("sentry migrations: %w", err)
		}
		m.store = NewSentryStore(deps.Store.DB())
	}

	m.orch = NewOrchestrator(m.cfg, m.collab, m.logger)
	m.removeListener = m.orch.AddListener(m.onAlert)

	m.logger.Info("sentry module initialized",
		zap.Int("patterns", len(m.cfg.Patterns)),
		zap.Bool("archive", m.store != nil),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	if m.cfg.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %.2f exceeds 1.0", m.cfg.ConfidenceThreshold)
	}
	if m.cfg.RetentionPeriod < m.cfg.MaintenanceInterval {
		return fmt.Errorf("retention_period %s is shorter than maintenance_interval %s",
			m.cfg.RetentionPeriod, m.cfg.MaintenanceInterval)
	}
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.orch.Start(ctx)

	if m.store != nil {
		maintCtx, cancel := context.WithCancel(context.Background())
		m.maintCancel = cancel
		m.maintDone = make(chan struct{})
		go m.maintenanceLoop(maintCtx)
	}

	m.logger.Info("sentry module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.maintCancel != nil {
		m.maintCancel()
		<-m.maintDone
		m.maintCancel = nil
	}
	if m.removeListener != nil {
		m.removeListener()
	}
	m.orch.Stop()
	m.logger.Info("sentry module stopped")
	return nil
}

// Orchestrator exposes the underlying pipeline, mainly for tests and the
// composition root.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orch
}

// onAlert archives every accepted alert and republishes it on the bus.
// Runs on the emitter's goroutine. The timeout scopes the archive insert
// only; async bus handlers outlive this call, so the publish context must
// not be canceled when it returns.
func (m *Module) onAlert(a Alert) {
	if m.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := m.store.InsertAlert(ctx, &a)
		cancel()
		if err != nil {
			m.logger.Warn("alert archive insert failed",
				zap.String("alert_id", a.ID),
				zap.Error(err),
			)
		}
	}

	if m.bus != nil {
		m.bus.PublishAsync(context.Background(), plugin.Event{
			Topic:     TopicAlertEmitted,
			Source:    "sentry",
			Timestamp: a.Timestamp,
			Payload:   a,
		})
	}
}

// maintenanceLoop prunes archived alerts older than the retention period.
func (m *Module) maintenanceLoop(ctx context.Context) {
	defer close(m.maintDone)

	ticker := time.NewTicker(m.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.RetentionPeriod)
			pruned, err := m.store.PruneBefore(ctx, cutoff)
			if err != nil {
				m.logger.Warn("alert archive prune failed", zap.Error(err))
				continue
			}
			if pruned > 0 {
				m.logger.Info("pruned archived alerts", zap.Int64("count", pruned))
			}
		}
	}
}

// patternsFromConfig reads surveillance pattern overrides from the module
// config. Returns nil when none are configured, which keeps the built-in
// table. Malformed entries are skipped with a warning rather than failing
// the whole module.
func patternsFromConfig(cfg plugin.Config, logger *zap.Logger) []SurveillancePattern {
	if !cfg.IsSet("patterns") {
		return nil
	}

	raw, ok := cfg.Get("patterns").([]any)
	if !ok {
		logger.Warn("surveillance patterns config is not a list, using defaults")
		return nil
	}

	var out []SurveillancePattern
	for i, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			logger.Warn("skipping malformed surveillance pattern", zap.Int("index", i))
			continue
		}

		pattern, _ := fields["pattern"].(string)
		deviceType, _ := fields["device_type"].(string)
		priorityName, _ := fields["priority"].(string)
		if pattern == "" || deviceType == "" {
			logger.Warn("skipping surveillance pattern with missing fields", zap.Int("index", i))
			continue
		}

		priority, ok := ParsePriority(priorityName)
		if !ok {
			logger.Warn("skipping surveillance pattern with unknown priority",
				zap.String("pattern", pattern),
				zap.String("priority", priorityName),
			)
			continue
		}

		out = append(out, SurveillancePattern{
			Pattern:    pattern,
			DeviceType: deviceType,
			Priority:   priority,
		})
	}
	return out
}
