// Package sentry implements the alert orchestration pipeline: it polls
// detection sources, classifies and deduplicates findings, applies
// cooldown-based voice throttling, and persists enough state to survive
// restarts without re-alerting.
package sentry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener receives every alert accepted into history. Invocations are
// isolated: a panicking listener never blocks delivery to the others.
type Listener func(Alert)

// Collaborators bundles the external detection sources and the voice sink.
// Any field may be nil; the corresponding detectors or voice delivery are
// simply skipped.
type Collaborators struct {
	Correlator Correlator
	Scanner    DeviceScanner
	Voice      VoiceSink
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Orchestrator owns all mutable pipeline state: dedup sets, the convergence
// watermark, the bounded history, and the voice cooldown clock. One mutex
// guards all of it; collaborator calls and delivery happen outside the lock.
type Orchestrator struct {
	cfg    Config
	deps   Collaborators
	logger *zap.Logger

	mu              sync.Mutex
	hist            *history
	alertedClusters map[string]struct{}
	alertedDevices  map[string]struct{}
	convergencePct  float64 // watermark: last observed convergence percentage
	lastVoiceAt     time.Time
	listeners       []listenerEntry
	nextListenerID  uint64

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time // replaced in tests
}

// NewOrchestrator creates a stopped orchestrator. If the configured
// persistence path holds a snapshot, dedup state and history are restored
// from it; a missing or malformed snapshot is a cold start, not an error.
func NewOrchestrator(cfg Config, deps Collaborators, logger *zap.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:             cfg,
		deps:            deps,
		logger:          logger,
		hist:            newHistory(cfg.MaxHistory),
		alertedClusters: make(map[string]struct{}),
		alertedDevices:  make(map[string]struct{}),
		now:             time.Now,
	}
	o.loadSnapshot()
	return o
}

// Start launches the background polling loop. Idempotent: starting a
// running orchestrator is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.running = true

	go o.run(loopCtx)

	o.logger.Info("alert orchestrator started",
		zap.Duration("poll_interval", o.cfg.PollInterval),
		zap.Duration("cooldown", o.cfg.Cooldown),
	)
}

// Stop signals the loop to exit, waits up to pollInterval+2s for the
// current cycle to drain, then writes a final snapshot. Idempotent.
// An in-flight delivery is never dropped; a genuinely stuck cycle is
// abandoned after the grace period.
func (o *Orchestrator) Stop() {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if !o.running {
		return
	}
	o.running = false
	o.cancel()

	select {
	case <-o.done:
	case <-time.After(o.cfg.PollInterval + 2*time.Second):
		o.logger.Warn("orchestrator loop did not drain within grace period")
	}

	if err := o.SaveSnapshot(); err != nil {
		o.logger.Warn("final snapshot save failed", zap.Error(err))
	}
	o.logger.Info("alert orchestrator stopped")
}

// Running reports whether the polling loop is active.
func (o *Orchestrator) Running() bool {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()
	return o.running
}

// AddListener registers a callback invoked with every accepted alert.
// Returns an unregister function.
func (o *Orchestrator) AddListener(fn Listener) (remove func()) {
	o.mu.Lock()
	id := o.nextListenerID
	o.nextListenerID++
	o.listeners = append(o.listeners, listenerEntry{id: id, fn: fn})
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, e := range o.listeners {
			if e.id == id {
				o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
				return
			}
		}
	}
}

// run is the polling loop. The inter-cycle delay is measured from cycle
// completion, not cycle start: a slow cycle still gets a full pause before
// the next one.
func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	lastSnapshot := o.now()
	for {
		o.cycle(ctx)

		if o.cfg.PersistencePath != "" && o.now().Sub(lastSnapshot) >= o.cfg.SnapshotInterval {
			if err := o.SaveSnapshot(); err != nil {
				o.logger.Warn("periodic snapshot save failed", zap.Error(err))
			}
			lastSnapshot = o.now()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

// cycle runs all detectors in fixed order, sorts candidates by priority
// (stable, so ties keep emission order), and emits each in turn. A panic
// anywhere in the cycle is contained; the loop never dies.
func (o *Orchestrator) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			cycleErrorsTotal.Inc()
			o.logger.Error("detection cycle panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()

	var alerts []*Alert
	alerts = append(alerts, o.detectClusters(ctx)...)
	alerts = append(alerts, o.detectConvergence(ctx)...)
	alerts = append(alerts, o.detectSurveillance(ctx)...)
	alerts = append(alerts, o.detectScannerAlerts(ctx)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority < alerts[j].Priority
	})

	for _, a := range alerts {
		o.Emit(ctx, a)
	}

	cycleDurationSeconds.Observe(time.Since(start).Seconds())
}

// Emit records an alert and delivers it. Safe to call concurrently with the
// loop and with query operations.
//
// An ID already in history is silently dropped. The history append always
// happens; voice delivery is a separate channel throttled by the global
// cooldown, with no priority-based bypass. State transitions happen under
// the lock; the voice call and listener callbacks run outside it.
func (o *Orchestrator) Emit(ctx context.Context, a *Alert) {
	o.mu.Lock()
	if o.hist.Contains(a.ID) {
		o.mu.Unlock()
		alertsSuppressedTotal.Inc()
		return
	}

	now := o.now()
	voiceEligible := o.deps.Voice != nil && now.Sub(o.lastVoiceAt) >= o.cfg.Cooldown

	// Reserve the cooldown slot before releasing the lock so a concurrent
	// Emit cannot also voice within the same window. Rolled back if
	// delivery fails.
	var prevVoiceAt time.Time
	if voiceEligible {
		prevVoiceAt = o.lastVoiceAt
		o.lastVoiceAt = now
	}

	o.hist.Append(a)
	delivered := *a
	listeners := make([]listenerEntry, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	if voiceEligible {
		if err := o.deps.Voice.Speak(ctx, a.Priority.SpokenPrefix()+a.Message); err != nil {
			o.logger.Warn("voice delivery failed",
				zap.String("alert_id", a.ID),
				zap.Error(err),
			)
			o.mu.Lock()
			if o.lastVoiceAt.Equal(now) {
				o.lastVoiceAt = prevVoiceAt
			}
			o.mu.Unlock()
		} else {
			voiceDeliveriesTotal.Inc()
		}
	}

	for _, l := range listeners {
		o.invokeListener(l.fn, delivered)
	}

	alertsEmittedTotal.WithLabelValues(a.Type, a.Priority.String()).Inc()
	o.logger.Info("alert emitted",
		zap.String("alert_id", a.ID),
		zap.String("type", a.Type),
		zap.String("priority", a.Priority.String()),
		zap.String("message", a.Message),
	)
}

func (o *Orchestrator) invokeListener(fn Listener, a Alert) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("alert listener panicked",
				zap.String("alert_id", a.ID),
				zap.Any("panic", r),
			)
		}
	}()
	fn(a)
}

// RecentAlerts returns up to limit most-recently-emitted alerts, newest
// first, as copies.
func (o *Orchestrator) RecentAlerts(limit int) []Alert {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hist.Recent(limit)
}

// TypeCount is one entry of a summary breakdown.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Summary aggregates recent alert activity.
type Summary struct {
	Total  int         `json:"total"`
	ByType []TypeCount `json:"by_type"` // descending by count
}

// Summary returns the alert totals broken down by type, ordered by
// descending count.
func (o *Orchestrator) Summary() Summary {
	o.mu.Lock()
	total := o.hist.Len()
	counts := o.hist.CountByType()
	o.mu.Unlock()

	s := Summary{Total: total}
	for t, c := range counts {
		s.ByType = append(s.ByType, TypeCount{Type: t, Count: c})
	}
	sort.Slice(s.ByType, func(i, j int) bool {
		if s.ByType[i].Count != s.ByType[j].Count {
			return s.ByType[i].Count > s.ByType[j].Count
		}
		return s.ByType[i].Type < s.ByType[j].Type
	})
	return s
}

// Spoken renders the summary as voice-ready text.
func (s Summary) Spoken() string {
	if s.Total == 0 {
		return "No alerts recorded."
	}
	parts := []string{fmt.Sprintf("%d total alerts.", s.Total)}
	for _, tc := range s.ByType {
		parts = append(parts, fmt.Sprintf("%d %s.", tc.Count, titleize(tc.Type)))
	}
	return strings.Join(parts, " ")
}

// titleize turns "surveillance_detection" into "Surveillance Detection".
func titleize(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Acknowledge marks the history entry with the given ID as acknowledged.
// Returns whether a match was found. Does not remove the entry or touch
// the dedup sets.
func (o *Orchestrator) Acknowledge(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hist.Acknowledge(id)
}

// ResetCluster removes a cluster ID from the dedup set so a future
// observation can alert again. The old alert ID may still sit in history
// and swallow a re-derived alert until it rolls out; that second guard is
// deliberate.
func (o *Orchestrator) ResetCluster(clusterID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.alertedClusters, clusterID)
}

// ResetDevice removes a device ID from the dedup set. Same history caveat
// as ResetCluster.
func (o *Orchestrator) ResetDevice(deviceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.alertedDevices, deviceID)
}

// HistoryLen returns the number of alerts currently in history.
func (o *Orchestrator) HistoryLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hist.Len()
}
