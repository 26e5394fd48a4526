// Package consciousness maintains the sacred metrics display: a periodic
// monitor recomputing scores on the golden-ratio interval, a bounded
// synchronicity event log, and the consciousness level ladder. State is
// offline-first: everything persists locally and the backend only enriches
// the picture when reachable.
package consciousness

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/syntopia/go-syntopia-client/api"
	"github.com/syntopia/go-syntopia-client/auth"
	"github.com/syntopia/go-syntopia-client/store"
)

// GoldenInterval is the monitoring cadence, 1.618 seconds.
const GoldenInterval = 1618 * time.Millisecond

// maxSynchronicityEvents bounds the event log; the oldest entries fall off.
const maxSynchronicityEvents = 100

const goldenRatio = 1.618

// EventConsciousnessElevation is recorded whenever the level goes up.
const EventConsciousnessElevation = "CONSCIOUSNESS_ELEVATION"

// Significance grades a synchronicity event.
type Significance string

const (
	SignificanceLow    Significance = "LOW"
	SignificanceMedium Significance = "MEDIUM"
	SignificanceHigh   Significance = "HIGH"
)

// SacredMetrics are the display scores, each in [0, 100].
type SacredMetrics struct {
	ConsciousnessScore      float64 `json:"consciousnessScore"`
	SynchronicityFrequency  float64 `json:"synchronicityFrequency"`
	GeneKeysAlignment       float64 `json:"geneKeysAlignment"`
	SacredGeometryResonance float64 `json:"sacredGeometryResonance"`
	FibonacciHarmony        float64 `json:"fibonacciHarmony"`
}

// Average is the mean of the five scores.
func (m SacredMetrics) Average() float64 {
	return (m.ConsciousnessScore + m.SynchronicityFrequency + m.GeneKeysAlignment +
		m.SacredGeometryResonance + m.FibonacciHarmony) / 5
}

// SynchronicityEvent is one entry in the bounded event log.
type SynchronicityEvent struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Description  string       `json:"description"`
	Significance Significance `json:"significance"`
	Timestamp    time.Time    `json:"timestamp"`
}

// sacredGeometryData is the backend's sacred-geometry payload; only the
// geometry factors feed the local metrics.
type sacredGeometryData struct {
	GeometryFactors struct {
		GoldenRatioAlignment float64 `json:"goldenRatioAlignment"`
		FibonacciHarmony     float64 `json:"fibonacciHarmony"`
	} `json:"geometryFactors"`
}

var NoStoreErr = errors.New("consciousness.Monitor no store")

// Monitor owns the consciousness state and its periodic recomputation.
// All methods are safe for concurrent use; the ticker goroutine is started
// and stopped explicitly.
type Monitor struct {
	client   *api.Client
	store    store.Store
	logger   zerolog.Logger
	nowFunc  func() time.Time
	interval time.Duration

	mu         sync.Mutex
	level      auth.ConsciousnessLevel
	metrics    SacredMetrics
	events     []SynchronicityEvent
	lastUpdate time.Time
	stop       chan struct{}
}

type MonitorOption func(*Monitor)

func WithLogger(logger zerolog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithNowFunc(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.nowFunc = now
	}
}

// WithInterval overrides the golden-ratio monitoring cadence.
func WithInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithClient enables backend enrichment; without it the monitor is fully
// offline.
func WithClient(client *api.Client) MonitorOption {
	return func(m *Monitor) {
		m.client = client
	}
}

func NewMonitor(persistence store.Store, options ...MonitorOption) (*Monitor, error) {
	if persistence == nil {
		return nil, errors.Wrap(NoStoreErr, "[NewMonitor]")
	}
	monitor := &Monitor{
		store:    persistence,
		logger:   zerolog.Nop(),
		nowFunc:  time.Now,
		interval: GoldenInterval,
		level:    auth.LevelAwakening,
	}
	for _, option := range options {
		option(monitor)
	}
	return monitor, nil
}

// Initialize restores persisted state, then tries the backend: when the
// health probe answers, sacred-geometry factors replace the local ones.
// Backend failures are logged and never fail initialization.
func (m *Monitor) Initialize(ctx context.Context, userID string) error {
	m.loadFromStore()

	if m.client == nil || userID == "" || !m.backendHealthy(ctx) {
		m.logger.Debug().Msg("backend unavailable, consciousness state is local")
		return nil
	}

	var data sacredGeometryData
	if err := m.client.Get(ctx, "/consciousness/sacred-geometry/"+userID, &data); err != nil {
		m.logger.Warn().Err(err).Msg("sacred geometry load failed")
		return nil
	}

	m.mu.Lock()
	m.metrics.SacredGeometryResonance = data.GeometryFactors.GoldenRatioAlignment
	m.metrics.FibonacciHarmony = data.GeometryFactors.FibonacciHarmony
	m.lastUpdate = m.nowFunc()
	m.mu.Unlock()
	return nil
}

func (m *Monitor) backendHealthy(ctx context.Context) bool {
	return m.client.Get(ctx, "/consciousness/health", nil, api.NoAuth()) == nil
}

// Start begins periodic metric updates. Calling Start on a running monitor
// is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.UpdateMetrics()
			case <-stop:
				return
			}
		}
	}()
	m.logger.Debug().Dur("interval", m.interval).Msg("consciousness monitoring started")
}

// Stop halts the ticker. Calling Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop == nil {
		return
	}
	close(m.stop)
	m.stop = nil
	m.logger.Debug().Msg("consciousness monitoring stopped")
}

// Monitoring reports whether the ticker is running.
func (m *Monitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop != nil
}

// UpdateMetrics recomputes all scores from the current clock and event log,
// then persists them.
func (m *Monitor) UpdateMetrics() {
	m.mu.Lock()
	now := m.nowFunc()
	m.metrics.SynchronicityFrequency = m.synchronicityFrequencyLocked(now)
	m.metrics.GeneKeysAlignment = geneKeysAlignment(now)
	m.metrics.SacredGeometryResonance = sacredGeometryResonance(now)
	m.metrics.FibonacciHarmony = fibonacciHarmony(now)
	m.metrics.ConsciousnessScore = m.consciousnessScoreLocked(now)
	m.lastUpdate = now
	metrics := m.metrics
	m.mu.Unlock()

	m.persist(store.KeySacredMetrics, metrics)
}

// RecordSynchronicity appends an event, dropping the oldest entries past the
// 100-event cap, and persists the log.
func (m *Monitor) RecordSynchronicity(eventType, description string, significance Significance) SynchronicityEvent {
	event := SynchronicityEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		Description:  description,
		Significance: significance,
		Timestamp:    m.nowFunc(),
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	if len(m.events) > maxSynchronicityEvents {
		m.events = append([]SynchronicityEvent(nil), m.events[len(m.events)-maxSynchronicityEvents:]...)
	}
	events := append([]SynchronicityEvent(nil), m.events...)
	m.mu.Unlock()

	m.persist(store.KeySynchronicityEvents, events)
	m.logger.Info().Str("type", eventType).Msg("synchronicity recorded")
	return event
}

// ElevateLevel advances to the next consciousness level and records the
// elevation as a high-significance synchronicity. At the top level it does
// nothing.
func (m *Monitor) ElevateLevel() (auth.ConsciousnessLevel, bool) {
	m.mu.Lock()
	next, ok := m.level.Next()
	if !ok {
		level := m.level
		m.mu.Unlock()
		return level, false
	}
	m.level = next
	m.mu.Unlock()

	m.persist(store.KeyConsciousnessLevel, next)
	m.RecordSynchronicity(EventConsciousnessElevation,
		"Consciousness elevated to "+string(next), SignificanceHigh)
	m.logger.Info().Str("level", string(next)).Msg("consciousness elevated")
	return next, true
}

// Reset returns everything to the initial state and clears persistence.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.level = auth.LevelAwakening
	m.metrics = SacredMetrics{}
	m.events = nil
	m.lastUpdate = time.Time{}
	m.mu.Unlock()

	for _, key := range []string{store.KeyConsciousnessLevel, store.KeySacredMetrics, store.KeySynchronicityEvents} {
		if err := m.store.Remove(key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("reset remove failed")
		}
	}
}

// Level is the current consciousness level.
func (m *Monitor) Level() auth.ConsciousnessLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// LevelPercentage maps the level to its position on the ladder, so
// AWAKENING is 20 and MASTERING is 100.
func (m *Monitor) LevelPercentage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	levels := auth.Levels()
	for i, level := range levels {
		if level == m.level {
			return float64(i+1) / float64(len(levels)) * 100
		}
	}
	return 0
}

// Metrics returns the current scores.
func (m *Monitor) Metrics() SacredMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Events returns a copy of the full event log, oldest first.
func (m *Monitor) Events() []SynchronicityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SynchronicityEvent(nil), m.events...)
}

// RecentSynchronicities returns up to the last ten events, newest first.
func (m *Monitor) RecentSynchronicities() []SynchronicityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.events) - 10
	if start < 0 {
		start = 0
	}
	recent := append([]SynchronicityEvent(nil), m.events[start:]...)
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent
}

// LastUpdate is when metrics were last recomputed.
func (m *Monitor) LastUpdate() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// loadFromStore restores whatever persisted state is readable. Unreadable
// entries are skipped, never fatal.
func (m *Monitor) loadFromStore() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, err := m.store.Load(store.KeyConsciousnessLevel); err == nil {
		var level auth.ConsciousnessLevel
		if json.Unmarshal(raw, &level) == nil && level != "" {
			m.level = level
		}
	}
	if raw, err := m.store.Load(store.KeySacredMetrics); err == nil {
		var metrics SacredMetrics
		if json.Unmarshal(raw, &metrics) == nil {
			m.metrics = metrics
		}
	}
	if raw, err := m.store.Load(store.KeySynchronicityEvents); err == nil {
		var events []SynchronicityEvent
		if json.Unmarshal(raw, &events) == nil {
			m.events = events
		}
	}
}

func (m *Monitor) persist(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("persist marshal failed")
		return
	}
	if err := m.store.Save(key, raw); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("persist failed")
	}
}

// consciousnessScoreLocked blends the metric average, an event-count bonus
// and a slow time wave, clamped to [0, 100]. Callers hold m.mu.
func (m *Monitor) consciousnessScoreLocked(now time.Time) float64 {
	base := m.metrics.Average()
	bonus := float64(len(m.events)) * 2
	wave := math.Sin(float64(now.Unix())) * 10
	return math.Min(100, math.Max(0, base+bonus+wave))
}

// synchronicityFrequencyLocked counts events within the last 24 hours.
// Callers hold m.mu.
func (m *Monitor) synchronicityFrequencyLocked(now time.Time) float64 {
	count := 0
	for _, event := range m.events {
		if now.Sub(event.Timestamp) < 24*time.Hour {
			count++
		}
	}
	return float64(count)
}

func geneKeysAlignment(now time.Time) float64 {
	return math.Sin(float64(now.Unix())/(goldenRatio*goldenRatio))*50 + 50
}

func sacredGeometryResonance(now time.Time) float64 {
	return math.Sin(float64(now.Unix())/goldenRatio)*50 + 50
}

// fibonacciHarmony picks from the sequence by the current minute.
func fibonacciHarmony(now time.Time) float64 {
	fibonacci := []float64{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89}
	return fibonacci[now.Minute()%len(fibonacci)] / 89 * 100
}
