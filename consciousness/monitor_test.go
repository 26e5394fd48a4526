package consciousness_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syntopia/go-syntopia-client/api"
	"github.com/syntopia/go-syntopia-client/auth"
	"github.com/syntopia/go-syntopia-client/consciousness"
	"github.com/syntopia/go-syntopia-client/store"
	"github.com/syntopia/go-syntopia-client/store/storefakes"
)

func newMonitor(t *testing.T, options ...consciousness.MonitorOption) (*consciousness.Monitor, *storefakes.FakeStore) {
	t.Helper()
	fakeStore := storefakes.NewFakeStore()
	monitor, err := consciousness.NewMonitor(fakeStore, options...)
	require.NoError(t, err)
	return monitor, fakeStore
}

func TestNewMonitor_RequiresStore(t *testing.T) {
	_, err := consciousness.NewMonitor(nil)
	require.ErrorIs(t, err, consciousness.NoStoreErr)
}

func TestRecordSynchronicity_CapsAtHundredDroppingOldest(t *testing.T) {
	monitor, _ := newMonitor(t)

	for i := 0; i < 101; i++ {
		monitor.RecordSynchronicity("TEST_EVENT", fmt.Sprintf("event %d", i), consciousness.SignificanceLow)
	}

	events := monitor.Events()
	require.Len(t, events, 100)
	require.Equal(t, "event 1", events[0].Description, "oldest event is dropped first")
	require.Equal(t, "event 100", events[99].Description)
}

func TestRecordSynchronicity_PersistsLog(t *testing.T) {
	monitor, fakeStore := newMonitor(t)
	monitor.RecordSynchronicity("TEST_EVENT", "one", consciousness.SignificanceMedium)

	raw, err := fakeStore.Load(store.KeySynchronicityEvents)
	require.NoError(t, err)

	var persisted []consciousness.SynchronicityEvent
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	require.Equal(t, "one", persisted[0].Description)
	require.NotEmpty(t, persisted[0].ID)
}

func TestRecentSynchronicities_LastTenNewestFirst(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	monitor, _ := newMonitor(t, consciousness.WithNowFunc(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	for i := 0; i < 15; i++ {
		monitor.RecordSynchronicity("TEST_EVENT", fmt.Sprintf("event %d", i), consciousness.SignificanceLow)
	}

	recent := monitor.RecentSynchronicities()
	require.Len(t, recent, 10)
	require.Equal(t, "event 14", recent[0].Description, "newest first")
	require.Equal(t, "event 5", recent[9].Description)
}

func TestElevateLevel_StopsAtMastering(t *testing.T) {
	monitor, fakeStore := newMonitor(t)

	level, ok := monitor.ElevateLevel()
	require.True(t, ok)
	require.Equal(t, auth.LevelExpanding, level)

	events := monitor.Events()
	require.Len(t, events, 1)
	require.Equal(t, consciousness.EventConsciousnessElevation, events[0].Type)
	require.Equal(t, consciousness.SignificanceHigh, events[0].Significance)

	raw, err := fakeStore.Load(store.KeyConsciousnessLevel)
	require.NoError(t, err)
	require.JSONEq(t, `"EXPANDING"`, string(raw))

	for i := 0; i < 3; i++ {
		_, ok = monitor.ElevateLevel()
		require.True(t, ok)
	}
	require.Equal(t, auth.LevelMastering, monitor.Level())

	_, ok = monitor.ElevateLevel()
	require.False(t, ok, "top level cannot be elevated")
	require.Equal(t, auth.LevelMastering, monitor.Level())
}

func TestLevelPercentage(t *testing.T) {
	monitor, _ := newMonitor(t)
	require.InDelta(t, 20.0, monitor.LevelPercentage(), 0.01)

	monitor.ElevateLevel()
	require.InDelta(t, 40.0, monitor.LevelPercentage(), 0.01)
}

func TestInitialize_RestoresPersistedState(t *testing.T) {
	fakeStore := storefakes.NewFakeStore()
	require.NoError(t, fakeStore.Save(store.KeyConsciousnessLevel, []byte(`"INTEGRATING"`)))
	require.NoError(t, fakeStore.Save(store.KeySacredMetrics, []byte(`{"consciousnessScore":42}`)))
	require.NoError(t, fakeStore.Save(store.KeySynchronicityEvents,
		[]byte(`[{"id":"e1","type":"TEST_EVENT","description":"restored"}]`)))

	monitor, err := consciousness.NewMonitor(fakeStore)
	require.NoError(t, err)
	require.NoError(t, monitor.Initialize(context.Background(), "user-1"))

	require.Equal(t, auth.LevelIntegrating, monitor.Level())
	require.InDelta(t, 42.0, monitor.Metrics().ConsciousnessScore, 0.01)
	require.Len(t, monitor.Events(), 1)
}

func TestInitialize_CorruptStateIsSkipped(t *testing.T) {
	fakeStore := storefakes.NewFakeStore()
	require.NoError(t, fakeStore.Save(store.KeySacredMetrics, []byte(`{broken`)))

	monitor, err := consciousness.NewMonitor(fakeStore)
	require.NoError(t, err)
	require.NoError(t, monitor.Initialize(context.Background(), "user-1"))
	require.Zero(t, monitor.Metrics().ConsciousnessScore)
	require.Equal(t, auth.LevelAwakening, monitor.Level())
}

func TestInitialize_BackendGeometryOverridesLocal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /consciousness/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /consciousness/sacred-geometry/user-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"geometryFactors":{"goldenRatioAlignment":61.8,"fibonacciHarmony":23.6}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	monitor, _ := newMonitor(t, consciousness.WithClient(api.New(server.URL)))
	require.NoError(t, monitor.Initialize(context.Background(), "user-1"))

	metrics := monitor.Metrics()
	require.InDelta(t, 61.8, metrics.SacredGeometryResonance, 0.01)
	require.InDelta(t, 23.6, metrics.FibonacciHarmony, 0.01)
}

func TestInitialize_BackendDownFallsBackToLocal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	fakeStore := storefakes.NewFakeStore()
	require.NoError(t, fakeStore.Save(store.KeyConsciousnessLevel, []byte(`"EMBODYING"`)))

	monitor, err := consciousness.NewMonitor(fakeStore, consciousness.WithClient(api.New(server.URL)))
	require.NoError(t, err)
	require.NoError(t, monitor.Initialize(context.Background(), "user-1"))
	require.Equal(t, auth.LevelEmbodying, monitor.Level())
}

func TestStartStop_Idempotent(t *testing.T) {
	monitor, _ := newMonitor(t, consciousness.WithInterval(5*time.Millisecond))
	require.False(t, monitor.Monitoring())

	monitor.Start()
	monitor.Start()
	require.True(t, monitor.Monitoring())

	require.Eventually(t, func() bool {
		return !monitor.LastUpdate().IsZero()
	}, time.Second, 5*time.Millisecond, "ticker recomputes metrics")

	monitor.Stop()
	monitor.Stop()
	require.False(t, monitor.Monitoring())
}

func TestUpdateMetrics_PersistsAndBounds(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 34, 0, 0, time.UTC)
	monitor, fakeStore := newMonitor(t, consciousness.WithNowFunc(func() time.Time { return fixed }))

	monitor.UpdateMetrics()

	metrics := monitor.Metrics()
	for _, score := range []float64{
		metrics.ConsciousnessScore,
		metrics.GeneKeysAlignment,
		metrics.SacredGeometryResonance,
		metrics.FibonacciHarmony,
	} {
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 100.0)
	}
	require.Equal(t, fixed, monitor.LastUpdate())

	raw, err := fakeStore.Load(store.KeySacredMetrics)
	require.NoError(t, err)
	var persisted consciousness.SacredMetrics
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Equal(t, metrics, persisted)
}

func TestUpdateMetrics_SynchronicityFrequencyCountsLastDay(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	monitor, _ := newMonitor(t, consciousness.WithNowFunc(func() time.Time { return clock }))

	monitor.RecordSynchronicity("TEST_EVENT", "old", consciousness.SignificanceLow)
	clock = clock.Add(25 * time.Hour)
	monitor.RecordSynchronicity("TEST_EVENT", "fresh", consciousness.SignificanceLow)

	monitor.UpdateMetrics()
	require.InDelta(t, 1.0, monitor.Metrics().SynchronicityFrequency, 0.01,
		"only events within 24h count")
}

func TestReset(t *testing.T) {
	monitor, fakeStore := newMonitor(t)
	monitor.ElevateLevel()
	monitor.UpdateMetrics()
	require.NotZero(t, fakeStore.Len())

	monitor.Reset()
	require.Equal(t, auth.LevelAwakening, monitor.Level())
	require.Empty(t, monitor.Events())
	require.Zero(t, monitor.Metrics())
	require.Zero(t, fakeStore.Len())
}
