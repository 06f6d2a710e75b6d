package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmate/internal/fleet"
	"busmate/internal/logger"
	mmetrics "busmate/internal/metrics"
	"busmate/internal/transit"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(t *testing.T, m *mmetrics.Collector) *Store {
	t.Helper()
	cat, err := transit.Default()
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	gen, err := fleet.NewGenerator(cat, fleet.Options{Rand: fleet.NewRand(1), Now: clock.Now})
	require.NoError(t, err)
	return NewStore(gen, logger.Nop(), m)
}

func TestInitializeOnlyOnce(t *testing.T) {
	s := newTestStore(t, nil)
	assert.Empty(t, s.Snapshot().Buses)

	s.Initialize()
	first := s.Snapshot()
	require.Len(t, first.Buses, 24)
	assert.Equal(t, uint64(1), first.Version)

	s.Initialize()
	assert.Equal(t, first.Version, s.Snapshot().Version)
}

func TestTickReplacesSnapshotAndNotifies(t *testing.T) {
	s := newTestStore(t, nil)
	s.Initialize()
	before := s.Snapshot()
	firstBefore := before.Buses[0]

	var got []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	defer unsub()

	after := s.Tick()
	require.Len(t, got, 1)
	assert.Equal(t, after.Version, got[0].Version)
	assert.Equal(t, before.Version+1, after.Version)
	assert.True(t, after.LastRefresh.After(before.LastRefresh))

	require.Len(t, after.Buses, len(before.Buses))
	for i := range before.Buses {
		assert.Equal(t, before.Buses[i].ID, after.Buses[i].ID)
		assert.Equal(t, before.Buses[i].NextStopID, after.Buses[i].NextStopID)
		assert.Equal(t, before.Buses[i].CrowdLevel, after.Buses[i].CrowdLevel)
		assert.True(t, after.Buses[i].LastUpdated.After(before.Buses[i].LastUpdated))
	}

	// The old snapshot is untouched.
	assert.Equal(t, firstBefore, before.Buses[0])
}

func TestSubscribersInOrderAndUnsubscribe(t *testing.T) {
	s := newTestStore(t, nil)

	var order []string
	unsubA := s.Subscribe(func(Snapshot) { order = append(order, "a") })
	unsubB := s.Subscribe(func(Snapshot) { order = append(order, "b") })

	s.Refresh()
	assert.Equal(t, []string{"a", "b"}, order)

	unsubA()
	unsubA()
	s.Tick()
	assert.Equal(t, []string{"a", "b", "b"}, order)

	unsubB()
	s.Tick()
	assert.Len(t, order, 3)
}

func TestListenerMayReadStore(t *testing.T) {
	s := newTestStore(t, nil)
	var seen uint64
	s.Subscribe(func(snap Snapshot) { seen = s.Snapshot().Version })
	snap := s.Refresh()
	assert.Equal(t, snap.Version, seen)
}

func TestRefreshRegenerates(t *testing.T) {
	m := mmetrics.NewCollector(time.Second, 3)
	s := newTestStore(t, m)
	s.Initialize()
	for i := 0; i < 30; i++ {
		s.Tick()
	}
	snap := s.Refresh()
	require.Len(t, snap.Buses, 24)

	// Thirty ticks floor every ETA at 1; a regenerated fleet draws fresh ETAs.
	spread := false
	for _, b := range snap.Buses {
		if b.EstimatedArrival > 1 {
			spread = true
		}
	}
	assert.True(t, spread)

	assert.Equal(t, 30.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.FleetSize))
}

func TestRefreshRoute(t *testing.T) {
	s := newTestStore(t, nil)
	s.Initialize()
	for i := 0; i < 25; i++ {
		s.Tick()
	}
	before := s.Snapshot()

	snap, err := s.RefreshRoute("r4")
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, snap.Version)
	require.Len(t, snap.Buses, len(before.Buses))
	for i, b := range snap.Buses {
		assert.Equal(t, before.Buses[i].ID, b.ID)
		if b.RouteID == "r4" {
			assert.True(t, b.LastUpdated.After(before.Buses[i].LastUpdated))
			continue
		}
		assert.Equal(t, before.Buses[i], b)
	}

	_, err = s.RefreshRoute("r404")
	assert.ErrorIs(t, err, transit.ErrNotFound)
	assert.Equal(t, snap.Version, s.Snapshot().Version)
}

func TestSelection(t *testing.T) {
	s := newTestStore(t, nil)
	s.Initialize()

	_, err := s.Selected()
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = s.Select("bus-r9-0")
	assert.ErrorIs(t, err, transit.ErrNotFound)

	b, err := s.Select("bus-r2-1")
	require.NoError(t, err)
	assert.Equal(t, "r2", b.RouteID)

	s.Tick()
	cur, err := s.Selected()
	require.NoError(t, err)
	assert.Equal(t, "bus-r2-1", cur.ID)
	assert.Equal(t, uint64(2), s.Snapshot().Version)
	assert.Equal(t, s.Snapshot().Buses[4], cur)

	s.ClearSelection()
	_, err = s.Selected()
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestSelectStop(t *testing.T) {
	s := newTestStore(t, nil)
	s.Initialize()

	// r1 slot 0 sits at stop1 heading to stop9.
	b, err := s.SelectStop("stop9")
	require.NoError(t, err)
	assert.Equal(t, "bus-r1-0", b.ID)
	assert.Equal(t, "bus-r1-0", s.SelectedID())

	// Nothing heads to Peenya (first stop of r7 only).
	_, err = s.SelectStop("stop20")
	assert.ErrorIs(t, err, transit.ErrNotFound)
	assert.Equal(t, "bus-r1-0", s.SelectedID())

	_, err = s.SelectStop("stop404")
	assert.ErrorIs(t, err, transit.ErrNotFound)
}

func TestFavorites(t *testing.T) {
	s := newTestStore(t, nil)

	on, err := s.ToggleFavorite("r3")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = s.ToggleFavorite("r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, s.Favorites())

	on, err = s.ToggleFavorite("r3")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []string{"r1"}, s.Favorites())

	_, err = s.ToggleFavorite("r42")
	assert.ErrorIs(t, err, transit.ErrNotFound)
}

func TestSubscriberGauge(t *testing.T) {
	m := mmetrics.NewCollector(time.Second, 3)
	s := newTestStore(t, m)
	u1 := s.Subscribe(func(Snapshot) {})
	u2 := s.Subscribe(func(Snapshot) {})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Subscribers))
	u1()
	u2()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Subscribers))
}

func TestManagerTicksUntilStopped(t *testing.T) {
	s := newTestStore(t, nil)
	var ticks atomic.Int64
	s.Subscribe(func(Snapshot) { ticks.Add(1) })

	m := NewManager(s, 5*time.Millisecond, logger.Nop())
	m.Start(context.Background())
	assert.True(t, m.Running())
	m.Start(context.Background()) // second start is ignored

	require.Eventually(t, func() bool { return ticks.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	stopped := s.Snapshot().Version
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, s.Snapshot().Version)

	m.Stop()
}

func TestManagerStopsOnContextCancel(t *testing.T) {
	s := newTestStore(t, nil)
	m := NewManager(s, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	require.Eventually(t, func() bool { return s.Snapshot().Version >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	m.wg.Wait()
	v := s.Snapshot().Version
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, v, s.Snapshot().Version)
}

func TestManagerRefresh(t *testing.T) {
	s := newTestStore(t, nil)
	m := NewManager(s, time.Hour, nil)
	m.Start(context.Background())
	defer m.Stop()

	v := s.Snapshot().Version
	snap := m.Refresh()
	assert.Equal(t, v+1, snap.Version)
	assert.Len(t, snap.Buses, 24)
}
