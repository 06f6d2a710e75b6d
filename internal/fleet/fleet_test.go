package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busmate/internal/transit"
)

// stepRand is a predictable source: IntN counts upward and Float64 cycles
// through values that are never 0.5, so every jitter moves the bus.
type stepRand struct {
	n int
	f int
}

var floats = []float64{0.1, 0.9, 0.25, 0.75, 0.4, 0.6}

func (s *stepRand) IntN(n int) int {
	v := s.n % n
	s.n++
	return v
}

func (s *stepRand) Float64() float64 {
	v := floats[s.f%len(floats)]
	s.f++
	return v
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	cat, err := transit.Default()
	require.NoError(t, err)
	g, err := NewGenerator(cat, opts)
	require.NoError(t, err)
	return g
}

func TestGenerateFleetShape(t *testing.T) {
	g := newTestGenerator(t, Options{Rand: NewRand(42)})
	cat := g.Catalog()

	buses := g.Generate()
	require.Len(t, buses, 3*len(cat.Routes()))

	seen := map[string]bool{}
	for _, b := range buses {
		assert.False(t, seen[b.ID], "duplicate bus id %s", b.ID)
		seen[b.ID] = true

		require.NoError(t, cat.CheckBus(b))
		assert.GreaterOrEqual(t, b.EstimatedArrival, 1)
		assert.LessOrEqual(t, b.EstimatedArrival, 20)
		assert.GreaterOrEqual(t, b.Speed, 10)
		assert.LessOrEqual(t, b.Speed, 39)
		assert.True(t, b.CrowdLevel.Valid())
		assert.NotEqual(t, transit.Cancelled, b.Status)
	}
}

func TestGenerateSlotPlacement(t *testing.T) {
	g := newTestGenerator(t, Options{Rand: NewRand(7)})
	buses, err := g.GenerateRoute("r5") // stop1, stop15, stop3
	require.NoError(t, err)
	require.Len(t, buses, 3)

	// slot 0 -> index 0, slot 1 -> index 2, slot 2 -> index 4 % 3 = 1
	wantAt := []string{"stop1", "stop3", "stop15"}
	wantNext := []string{"stop15", "stop3", "stop3"}
	for i, b := range buses {
		assert.Equal(t, "bus-r5-"+string(rune('0'+i)), b.ID)
		assert.Equal(t, "V500", b.Number)
		assert.Equal(t, wantNext[i], b.NextStopID)

		at, ok := g.Catalog().Stop(wantAt[i])
		require.True(t, ok)
		assert.InDelta(t, at.Lat, b.Lat, 0.005)
		assert.InDelta(t, at.Lng, b.Lng, 0.005)
	}

	_, err = g.GenerateRoute("r404")
	assert.ErrorIs(t, err, transit.ErrNotFound)
}

func TestGenerateIsReproducibleWithSeed(t *testing.T) {
	at := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return at }

	a := newTestGenerator(t, Options{Rand: NewRand(99), Now: now}).Generate()
	b := newTestGenerator(t, Options{Rand: NewRand(99), Now: now}).Generate()
	assert.Equal(t, a, b)
}

func TestSlotsPerRouteAndWeights(t *testing.T) {
	g := newTestGenerator(t, Options{
		SlotsPerRoute: 5,
		Weights:       StatusWeights{Cancelled: 1},
		Rand:          NewRand(3),
	})
	buses := g.Generate()
	assert.Len(t, buses, 5*len(g.Catalog().Routes()))
	for _, b := range buses {
		assert.Equal(t, transit.Cancelled, b.Status)
	}

	_, err := NewGenerator(g.Catalog(), Options{Weights: StatusWeights{OnTime: -1, Delayed: 2}})
	assert.Error(t, err)
}

func TestNewGeneratorRejectsNilCatalog(t *testing.T) {
	_, err := NewGenerator(nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestAdvanceKeepsIdentity(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)}
	g := newTestGenerator(t, Options{Rand: NewRand(5), Now: clock.Now})
	before := g.Generate()

	after := Advance(before, g.Rand(), clock.Now())
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].NextStopID, after[i].NextStopID)
		assert.Equal(t, before[i].CrowdLevel, after[i].CrowdLevel)
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.True(t, after[i].LastUpdated.After(before[i].LastUpdated))
		assert.Equal(t, max(1, before[i].EstimatedArrival-1), after[i].EstimatedArrival)
		assert.InDelta(t, before[i].Lat, after[i].Lat, 0.001)
		assert.InDelta(t, before[i].Lng, after[i].Lng, 0.001)
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	in := []transit.Bus{{ID: "x", EstimatedArrival: 5, Speed: 20, Lat: 12.9, Lng: 77.6}}
	out := Advance(in, &stepRand{}, time.Now())
	assert.Equal(t, 5, in[0].EstimatedArrival)
	assert.Equal(t, 12.9, in[0].Lat)
	assert.Equal(t, 4, out[0].EstimatedArrival)
}

func TestETAFloorHolds(t *testing.T) {
	rnd := &stepRand{}
	clock := &fakeClock{t: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)}
	buses := []transit.Bus{{ID: "bus-r1-0", EstimatedArrival: 1, Speed: 35, Lat: 12.97, Lng: 77.57, LastUpdated: clock.t}}

	for i := 0; i < 19; i++ {
		prev := buses[0]
		buses = Advance(buses, rnd, clock.Now())
		cur := buses[0]

		assert.Equal(t, 1, cur.EstimatedArrival, "tick %d", i)
		assert.NotEqual(t, prev.Speed, cur.Speed, "tick %d", i)
		assert.NotEqual(t, prev.Lat, cur.Lat, "tick %d", i)
		assert.NotEqual(t, prev.Lng, cur.Lng, "tick %d", i)
		assert.True(t, cur.LastUpdated.After(prev.LastUpdated))
	}
}

func TestETAMonotonicUntilFloor(t *testing.T) {
	g := newTestGenerator(t, Options{Rand: NewRand(11)})
	buses := g.Generate()
	for tick := 0; tick < 25; tick++ {
		next := Advance(buses, g.Rand(), time.Now())
		for i := range next {
			assert.GreaterOrEqual(t, next[i].EstimatedArrival, 1)
			assert.LessOrEqual(t, next[i].EstimatedArrival, buses[i].EstimatedArrival)
		}
		buses = next
	}
	for _, b := range buses {
		assert.Equal(t, 1, b.EstimatedArrival)
	}
}
