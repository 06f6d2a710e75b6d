package fleet

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"busmate/internal/transit"
)

// ErrInvalidCatalog is returned when reference data cannot back a fleet.
var ErrInvalidCatalog = errors.New("invalid catalog")

const (
	DefaultSlotsPerRoute = 3

	spawnJitter = 0.01 // degrees, centred on the stop
	maxETA      = 20   // minutes
	minSpeed    = 10   // km/h
	speedRange  = 30
)

// Rand is the random source used for generation and ticks.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a seeded source; seed 0 picks a time-based seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// StatusWeights is the relative chance of drawing each status.
type StatusWeights struct {
	OnTime    int
	Delayed   int
	Cancelled int
}

// DefaultStatusWeights never yields cancelled buses.
var DefaultStatusWeights = StatusWeights{OnTime: 3, Delayed: 1}

type Options struct {
	SlotsPerRoute int
	Weights       StatusWeights
	Rand          Rand
	Now           func() time.Time
}

// Generator produces mock buses from the route table.
type Generator struct {
	catalog  *transit.Catalog
	slots    int
	statuses []transit.Status
	rnd      Rand
	now      func() time.Time
}

func NewGenerator(catalog *transit.Catalog, opts Options) (*Generator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidCatalog)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if opts.SlotsPerRoute <= 0 {
		opts.SlotsPerRoute = DefaultSlotsPerRoute
	}
	if opts.Weights == (StatusWeights{}) {
		opts.Weights = DefaultStatusWeights
	}
	if opts.Weights.OnTime < 0 || opts.Weights.Delayed < 0 || opts.Weights.Cancelled < 0 {
		return nil, fmt.Errorf("negative status weight: %+v", opts.Weights)
	}
	if opts.Rand == nil {
		opts.Rand = NewRand(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		catalog:  catalog,
		slots:    opts.SlotsPerRoute,
		statuses: expandWeights(opts.Weights),
		rnd:      opts.Rand,
		now:      opts.Now,
	}, nil
}

func expandWeights(w StatusWeights) []transit.Status {
	out := make([]transit.Status, 0, w.OnTime+w.Delayed+w.Cancelled)
	for i := 0; i < w.OnTime; i++ {
		out = append(out, transit.OnTime)
	}
	for i := 0; i < w.Delayed; i++ {
		out = append(out, transit.Delayed)
	}
	for i := 0; i < w.Cancelled; i++ {
		out = append(out, transit.Cancelled)
	}
	return out
}

func (g *Generator) Catalog() *transit.Catalog { return g.catalog }

func (g *Generator) SlotsPerRoute() int { return g.slots }

// Rand exposes the source so ticks draw from the same sequence.
func (g *Generator) Rand() Rand { return g.rnd }

func (g *Generator) Now() time.Time { return g.now() }

// Generate builds SlotsPerRoute buses for every route, in route then slot order.
func (g *Generator) Generate() []transit.Bus {
	routes := g.catalog.Routes()
	now := g.now()
	out := make([]transit.Bus, 0, len(routes)*g.slots)
	for _, r := range routes {
		out = g.appendRoute(out, r, now)
	}
	return out
}

// GenerateRoute builds the buses of a single route.
func (g *Generator) GenerateRoute(routeID string) ([]transit.Bus, error) {
	r, ok := g.catalog.Route(routeID)
	if !ok {
		return nil, fmt.Errorf("route %q: %w", routeID, transit.ErrNotFound)
	}
	return g.appendRoute(make([]transit.Bus, 0, g.slots), r, g.now()), nil
}

func (g *Generator) appendRoute(out []transit.Bus, r transit.Route, now time.Time) []transit.Bus {
	n := len(r.Stops)
	for slot := 0; slot < g.slots; slot++ {
		stopIndex := (slot * 2) % n
		next := min(stopIndex+1, n-1)
		// Validate guarantees the stop resolves.
		at, _ := g.catalog.Stop(r.Stops[stopIndex])

		out = append(out, transit.Bus{
			ID:               fmt.Sprintf("bus-%s-%d", r.ID, slot),
			Number:           r.Number,
			RouteID:          r.ID,
			From:             r.From,
			FromKn:           r.FromKn,
			To:               r.To,
			ToKn:             r.ToKn,
			Via:              r.Via,
			ViaKn:            r.ViaKn,
			Lat:              at.Lat + (g.rnd.Float64()-0.5)*spawnJitter,
			Lng:              at.Lng + (g.rnd.Float64()-0.5)*spawnJitter,
			CrowdLevel:       transit.CrowdLevels[g.rnd.IntN(len(transit.CrowdLevels))],
			Status:           g.statuses[g.rnd.IntN(len(g.statuses))],
			NextStopID:       r.Stops[next],
			EstimatedArrival: g.rnd.IntN(maxETA) + 1,
			LastUpdated:      now,
			Speed:            g.rnd.IntN(speedRange) + minSpeed,
		})
	}
	return out
}
