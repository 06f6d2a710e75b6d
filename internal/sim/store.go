package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"busmate/internal/fleet"
	"busmate/internal/logger"
	mmetrics "busmate/internal/metrics"
	"busmate/internal/transit"
)

var ErrNoSelection = errors.New("no bus selected")

// Snapshot is an immutable view of the fleet. Consumers must not modify Buses.
type Snapshot struct {
	Buses       []transit.Bus `json:"buses"`
	LastRefresh time.Time     `json:"lastRefresh"`
	Version     uint64        `json:"version"`
}

// Bus looks up a bus by id.
func (s Snapshot) Bus(id string) (transit.Bus, bool) {
	for _, b := range s.Buses {
		if b.ID == id {
			return b, true
		}
	}
	return transit.Bus{}, false
}

// Listener is called synchronously after every snapshot replacement.
// It must not call Store mutators.
type Listener func(Snapshot)

type subscription struct {
	id uint64
	fn Listener
}

// Store owns the current fleet snapshot and its listeners. Every mutator
// builds a new snapshot, swaps it in, then notifies listeners in
// subscription order.
type Store struct {
	gen     *fleet.Generator
	log     logger.Logger
	metrics *mmetrics.Collector

	writeMu sync.Mutex // serializes mutation + notification

	mu        sync.RWMutex
	snap      Snapshot
	subs      []subscription
	nextSubID uint64
	selected  string
	favorites map[string]struct{}
}

func NewStore(gen *fleet.Generator, log logger.Logger, metrics *mmetrics.Collector) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		gen:       gen,
		log:       log,
		metrics:   metrics,
		favorites: make(map[string]struct{}),
	}
}

func (s *Store) Catalog() *transit.Catalog { return s.gen.Catalog() }

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.setSubscriberGauge()
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			s.setSubscriberGauge()
		})
	}
}

func (s *Store) setSubscriberGauge() {
	if s.metrics != nil {
		s.metrics.Subscribers.Set(float64(len(s.subs)))
	}
}

// Initialize generates the first fleet. It is a no-op once a snapshot exists.
func (s *Store) Initialize() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.Snapshot().Version > 0 {
		return
	}
	s.replace(s.gen.Generate())
	s.log.Info("fleet initialized", "buses", len(s.Snapshot().Buses))
}

// Refresh discards the current fleet and generates a new one.
func (s *Store) Refresh() Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	snap := s.replace(s.gen.Generate())
	if s.metrics != nil {
		s.metrics.Refreshes.Inc()
	}
	s.log.Debug("fleet refreshed", "buses", len(snap.Buses), "version", snap.Version)
	return snap
}

// RefreshRoute regenerates the buses of one route and keeps every other bus
// as it is. The route's buses stay in their fleet positions.
func (s *Store) RefreshRoute(routeID string) (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	fresh, err := s.gen.GenerateRoute(routeID)
	if err != nil {
		return Snapshot{}, err
	}
	byID := make(map[string]transit.Bus, len(fresh))
	for _, b := range fresh {
		byID[b.ID] = b
	}
	cur := s.Snapshot().Buses
	next := make([]transit.Bus, 0, len(cur))
	for _, b := range cur {
		if nb, ok := byID[b.ID]; ok {
			b = nb
			delete(byID, b.ID)
		}
		next = append(next, b)
	}
	// Buses the current fleet lacks, e.g. before Initialize.
	for _, b := range fresh {
		if _, ok := byID[b.ID]; ok {
			next = append(next, b)
		}
	}
	snap := s.replace(next)
	if s.metrics != nil {
		s.metrics.Refreshes.Inc()
	}
	return snap, nil
}

// Tick applies one live update to every bus.
func (s *Store) Tick() Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	start := time.Now()
	next := fleet.Advance(s.Snapshot().Buses, s.gen.Rand(), s.gen.Now())
	snap := s.replace(next)
	if s.metrics != nil {
		s.metrics.Ticks.Inc()
		s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	return snap
}

// replace must be called with writeMu held.
func (s *Store) replace(buses []transit.Bus) Snapshot {
	s.mu.Lock()
	s.snap = Snapshot{
		Buses:       buses,
		LastRefresh: s.gen.Now(),
		Version:     s.snap.Version + 1,
	}
	snap := s.snap
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveFleet(buses)
	}
	for _, sub := range subs {
		sub.fn(snap)
	}
	return snap
}

// Select marks a bus as selected. The bus must exist in the current snapshot.
func (s *Store) Select(busID string) (transit.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.snap.Bus(busID)
	if !ok {
		return transit.Bus{}, fmt.Errorf("bus %q: %w", busID, transit.ErrNotFound)
	}
	s.selected = busID
	return b, nil
}

// SelectStop selects the first bus heading to stopID. The selection is left
// untouched when no bus is heading there.
func (s *Store) SelectStop(stopID string) (transit.Bus, error) {
	if _, ok := s.Catalog().Stop(stopID); !ok {
		return transit.Bus{}, fmt.Errorf("stop %q: %w", stopID, transit.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.snap.Buses {
		if b.NextStopID == stopID {
			s.selected = b.ID
			return b, nil
		}
	}
	return transit.Bus{}, fmt.Errorf("no bus heading to stop %q: %w", stopID, transit.ErrNotFound)
}

// Selected resolves the selection against the current snapshot, so the
// returned bus always carries the latest position.
func (s *Store) Selected() (transit.Bus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return transit.Bus{}, ErrNoSelection
	}
	b, ok := s.snap.Bus(s.selected)
	if !ok {
		return transit.Bus{}, fmt.Errorf("selected bus %q: %w", s.selected, transit.ErrNotFound)
	}
	return b, nil
}

func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// ToggleFavorite flips the favorite flag of a route and returns the new state.
func (s *Store) ToggleFavorite(routeID string) (bool, error) {
	if _, ok := s.Catalog().Route(routeID); !ok {
		return false, fmt.Errorf("route %q: %w", routeID, transit.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[routeID]; ok {
		delete(s.favorites, routeID)
		return false, nil
	}
	s.favorites[routeID] = struct{}{}
	return true, nil
}

// Favorites lists favorite route ids in catalog order.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.favorites))
	for _, r := range s.Catalog().Routes() {
		if _, ok := s.favorites[r.ID]; ok {
			out = append(out, r.ID)
		}
	}
	return out
}
