package sim

import (
	"context"
	"sync"
	"time"

	"busmate/internal/logger"
)

const DefaultTickInterval = 5 * time.Second

// Manager drives the store's live update loop on a fixed cadence.
type Manager struct {
	store    *Store
	interval time.Duration
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(store *Store, interval time.Duration, log logger.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{store: store, interval: interval, log: log}
}

func (m *Manager) Store() *Store { return m.store }

// Start initializes the fleet and launches the tick loop. Calling Start on a
// running manager does nothing. The loop ends when ctx is cancelled or Stop
// is called.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	m.store.Initialize()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.log.Info("live updates started", "interval", m.interval.String())
		for {
			select {
			case <-ctx.Done():
				m.log.Info("live updates stopped")
				return
			case <-ticker.C:
				// Stop may have raced with the ticker.
				if ctx.Err() != nil {
					return
				}
				snap := m.store.Tick()
				m.log.Debug("tick", "version", snap.Version, "buses", len(snap.Buses))
			}
		}
	}()
}

// Refresh regenerates the fleet outside the tick cadence.
func (m *Manager) Refresh() Snapshot {
	return m.store.Refresh()
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Stop cancels the loop and waits for it to exit. After Stop returns no
// further ticks fire. The manager can be started again.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
