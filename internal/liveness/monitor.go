// Package liveness evicts connections that stop answering probes.
//
// A single ticker drives every scan. A target that has not acknowledged
// a probe since the previous scan is terminated; every other target is
// marked pending and probed again.
package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/meshroom/internal/core"
)

// DefaultInterval is the scan period used when none is configured.
const DefaultInterval = 30 * time.Second

// Target is a probeable connection.
type Target interface {
	// Ping blocks until the peer acknowledges or ctx is done.
	Ping(ctx context.Context) error
	// Terminate drops the connection without a handshake.
	Terminate()
}

type entry struct {
	target Target
	alive  bool
}

// Monitor tracks targets and terminates the unresponsive ones.
type Monitor struct {
	interval time.Duration
	log      *zerolog.Logger
	onEvict  func(core.SessionID)

	mu      sync.Mutex
	targets map[core.SessionID]*entry
}

// New creates a monitor. onEvict may be nil.
func New(interval time.Duration, logger *zerolog.Logger, onEvict func(core.SessionID)) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Monitor{
		interval: interval,
		log:      logger,
		onEvict:  onEvict,
		targets:  make(map[core.SessionID]*entry),
	}
}

// Interval returns the scan period.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Track starts watching a target. The returned func stops watching it.
func (m *Monitor) Track(id core.SessionID, t Target) func() {
	m.mu.Lock()
	m.targets[id] = &entry{target: t, alive: true}
	m.mu.Unlock()

	return func() { m.Untrack(id) }
}

// Untrack stops watching a target. Unknown ids are ignored.
func (m *Monitor) Untrack(id core.SessionID) {
	m.mu.Lock()
	delete(m.targets, id)
	m.mu.Unlock()
}

// Ack records a probe acknowledgement.
func (m *Monitor) Ack(id core.SessionID) {
	m.mu.Lock()
	if e, ok := m.targets[id]; ok {
		e.alive = true
	}
	m.mu.Unlock()
}

// Len returns the number of tracked targets.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.targets)
}

// Run scans on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan performs one sweep: terminate the silent, probe the rest.
func (m *Monitor) Scan(ctx context.Context) {
	var (
		dead  = make(map[core.SessionID]Target)
		probe = make(map[core.SessionID]Target)
	)

	m.mu.Lock()
	for id, e := range m.targets {
		if !e.alive {
			dead[id] = e.target
			delete(m.targets, id)
			continue
		}
		e.alive = false
		probe[id] = e.target
	}
	m.mu.Unlock()

	for id, t := range dead {
		m.log.Info().Str("client_id", id.String()).Msg("liveness timeout, terminating connection")
		t.Terminate()
		if m.onEvict != nil {
			m.onEvict(id)
		}
	}

	for id, t := range probe {
		go m.probe(ctx, id, t)
	}
}

func (m *Monitor) probe(ctx context.Context, id core.SessionID, t Target) {
	pingCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	if err := t.Ping(pingCtx); err != nil {
		m.log.Debug().Err(err).Str("client_id", id.String()).Msg("probe failed")
		return
	}
	m.Ack(id)
}
