package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/domain"
)

// Manager maps session ids to live controllers. A closed controller is
// never reused: joining the same id again builds a fresh instance.
type Manager struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Controller

	deps Deps
	opts Options
}

func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{
		sessions: make(map[domain.SessionID]*Controller),
		deps:     deps,
		opts:     opts,
	}
}

// Join creates a controller for the session and runs its join
// sequence. A live controller under the same id rejects the call.
func (m *Manager) Join(ctx context.Context, sctx domain.SessionContext) (*Controller, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[sctx.SessionID]; ok && existing.State() != domain.StateClosed {
		m.mu.Unlock()
		return nil, domain.ErrSessionNotIdle
	}
	c := NewController(sctx, m.deps, m.opts)
	m.sessions[sctx.SessionID] = c
	m.mu.Unlock()

	if err := c.Join(ctx); err != nil {
		m.mu.Lock()
		if m.sessions[sctx.SessionID] == c {
			delete(m.sessions, sctx.SessionID)
		}
		m.mu.Unlock()
		return nil, err
	}
	return c, nil
}

func (m *Manager) Get(id domain.SessionID) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	return c, ok
}

// Exit tears the session down and drops it from the map once closed.
func (m *Manager) Exit(ctx context.Context, id domain.SessionID) error {
	c, ok := m.Get(id)
	if !ok {
		return domain.ErrSessionClosed
	}
	if err := c.Exit(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	if m.sessions[id] == c {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return nil
}

// Shutdown is the external forced-exit trigger: every live controller
// runs the same teardown routine a user exit would.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	live := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		live = append(live, c)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range live {
		wg.Add(1)
		go func(c *Controller) {
			defer wg.Done()
			if err := c.Exit(ctx); err != nil {
				log.Warn().Err(err).Str("module", "app.manager").Str("session", string(c.sctx.SessionID)).Msg("forced exit")
			}
		}(c)
	}
	wg.Wait()
}
