package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
)

// DefaultIdleTimeout evicts sessions nobody has touched for this long.
const DefaultIdleTimeout = 30 * time.Minute

// ManagerConfig holds what every new session is built from.
type ManagerConfig struct {
	Resolver      Resolver
	Logger        InteractionLogger
	Settings      speech.VoiceSettings
	Scheduler     Scheduler
	BridgeOptions *speechsvc.BridgeOptions
	IdleTimeout   time.Duration
	Now           func() time.Time
}

type session struct {
	assistant *Assistant
	bridge    *speechsvc.Bridge
}

// Manager owns the live assistant sessions, one per browser widget.
type Manager struct {
	cfg ManagerConfig

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewManager bootstraps an empty in-memory session registry.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Settings == (speech.VoiceSettings{}) {
		cfg.Settings = speech.DefaultVoiceSettings()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// Create provisions a closed assistant wired to its own capability bridge.
func (m *Manager) Create(_ context.Context, userID string) (*Assistant, error) {
	bridge := speechsvc.NewBridge(m.cfg.BridgeOptions)
	coordinator := speechsvc.NewCoordinator(bridge, bridge, m.cfg.Settings)
	bridge.SetHandler(coordinator)

	a := New(m.cfg.Resolver, coordinator, Options{
		ID:        uuid.NewString(),
		UserID:    userID,
		Settings:  m.cfg.Settings,
		Navigator: bridge,
		Logger:    m.cfg.Logger,
		Scheduler: m.cfg.Scheduler,
		Now:       m.cfg.Now,
	})

	m.mu.Lock()
	m.sessions[a.ID()] = &session{assistant: a, bridge: bridge}
	m.mu.Unlock()

	logging.Named("assistant").Infow("session created", "session", a.ID(), "user", userID)
	return a, nil
}

// Get retrieves a session by identifier.
func (m *Manager) Get(id string) (*Assistant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.assistant, nil
}

// Bridge returns the capability bridge of a session.
func (m *Manager) Bridge(id string) (*speechsvc.Bridge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.bridge, nil
}

// Remove disposes a session.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.assistant.Dispose()
	}
	return ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep disposes sessions idle for longer than the timeout that have no client
// attached, and returns how many were evicted.
func (m *Manager) Sweep(now time.Time) int {
	var evicted []*session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.bridge.Attached() {
			continue
		}
		if now.Sub(s.assistant.LastSeen()) < m.cfg.IdleTimeout {
			continue
		}
		delete(m.sessions, id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.assistant.Dispose()
	}
	if len(evicted) > 0 {
		logging.Named("assistant").Infow("idle sessions evicted", "count", len(evicted))
	}
	return len(evicted)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.cfg.Now())
		}
	}
}

// Shutdown disposes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range all {
		s.assistant.Dispose()
	}
}
