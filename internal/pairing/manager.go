package pairing

import (
	"sync"

	"github.com/slugzin/leadflow-backend/internal/gateway"
)

// Manager holds at most one live Session per connection.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	gateway gateway.Client
	conns   ConnectionStore
	cfg     Config
}

func NewManager(gw gateway.Client, conns ConnectionStore, cfg Config) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		gateway:  gw,
		conns:    conns,
		cfg:      cfg,
	}
}

// Open returns the connection's live session, starting one if the view
// just opened. Opening twice does not issue a second code request.
func (m *Manager) Open(connectionID, technicalName string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[connectionID]; ok {
		return s
	}
	s := newSession(connectionID, technicalName, m.cfg, m.gateway, m.conns)
	m.sessions[connectionID] = s
	return s
}

// Get returns the live session, or nil when no pairing view is open.
func (m *Manager) Get(connectionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[connectionID]
}

// Close cancels and forgets the connection's session.
func (m *Manager) Close(connectionID string) {
	m.mu.Lock()
	s := m.sessions[connectionID]
	delete(m.sessions, connectionID)
	m.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Confirm is called by the reconciler when the gateway reports the
// pairing completed. No-op when no view is open.
func (m *Manager) Confirm(connectionID string) {
	m.mu.Lock()
	s := m.sessions[connectionID]
	m.mu.Unlock()
	if s != nil {
		s.Confirm()
	}
}
