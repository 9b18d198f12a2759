package trip

import (
	"sync"

	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/location"
)

// Manager hands out one session per user.
type Manager struct {
	provider location.Provider
	vehicles db.VehicleStore
	records  db.RecordStore

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(provider location.Provider, vehicles db.VehicleStore, records db.RecordStore) *Manager {
	return &Manager{
		provider: provider,
		vehicles: vehicles,
		records:  records,
		sessions: make(map[string]*Session),
	}
}

// Session returns the user's session, creating an idle one on first use.
func (m *Manager) Session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := NewSession(userID, m.provider, m.vehicles, m.records)
	m.sessions[userID] = s
	return s
}

// Shutdown cancels every active trip, releasing live subscriptions.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Cancel()
	}
}
