package flow

import (
	"sync"

	"github.com/marketpulse/diagnostic/internal/catalog"
	"github.com/marketpulse/diagnostic/internal/session"
)

// Manager hands out one machine per client, restoring from the session
// store on first access.
type Manager struct {
	mu       sync.Mutex
	machines map[string]*Machine

	cat      *catalog.Catalog
	sessions *session.Store
	deliver  Deliverer
}

func NewManager(cat *catalog.Catalog, sessions *session.Store, deliver Deliverer) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		cat:      cat,
		sessions: sessions,
		deliver:  deliver,
	}
}

// Machine returns the client's machine, creating (and restoring) it on
// first use.
func (mgr *Manager) Machine(clientID string) *Machine {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if m, ok := mgr.machines[clientID]; ok {
		return m
	}
	m := New(clientID, mgr.cat, mgr.sessions, mgr.deliver)
	mgr.machines[clientID] = m
	return m
}

// Forget drops a client's machine from memory, forcing a fresh restore on
// next access.
func (mgr *Manager) Forget(clientID string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	delete(mgr.machines, clientID)
}
