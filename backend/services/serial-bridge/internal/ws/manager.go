package ws

import "sync"

// Manager tracks attached console clients.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewManager builds client manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// Add registers new client.
func (m *Manager) Add(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID()] = c
}

// Remove removes client.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}

// Count returns the number of attached clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll disconnects every attached client.
func (m *Manager) CloseAll(reason string) {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		c.Close(reason)
	}
}
