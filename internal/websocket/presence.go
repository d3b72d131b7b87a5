package websocket

import (
	"sync"
)

// PresenceRegistry maps each online user to their live connections. A user is
// present iff they have at least one registered connection.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[uint]map[string]*Client
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{conns: make(map[uint]map[string]*Client)}
}

// Register adds c to the user's set and reports whether it is the user's first connection.
func (p *PresenceRegistry) Register(userID uint, c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]*Client)
		p.conns[userID] = set
	}
	set[c.id] = c
	return !ok
}

// Unregister removes c. removed is false when c was not registered; last
// reports whether the user just went offline.
func (p *PresenceRegistry) Unregister(userID uint, c *Client) (removed, last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return false, false
	}
	if _, present := set[c.id]; !present {
		return false, false
	}
	delete(set, c.id)
	if len(set) == 0 {
		delete(p.conns, userID)
		return true, true
	}
	return true, false
}

func (p *PresenceRegistry) IsOnline(userID uint) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID]) > 0
}

func (p *PresenceRegistry) ConnectionCount(userID uint) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID])
}

func (p *PresenceRegistry) OnlineUsers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// ForEachConnectionOf calls fn for every live connection of the user. fn runs
// on a snapshot, outside the registry lock.
func (p *PresenceRegistry) ForEachConnectionOf(userID uint, fn func(*Client)) {
	p.mu.RLock()
	snapshot := make([]*Client, 0, len(p.conns[userID]))
	for _, c := range p.conns[userID] {
		snapshot = append(snapshot, c)
	}
	p.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// All returns every registered connection.
func (p *PresenceRegistry) All() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var all []*Client
	for _, set := range p.conns {
		for _, c := range set {
			all = append(all, c)
		}
	}
	return all
}
