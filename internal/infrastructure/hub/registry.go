package hub

import (
	"sort"
	"sync"
)

type session struct {
	conn   Connection
	topics map[Topic]struct{}
}

// Registry tracks live connections and their topic memberships. Both
// directions of the membership relation are updated under one lock, so a
// reader sees a subscription change either fully applied or not at all.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	groups   map[Topic]map[string]Connection
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		groups:   make(map[Topic]map[string]Connection),
	}
}

// Add registers conn with no subscriptions. It returns false if a
// connection with the same id is already present.
func (r *Registry) Add(conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[conn.ID()]; exists {
		return false
	}
	r.sessions[conn.ID()] = &session{
		conn:   conn,
		topics: make(map[Topic]struct{}),
	}
	return true
}

// Remove drops the connection and every membership it holds. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	for topic := range s.topics {
		r.leave(topic, connID)
	}
	delete(r.sessions, connID)
	return s.conn, true
}

func (r *Registry) Subscribe(connID string, topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	s.topics[topic] = struct{}{}

	group, ok := r.groups[topic]
	if !ok {
		group = make(map[string]Connection)
		r.groups[topic] = group
	}
	group[connID] = s.conn
	return nil
}

func (r *Registry) Unsubscribe(connID string, topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	if _, member := s.topics[topic]; !member {
		return nil
	}
	delete(s.topics, topic)
	r.leave(topic, connID)
	return nil
}

// leave must be called with mu held.
func (r *Registry) leave(topic Topic, connID string) {
	group := r.groups[topic]
	delete(group, connID)
	if len(group) == 0 {
		delete(r.groups, topic)
	}
}

// Subscriptions returns the connection's topics sorted by name.
func (r *Registry) Subscriptions(connID string) ([]Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	topics := make([]Topic, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].String() < topics[j].String()
	})
	return topics, nil
}

// Members returns every connection subscribed to at least one of topics,
// each exactly once.
func (r *Registry) Members(topics ...Topic) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var members []Connection
	for _, topic := range topics {
		for id, conn := range r.groups[topic] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			members = append(members, conn)
		}
	}
	return members
}

func (r *Registry) Get(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

func (r *Registry) All() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Connection, 0, len(r.sessions))
	for _, s := range r.sessions {
		conns = append(conns, s.conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// TopicCount returns the number of topics with at least one member.
func (r *Registry) TopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// Clear empties the registry and returns the connections it held.
func (r *Registry) Clear() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]Connection, 0, len(r.sessions))
	for _, s := range r.sessions {
		conns = append(conns, s.conn)
	}
	r.sessions = make(map[string]*session)
	r.groups = make(map[Topic]map[string]Connection)
	return conns
}
