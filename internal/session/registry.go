package session

import (
	"errors"
	"sync"
)

var ErrUnauthenticated = errors.New("connection is not authenticated")

// Registry maps live connection ids to authenticated user ids.
type Registry struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewRegistry() *Registry {
	return &Registry{users: map[string]string{}}
}

func (r *Registry) Bind(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[connID] = userID
}

// ResolveUser returns the user bound to connID or ErrUnauthenticated.
func (r *Registry) ResolveUser(connID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.users[connID]
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, connID)
}
