package store

import (
	"sync"

	"go.uber.org/zap"
)

// Session pairs the per-session store with its listing controller.
type Session struct {
	Store      *Store
	Controller *Controller
}

// Registry hands out one Session per gateway session token. Stores are
// created lazily and dropped on logout.
type Registry struct {
	remote   RemoteAPI
	logger   *zap.Logger
	stale    StaleObserver
	pageSize int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(remoteAPI RemoteAPI, logger *zap.Logger, stale StaleObserver, pageSize int) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		remote:   remoteAPI,
		logger:   logger,
		stale:    stale,
		pageSize: pageSize,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the id, or nil when none exists.
func (r *Registry) Get(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}

// GetOrCreate returns the session for the id, creating it when absent.
func (r *Registry) GetOrCreate(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		return session
	}
	s := New(r.remote, r.logger, r.stale)
	session := &Session{Store: s, Controller: NewController(s, r.pageSize)}
	r.sessions[sessionID] = session
	return session
}

// Remove clears the session's store and drops it. Idempotent.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		session.Store.Logout()
	}
}

// Len reports the number of live sessions, for metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
