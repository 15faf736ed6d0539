package sessions

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type entry struct {
	conn    Conn
	session Session
}

// Registry maps live connections to their session. It is the only shared mutable
// state between connection goroutines and the event fan-out.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nowFunc func() time.Time
	logger  zerolog.Logger
}

type RegistryOption func(*Registry)

func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		nowFunc: time.Now,
		logger:  log.With().Str("component", "registry").Logger(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Register adds conn with an unauthenticated session. Registering an id twice
// replaces the previous entry.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conn.ID()] = &entry{
		conn:    conn,
		session: Session{ConnectionID: conn.ID(), Timestamp: r.nowFunc()},
	}
	r.logger.Debug().Str("connection_id", conn.ID()).Int("connections", len(r.entries)).Msg("registered")
}

func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, conn.ID())
	r.logger.Debug().Str("connection_id", conn.ID()).Int("connections", len(r.entries)).Msg("unregistered")
}

// SetSession overwrites the session of a registered connection.
func (r *Registry) SetSession(conn Conn, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[conn.ID()]
	if !ok {
		return apperrors.ErrConnectionNotFound
	}
	session = session.Clone()
	session.ConnectionID = conn.ID()
	session.Timestamp = r.nowFunc()
	e.session = session
	return nil
}

// GetSession returns a copy of the connection's session.
func (r *Registry) GetSession(conn Conn) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[conn.ID()]
	if !ok {
		return Session{}, false
	}
	return e.session.Clone(), true
}

// ListAuthenticated snapshots the connections whose session is authenticated,
// ordered by id.
func (r *Registry) ListAuthenticated() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.entries))
	for _, e := range r.entries {
		if e.session.Authenticated {
			conns = append(conns, e.conn)
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ID() < conns[j].ID()
	})
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
