package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// Presence is the single source of truth for which connection a user is
// currently reachable on. One binding per user; a newer Bind supersedes
// the previous connection without closing it.
type Presence struct {
	mu       sync.RWMutex
	conns    map[domain.UserID]core.SignalConnection
	onUnbind func(domain.UserID)
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[domain.UserID]core.SignalConnection)}
}

// OnUnbind registers the hook fired after a binding is removed, so the
// lifecycle controller can end sessions the vanished user was part of.
// Must be set at wiring time, before any connection is accepted.
func (p *Presence) OnUnbind(fn func(domain.UserID)) {
	p.onUnbind = fn
}

func (p *Presence) Bind(id domain.UserID, conn core.SignalConnection) {
	p.mu.Lock()
	prev := p.conns[id]
	p.conns[id] = conn
	p.mu.Unlock()

	if prev != nil && prev != conn {
		log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("binding superseded")
		return
	}
	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("bound connection")
}

// Unbind removes the binding if present and reports whether one existed.
func (p *Presence) Unbind(id domain.UserID) bool {
	p.mu.Lock()
	_, ok := p.conns[id]
	delete(p.conns, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("unbound connection")
	// The hook runs outside the lock: it walks the call store and pushes
	// to other connections.
	if p.onUnbind != nil {
		p.onUnbind(id)
	}
	return true
}

// UnbindConn removes the binding only while it still refers to conn, so a
// stale connection tearing down cannot evict its successor.
func (p *Presence) UnbindConn(id domain.UserID, conn core.SignalConnection) bool {
	p.mu.Lock()
	cur, ok := p.conns[id]
	if !ok || cur != conn {
		p.mu.Unlock()
		return false
	}
	delete(p.conns, id)
	p.mu.Unlock()

	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("unbound connection")
	if p.onUnbind != nil {
		p.onUnbind(id)
	}
	return true
}

func (p *Presence) Lookup(id domain.UserID) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.conns[id]
	return conn, ok
}
