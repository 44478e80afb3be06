package console

import (
	"time"

	"github.com/notifun/wa-console/domains/feed"
)

// Manager owns the core trio: registry, reconciler and syncer, wired onto one
// transport. The syncer's connect handler is registered first so a fresh
// connection is resubscribed before lifecycle handlers observe its events.
type Manager struct {
	Registry   *Registry
	Reconciler *Reconciler
	Syncer     *Syncer

	transport feed.ITransport
}

func NewManager(transport feed.ITransport, dismissDelay time.Duration) *Manager {
	registry := NewRegistry()
	m := &Manager{
		Registry:   registry,
		Reconciler: NewReconciler(registry, transport, dismissDelay),
		Syncer:     NewSyncer(registry, transport),
		transport:  transport,
	}
	m.Syncer.Listen()
	m.Reconciler.Listen()
	return m
}

// Start opens the transport. Handlers are already registered, so the first
// connect event performs the initial bulk subscribe.
func (m *Manager) Start() {
	m.transport.Connect()
}

// Stop closes the transport deliberately; no reconnection follows.
func (m *Manager) Stop() {
	m.transport.Disconnect()
}
