package console

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/notifun/wa-console/domains/feed"
)

// Syncer keeps the transport's per-channel subscriptions consistent with the
// registry's channel set. Subscribes are fire-and-forget control messages with
// no acknowledgement and no retry: correctness comes from the bulk resync on
// every (re)connect, which is idempotent at the transport.
type Syncer struct {
	registry  *Registry
	transport feed.ITransport

	// pending holds channels created while the transport was down. They are
	// subscribed on the next connect, exactly once, alongside the bulk
	// resync. A channel can sit here without being in the registry yet:
	// creation and the first connect race.
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewSyncer(registry *Registry, transport feed.ITransport) *Syncer {
	return &Syncer{
		registry:  registry,
		transport: transport,
		pending:   make(map[string]struct{}),
	}
}

// Listen registers the connect-event resync. Must be called before the
// transport connects.
func (s *Syncer) Listen() {
	s.transport.On(feed.EventConnect, func(json.RawMessage) {
		s.ResyncAll()
	})
}

// ResyncAll subscribes to every known channel plus any pending ones, one
// subscribe message per distinct channel ID.
func (s *Syncer) ResyncAll() {
	ids := s.registry.ChannelIDs()

	s.mu.Lock()
	seen := make(map[string]struct{}, len(ids)+len(s.pending))
	for id := range s.pending {
		seen[id] = struct{}{}
	}
	s.pending = make(map[string]struct{})
	s.mu.Unlock()

	for _, id := range ids {
		seen[id] = struct{}{}
	}

	logrus.Infof("[SYNCER] Resubscribing to %d channel(s)", len(seen))
	for id := range seen {
		s.subscribe(id)
	}
}

// SubscribeNew ensures a newly created channel will receive events. If the
// transport is connected the subscribe goes out immediately; otherwise a
// connection is requested and the channel is marked for the next connect.
// Emitting on an unconnected transport is a silent no-op that must never be
// mistaken for success, hence the deferral.
func (s *Syncer) SubscribeNew(channelID string) {
	if channelID == "" {
		return
	}
	if s.transport.Connected() {
		s.subscribe(channelID)
		return
	}

	logrus.Infof("[SYNCER] Transport not connected, deferring subscription for channel %s", channelID)
	s.mu.Lock()
	s.pending[channelID] = struct{}{}
	s.mu.Unlock()
	s.transport.Connect()
}

// Unsubscribe drops the per-channel subscription. Used only on deliberate
// teardown; a stale subscription to a deleted channel is harmless since the
// server stops emitting for it.
func (s *Syncer) Unsubscribe(channelID string) {
	if !s.transport.Connected() {
		return
	}
	logrus.Infof("[SYNCER] Unsubscribing from channel %s", channelID)
	s.transport.Emit(feed.ControlUnsubscribe, feed.SubscriptionPayload{ChannelID: channelID})
}

func (s *Syncer) subscribe(channelID string) {
	if !s.transport.Connected() {
		logrus.Warnf("[SYNCER] Cannot subscribe to channel %s: transport not connected", channelID)
		return
	}
	logrus.Debugf("[SYNCER] Subscribing to channel %s", channelID)
	s.transport.Emit(feed.ControlSubscribe, feed.SubscriptionPayload{ChannelID: channelID})
}
