package console_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/notifun/wa-console/domains/feed"
)

// fakeTransport drives handlers synchronously so tests observe registry state
// right after firing an event, the same ordering the real single-goroutine
// dispatch guarantees.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string][]feed.Handler
	once      map[string][]feed.Handler
	emitted   []emittedFrame
}

type emittedFrame struct {
	Event   string
	Payload any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[string][]feed.Handler),
		once:     make(map[string][]feed.Handler),
	}
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Connect() {
	f.mu.Lock()
	if f.connected {
		f.mu.Unlock()
		return
	}
	f.connected = true
	f.mu.Unlock()
	f.fire(feed.EventConnect, nil)
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return
	}
	f.connected = false
	f.mu.Unlock()
	f.fire(feed.EventDisconnect, feed.DisconnectPayload{Reason: "client disconnect"})
}

func (f *fakeTransport) On(event string, handler feed.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], handler)
}

func (f *fakeTransport) Once(event string, handler feed.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once[event] = append(f.once[event], handler)
}

func (f *fakeTransport) Emit(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return
	}
	f.emitted = append(f.emitted, emittedFrame{Event: event, Payload: payload})
}

// fire marshals payload and delivers it to once handlers first, then the
// persistent ones.
func (f *fakeTransport) fire(event string, payload any) {
	raw, _ := json.Marshal(payload)
	f.fireRaw(event, raw)
}

func (f *fakeTransport) fireRaw(event string, raw json.RawMessage) {
	f.mu.Lock()
	oneshots := f.once[event]
	delete(f.once, event)
	persistent := make([]feed.Handler, len(f.handlers[event]))
	copy(persistent, f.handlers[event])
	f.mu.Unlock()

	for _, h := range oneshots {
		h(raw)
	}
	for _, h := range persistent {
		h(raw)
	}
}

func (f *fakeTransport) subscribedChannels(t *testing.T) map[string]int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[string]int)
	for _, frame := range f.emitted {
		if frame.Event != feed.ControlSubscribe {
			continue
		}
		p, ok := frame.Payload.(feed.SubscriptionPayload)
		if !ok {
			t.Fatalf("subscribe frame carries %T, want feed.SubscriptionPayload", frame.Payload)
		}
		counts[p.ChannelID]++
	}
	return counts
}
