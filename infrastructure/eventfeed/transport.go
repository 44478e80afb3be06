package eventfeed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/notifun/wa-console/domains/feed"
)

// Frame is the wire shape of every feed message, inbound and outbound.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Config controls the connection and its reconnect policy. A zero
// ReconnectAttempts means retry forever.
type Config struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
}

// Transport is the long-lived websocket connection to the event feed. All
// inbound events are dispatched sequentially from a single goroutine, so
// handlers never run concurrently with each other. The synthetic "connect"
// and "disconnect" events are dispatched from the same goroutine.
type Transport struct {
	cfg    Config
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	running   bool
	closing   bool

	handlersMu sync.Mutex
	handlers   map[string][]feed.Handler
	once       map[string][]feed.Handler

	writeMu sync.Mutex
}

var _ feed.ITransport = (*Transport)(nil)

func NewTransport(cfg Config) *Transport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Transport{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		handlers: make(map[string][]feed.Handler),
		once:     make(map[string][]feed.Handler),
	}
}

// Connected reports whether the socket is currently open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Connect starts the connection loop. It returns immediately; the "connect"
// event signals success. Calling it while already connected or connecting is
// a no-op. Clearing the closing flag here lets a loop that is still tearing
// down after Disconnect pick the request up and redial instead of exiting.
func (t *Transport) Connect() {
	t.mu.Lock()
	t.closing = false
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	go t.run()
}

// Disconnect closes the socket deliberately. No reconnection follows until
// the next Connect call.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.closing = true
	conn := t.conn
	t.conn = nil
	t.connected = false
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// On registers a persistent handler for the named event.
func (t *Transport) On(event string, handler feed.Handler) {
	t.handlersMu.Lock()
	t.handlers[event] = append(t.handlers[event], handler)
	t.handlersMu.Unlock()
}

// Once registers a handler that runs on the next occurrence of the named
// event and is then dropped.
func (t *Transport) Once(event string, handler feed.Handler) {
	t.handlersMu.Lock()
	t.once[event] = append(t.once[event], handler)
	t.handlersMu.Unlock()
}

// Emit sends a control message. On a disconnected transport this is a silent
// no-op; there is no buffering and no acknowledgement.
func (t *Transport) Emit(event string, payload any) {
	t.mu.Lock()
	conn := t.conn
	connected := t.connected
	t.mu.Unlock()

	if !connected || conn == nil {
		logrus.Debugf("[FEED] Dropping %s emit: not connected", event)
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("[FEED] Marshal error for %s: %v", event, err)
		return
	}

	t.writeMu.Lock()
	err = conn.WriteJSON(Frame{Event: event, Payload: raw})
	t.writeMu.Unlock()
	if err != nil {
		logrus.Errorf("[FEED] Write error for %s: %v", event, err)
	}
}

// exitIfClosing reports whether the loop should stop. The closing check and
// the running reset happen under one lock, so a Connect issued during
// teardown either finds running still set and clears closing for this loop,
// or finds the loop already stopped and starts a fresh one. A request can
// never fall between the two.
func (t *Transport) exitIfClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		t.running = false
		return true
	}
	return false
}

func (t *Transport) run() {
	attempt := 0
	for {
		if t.exitIfClosing() {
			return
		}

		conn, _, err := t.dialer.Dial(t.cfg.URL, nil)
		if err != nil {
			attempt++
			logrus.Warnf("[FEED] Connection attempt %d failed: %v", attempt, err)
			if t.cfg.ReconnectAttempts > 0 && attempt >= t.cfg.ReconnectAttempts {
				logrus.Errorf("[FEED] Giving up after %d attempts", attempt)
				t.mu.Lock()
				t.running = false
				t.mu.Unlock()
				return
			}
			time.Sleep(t.cfg.ReconnectDelay)
			continue
		}
		attempt = 0

		t.mu.Lock()
		if t.closing {
			t.running = false
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.conn = conn
		t.connected = true
		t.mu.Unlock()

		logrus.Infof("[FEED] Connected to %s", t.cfg.URL)
		t.dispatch(feed.EventConnect, nil)

		readErr := t.readLoop(conn)

		t.mu.Lock()
		t.connected = false
		t.conn = nil
		if t.closing {
			t.running = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		reason, _ := json.Marshal(feed.DisconnectPayload{Reason: readErr.Error()})
		t.dispatch(feed.EventDisconnect, reason)
		time.Sleep(t.cfg.ReconnectDelay)
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Warnf("[FEED] Read error: %v", err)
			}
			return err
		}

		var frame Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			logrus.Warnf("[FEED] Dropping malformed frame: %v", err)
			continue
		}
		if frame.Event == "" {
			continue
		}
		t.dispatch(frame.Event, frame.Payload)
	}
}

// dispatch invokes the one-shot handlers first (consuming them), then the
// persistent ones, in registration order.
func (t *Transport) dispatch(event string, payload json.RawMessage) {
	t.handlersMu.Lock()
	onceHandlers := t.once[event]
	delete(t.once, event)
	persistent := make([]feed.Handler, len(t.handlers[event]))
	copy(persistent, t.handlers[event])
	t.handlersMu.Unlock()

	for _, h := range onceHandlers {
		h(payload)
	}
	for _, h := range persistent {
		h(payload)
	}
}
