package feed

import "encoding/json"

// Event names pushed by the upstream event feed.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventQRCode           = "qr_code"
	EventPairingCode      = "pairing_code"
	EventChannelStatus    = "channel_status"
	EventConnectionUpdate = "connection_update"
	EventIncomingMessage  = "incoming_message"
	EventMessageStatus    = "message_status_update"
)

// Control messages emitted back to the feed. Fire-and-forget; there is no
// acknowledgement.
const (
	ControlSubscribe   = "subscribe_channel"
	ControlUnsubscribe = "unsubscribe_channel"
)

// Handler receives the raw payload of a named event. Payloads may be partial
// or malformed; handlers apply what they can and never panic on missing
// fields.
type Handler func(payload json.RawMessage)

// ITransport is the long-lived duplex connection to the event feed. Its
// reconnection policy lives in configuration, not here. Connect and Disconnect
// are explicit; Emit on a disconnected transport is a silent no-op.
type ITransport interface {
	Connected() bool
	Connect()
	Disconnect()
	On(event string, handler Handler)
	Once(event string, handler Handler)
	Emit(event string, payload any)
}

type DisconnectPayload struct {
	Reason string `json:"reason"`
}

type QRCodePayload struct {
	ChannelID string `json:"channelId"`
	QRCode    string `json:"qrCode"`
	Timestamp string `json:"timestamp"`
}

type PairingCodePayload struct {
	ChannelID string `json:"channelId"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

type ChannelStatusPayload struct {
	ChannelID string `json:"channelId"`
	Status    string `json:"status"`
}

type LastDisconnect struct {
	Reason  int    `json:"reason"`
	Message string `json:"message"`
}

type ConnectionUpdatePayload struct {
	ChannelID      string          `json:"channelId"`
	Status         string          `json:"status"`
	Timestamp      string          `json:"timestamp"`
	LastDisconnect *LastDisconnect `json:"lastDisconnect,omitempty"`
}

type SubscriptionPayload struct {
	ChannelID string `json:"channelId"`
}

type IncomingMessagePayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

type MessageStatusPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
