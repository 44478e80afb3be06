package channel

import "context"

// Status is the closed set of lifecycle states a channel can report.
type Status string

const (
	StatusInactive     Status = "inactive"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusAuth         Status = "authenticated"
	StatusQRReady      Status = "qr_ready"
	StatusPairingReady Status = "pairing_code_ready"
	StatusGeneratingQR Status = "generating_qr"
	StatusActive       Status = "active"
	StatusOpen         Status = "open"
	StatusClose        Status = "close"
	StatusError        Status = "error"
	StatusLoggedOut    Status = "logged_out"
)

// IsOpen reports whether the status denotes a usable, open connection.
func (s Status) IsOpen() bool {
	return s == StatusOpen || s == StatusActive
}

// IsClosed reports whether the status denotes a closed or inactive connection.
func (s Status) IsClosed() bool {
	return s == StatusClose || s == StatusInactive
}

// Webhook is a per-channel subscriber endpoint. Owned by the upstream API;
// carried opaquely through the registry.
type Webhook struct {
	ID       string   `json:"_id,omitempty"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	IsActive bool     `json:"isActive"`
}

// Channel is one managed messaging connection.
type Channel struct {
	ChannelID        string    `json:"channelId"`
	Name             string    `json:"name"`
	PhoneNumber      string    `json:"phoneNumber,omitempty"`
	Status           Status    `json:"status"`
	IsActive         bool      `json:"isActive"`
	IsConnecting     bool      `json:"isConnecting"`
	ConnectionError  string    `json:"connectionError,omitempty"`
	LastStatusUpdate string    `json:"lastStatusUpdate,omitempty"`
	Webhooks         []Webhook `json:"webhooks,omitempty"`
}

// Patch is a partial channel update. Nil fields leave the target untouched;
// ConnectionError set to the empty string clears the stored error.
type Patch struct {
	Name             *string
	PhoneNumber      *string
	Status           *Status
	IsActive         *bool
	IsConnecting     *bool
	ConnectionError  *string
	LastStatusUpdate *string
	Webhooks         *[]Webhook
}

// Apply merges the patch into ch.
func (p Patch) Apply(ch *Channel) {
	if p.Name != nil {
		ch.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		ch.PhoneNumber = *p.PhoneNumber
	}
	if p.Status != nil {
		ch.Status = *p.Status
	}
	if p.IsActive != nil {
		ch.IsActive = *p.IsActive
	}
	if p.IsConnecting != nil {
		ch.IsConnecting = *p.IsConnecting
	}
	if p.ConnectionError != nil {
		ch.ConnectionError = *p.ConnectionError
	}
	if p.LastStatusUpdate != nil {
		ch.LastStatusUpdate = *p.LastStatusUpdate
	}
	if p.Webhooks != nil {
		ch.Webhooks = *p.Webhooks
	}
}

// ModalKind distinguishes the two singleton handshake modals.
type ModalKind string

const (
	ModalQR      ModalKind = "qr"
	ModalPairing ModalKind = "pairing"
)

// Modal is the state of one handshake-artifact modal. Each kind exists as a
// single slot owned by at most one channel at a time.
type Modal struct {
	IsOpen           bool   `json:"isOpen"`
	Code             string `json:"code"`
	ChannelID        string `json:"channelId"`
	IsConnecting     bool   `json:"isConnecting"`
	ConnectionStatus Status `json:"connectionStatus,omitempty"`
	ShowSuccess      bool   `json:"showSuccess"`
}

// ModalPatch is a partial modal update, applied only while the modal is open
// for the channel the caller names.
type ModalPatch struct {
	ConnectionStatus *Status
	IsConnecting     *bool
	ShowSuccess      *bool
}

type CreateChannelRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type ConnectChannelRequest struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type PairingCodeRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type AddWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type UpdateWebhookRequest struct {
	URL      *string   `json:"url,omitempty"`
	Events   *[]string `json:"events,omitempty"`
	IsActive *bool     `json:"isActive,omitempty"`
}

type IChannelUsecase interface {
	FetchChannels(ctx context.Context) ([]Channel, error)
	CreateAndConnect(ctx context.Context, request CreateChannelRequest) (Channel, error)
	Connect(ctx context.Context, channelID, phoneNumber string) error
	Disconnect(ctx context.Context, channelID string) error
	Delete(ctx context.Context, channelID string) error
	RequestPairingCode(ctx context.Context, channelID, phoneNumber string) error
	RefreshQR(ctx context.Context, channelID string) error
	AddWebhook(ctx context.Context, channelID string, request AddWebhookRequest) error
	UpdateWebhook(ctx context.Context, channelID, webhookID string, request UpdateWebhookRequest) error
	DeleteWebhook(ctx context.Context, channelID, webhookID string) error
	Channels() []Channel
	QRModal() Modal
	PairingModal() Modal
}
