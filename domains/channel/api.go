package channel

import "context"

// IChannelAPI is the upstream channel management API. The core only depends
// on these request/response shapes, not on the transport behind them.
type IChannelAPI interface {
	CreateChannel(ctx context.Context, request CreateChannelRequest) (Channel, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	ConnectChannel(ctx context.Context, channelID, phoneNumber string) error
	DisconnectChannel(ctx context.Context, channelID string) error
	DeleteChannel(ctx context.Context, channelID string) error
	RequestPairingCode(ctx context.Context, channelID, phoneNumber string) (string, error)
	RefreshQR(ctx context.Context, channelID string) error
	AddWebhook(ctx context.Context, channelID string, request AddWebhookRequest) error
	UpdateWebhook(ctx context.Context, channelID, webhookID string, request UpdateWebhookRequest) error
	DeleteWebhook(ctx context.Context, channelID, webhookID string) error
}
