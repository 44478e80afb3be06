package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/notifun/wa-console/console"
	"github.com/notifun/wa-console/domains/channel"
	pkgError "github.com/notifun/wa-console/pkg/error"
	"github.com/notifun/wa-console/validations"
)

type serviceChannel struct {
	api      channel.IChannelAPI
	registry *console.Registry
	syncer   *console.Syncer
}

func NewChannelService(api channel.IChannelAPI, registry *console.Registry, syncer *console.Syncer) channel.IChannelUsecase {
	return &serviceChannel{
		api:      api,
		registry: registry,
		syncer:   syncer,
	}
}

// FetchChannels pulls the authoritative list and replaces the local set.
func (service *serviceChannel) FetchChannels(ctx context.Context) ([]channel.Channel, error) {
	channels, err := service.api.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	service.registry.ReplaceAll(channels)
	return service.registry.All(), nil
}

// CreateAndConnect creates the channel upstream, registers it locally, wires
// its feed subscription and kicks off the first connect attempt. A failing
// connect does not undo the creation; the failure lands on the channel record.
func (service *serviceChannel) CreateAndConnect(ctx context.Context, request channel.CreateChannelRequest) (channel.Channel, error) {
	if err := validations.ValidateCreateChannel(ctx, request); err != nil {
		return channel.Channel{}, err
	}

	created, err := service.api.CreateChannel(ctx, request)
	if err != nil {
		return channel.Channel{}, err
	}
	if created.ChannelID == "" {
		return channel.Channel{}, pkgError.UpstreamError("upstream returned a channel without an id")
	}

	_, cur := service.registry.Upsert(created.ChannelID, patchFromChannel(created))
	logrus.Infof("[CHANNEL] Created channel %s (%s)", created.ChannelID, created.Name)

	service.syncer.SubscribeNew(created.ChannelID)

	if err := service.Connect(ctx, created.ChannelID, request.PhoneNumber); err != nil {
		logrus.Warnf("[CHANNEL] Channel %s created but connect failed: %v", created.ChannelID, err)
	}

	if ch, ok := service.registry.Find(created.ChannelID); ok {
		return ch, nil
	}
	return cur, nil
}

// Connect starts a connect attempt. A rejection is recovered locally: the
// channel lands in the error state with a user-facing reason, and the next
// attempt clears it.
func (service *serviceChannel) Connect(ctx context.Context, channelID, phoneNumber string) error {
	service.registry.PatchKnown(channelID, channel.Patch{
		Status:          statusPtr(channel.StatusConnecting),
		IsConnecting:    boolPtr(true),
		ConnectionError: strPtr(""),
	})

	if err := service.api.ConnectChannel(ctx, channelID, phoneNumber); err != nil {
		service.registry.PatchKnown(channelID, channel.Patch{
			Status:          statusPtr(channel.StatusError),
			IsConnecting:    boolPtr(false),
			ConnectionError: strPtr(fmt.Sprintf("Failed to connect channel %s.", channelID)),
		})
		logrus.Errorf("[CHANNEL] Connection failed for channel %s: %v", channelID, err)
		return err
	}

	logrus.Infof("[CHANNEL] Connection initiated for channel %s", channelID)
	return nil
}

func (service *serviceChannel) Disconnect(ctx context.Context, channelID string) error {
	if err := service.api.DisconnectChannel(ctx, channelID); err != nil {
		return err
	}
	service.refresh(ctx)
	return nil
}

func (service *serviceChannel) Delete(ctx context.Context, channelID string) error {
	if err := service.api.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	service.syncer.Unsubscribe(channelID)
	service.refresh(ctx)
	return nil
}

// RequestPairingCode asks the upstream for a numeric pairing code and shows
// it exactly as if it had arrived as a pairing_code event.
func (service *serviceChannel) RequestPairingCode(ctx context.Context, channelID, phoneNumber string) error {
	if err := validations.ValidatePairingCode(ctx, channel.PairingCodeRequest{PhoneNumber: phoneNumber}); err != nil {
		return err
	}

	code, err := service.api.RequestPairingCode(ctx, channelID, phoneNumber)
	if err != nil {
		return err
	}
	if code != "" {
		service.registry.OpenPairing(channelID, code)
	}
	return nil
}

func (service *serviceChannel) RefreshQR(ctx context.Context, channelID string) error {
	return service.api.RefreshQR(ctx, channelID)
}

func (service *serviceChannel) AddWebhook(ctx context.Context, channelID string, request channel.AddWebhookRequest) error {
	if err := validations.ValidateAddWebhook(ctx, request); err != nil {
		return err
	}
	if err := service.api.AddWebhook(ctx, channelID, request); err != nil {
		return err
	}
	service.refresh(ctx)
	return nil
}

func (service *serviceChannel) UpdateWebhook(ctx context.Context, channelID, webhookID string, request channel.UpdateWebhookRequest) error {
	if err := service.api.UpdateWebhook(ctx, channelID, webhookID, request); err != nil {
		return err
	}
	service.refresh(ctx)
	return nil
}

func (service *serviceChannel) DeleteWebhook(ctx context.Context, channelID, webhookID string) error {
	if err := service.api.DeleteWebhook(ctx, channelID, webhookID); err != nil {
		return err
	}
	service.refresh(ctx)
	return nil
}

func (service *serviceChannel) Channels() []channel.Channel {
	return service.registry.All()
}

func (service *serviceChannel) QRModal() channel.Modal {
	return service.registry.QRModal()
}

func (service *serviceChannel) PairingModal() channel.Modal {
	return service.registry.PairingModal()
}

// refresh re-pulls the authoritative list after a mutating round-trip. The
// next pull or pushed event repairs any miss, so failures only get logged.
func (service *serviceChannel) refresh(ctx context.Context) {
	if _, err := service.FetchChannels(ctx); err != nil {
		logrus.Warnf("[CHANNEL] Refresh after mutation failed: %v", err)
	}
}

func patchFromChannel(ch channel.Channel) channel.Patch {
	patch := channel.Patch{
		Name:         &ch.Name,
		Status:       &ch.Status,
		IsActive:     &ch.IsActive,
		IsConnecting: boolPtr(false),
	}
	if ch.PhoneNumber != "" {
		patch.PhoneNumber = &ch.PhoneNumber
	}
	if ch.LastStatusUpdate != "" {
		patch.LastStatusUpdate = &ch.LastStatusUpdate
	}
	if ch.Webhooks != nil {
		patch.Webhooks = &ch.Webhooks
	}
	return patch
}

func statusPtr(s channel.Status) *channel.Status { return &s }
func boolPtr(b bool) *bool                       { return &b }
func strPtr(s string) *string                    { return &s }
