package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifun/wa-console/console"
	"github.com/notifun/wa-console/domains/channel"
	"github.com/notifun/wa-console/domains/feed"
	pkgError "github.com/notifun/wa-console/pkg/error"
)

// stubTransport satisfies the transport interface for wiring a real syncer.
type stubTransport struct {
	connected bool
	emitted   []string
}

func (s *stubTransport) Connected() bool { return s.connected }
func (s *stubTransport) Connect()        { s.connected = true }
func (s *stubTransport) Disconnect()     { s.connected = false }

func (s *stubTransport) On(string, feed.Handler)   {}
func (s *stubTransport) Once(string, feed.Handler) {}

func (s *stubTransport) Emit(event string, payload any) {
	if !s.connected {
		return
	}
	p, _ := payload.(feed.SubscriptionPayload)
	s.emitted = append(s.emitted, event+":"+p.ChannelID)
}

type fakeAPI struct {
	channels    []channel.Channel
	created     channel.Channel
	pairingCode string

	returnBareChannel bool
	connectErr        error
	listCalls         int
	connects          []string
}

func (f *fakeAPI) CreateChannel(_ context.Context, request channel.CreateChannelRequest) (channel.Channel, error) {
	if f.returnBareChannel {
		return channel.Channel{}, nil
	}
	if f.created.ChannelID == "" {
		return channel.Channel{}, errors.New("create rejected")
	}
	created := f.created
	created.Name = request.Name
	return created, nil
}

func (f *fakeAPI) ListChannels(context.Context) ([]channel.Channel, error) {
	f.listCalls++
	return f.channels, nil
}

func (f *fakeAPI) ConnectChannel(_ context.Context, channelID, _ string) error {
	f.connects = append(f.connects, channelID)
	return f.connectErr
}

func (f *fakeAPI) DisconnectChannel(context.Context, string) error { return nil }
func (f *fakeAPI) DeleteChannel(context.Context, string) error     { return nil }

func (f *fakeAPI) RequestPairingCode(context.Context, string, string) (string, error) {
	return f.pairingCode, nil
}

func (f *fakeAPI) RefreshQR(context.Context, string) error { return nil }

func (f *fakeAPI) AddWebhook(context.Context, string, channel.AddWebhookRequest) error { return nil }
func (f *fakeAPI) UpdateWebhook(context.Context, string, string, channel.UpdateWebhookRequest) error {
	return nil
}
func (f *fakeAPI) DeleteWebhook(context.Context, string, string) error { return nil }

func newTestService(api *fakeAPI) (channel.IChannelUsecase, *console.Registry, *stubTransport) {
	registry := console.NewRegistry()
	transport := &stubTransport{connected: true}
	syncer := console.NewSyncer(registry, transport)
	return NewChannelService(api, registry, syncer), registry, transport
}

func TestFetchChannelsReplacesRegistry(t *testing.T) {
	api := &fakeAPI{channels: []channel.Channel{
		{ChannelID: "ch1", Name: "One", Status: channel.StatusOpen, IsActive: true},
		{ChannelID: "ch2", Name: "Two", Status: channel.StatusInactive},
	}}
	service, registry, _ := newTestService(api)
	registry.Upsert("stale", channel.Patch{})

	channels, err := service.FetchChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "ch1", channels[0].ChannelID)

	_, ok := registry.Find("stale")
	assert.False(t, ok)
}

func TestCreateAndConnectRegistersAndSubscribes(t *testing.T) {
	api := &fakeAPI{created: channel.Channel{ChannelID: "ch1", Status: channel.StatusInactive}}
	service, registry, transport := newTestService(api)

	created, err := service.CreateAndConnect(context.Background(), channel.CreateChannelRequest{Name: "Support"})
	require.NoError(t, err)
	assert.Equal(t, "ch1", created.ChannelID)
	assert.Equal(t, "Support", created.Name)

	ch, ok := registry.Find("ch1")
	require.True(t, ok)
	assert.Equal(t, channel.StatusConnecting, ch.Status)
	assert.True(t, ch.IsConnecting)

	assert.Contains(t, transport.emitted, feed.ControlSubscribe+":ch1")
	assert.Equal(t, []string{"ch1"}, api.connects)
}

func TestCreateAndConnectRejectsInvalidName(t *testing.T) {
	api := &fakeAPI{created: channel.Channel{ChannelID: "ch1"}}
	service, registry, _ := newTestService(api)

	_, err := service.CreateAndConnect(context.Background(), channel.CreateChannelRequest{Name: ""})
	require.Error(t, err)

	var validationErr pkgError.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, registry.All(), "nothing should be created upstream or locally")
	assert.Empty(t, api.connects)
}

func TestCreateAndConnectRejectsBareUpstreamChannel(t *testing.T) {
	api := &fakeAPI{returnBareChannel: true}
	service, registry, _ := newTestService(api)

	_, err := service.CreateAndConnect(context.Background(), channel.CreateChannelRequest{Name: "Support"})
	require.Error(t, err)

	var upstreamErr pkgError.UpstreamError
	assert.ErrorAs(t, err, &upstreamErr)
	assert.Empty(t, registry.All(), "a channel without an id must not be registered")
	assert.Empty(t, api.connects)
}

func TestCreateAndConnectSurvivesConnectFailure(t *testing.T) {
	api := &fakeAPI{
		created:    channel.Channel{ChannelID: "ch1"},
		connectErr: errors.New("upstream busy"),
	}
	service, registry, _ := newTestService(api)

	created, err := service.CreateAndConnect(context.Background(), channel.CreateChannelRequest{Name: "Support"})
	require.NoError(t, err, "a failed first connect must not undo the creation")
	assert.Equal(t, "ch1", created.ChannelID)

	ch, ok := registry.Find("ch1")
	require.True(t, ok)
	assert.Equal(t, channel.StatusError, ch.Status)
	assert.Equal(t, "Failed to connect channel ch1.", ch.ConnectionError)
	assert.False(t, ch.IsConnecting)
}

func TestConnectFailureLandsOnChannelRecord(t *testing.T) {
	api := &fakeAPI{connectErr: errors.New("upstream busy")}
	service, registry, _ := newTestService(api)
	registry.Upsert("ch1", channel.Patch{})

	err := service.Connect(context.Background(), "ch1", "")
	require.Error(t, err)

	ch, _ := registry.Find("ch1")
	assert.Equal(t, channel.StatusError, ch.Status)
	assert.Equal(t, "Failed to connect channel ch1.", ch.ConnectionError)

	// The next attempt clears the stored error while it is in flight.
	api.connectErr = nil
	require.NoError(t, service.Connect(context.Background(), "ch1", ""))
	ch, _ = registry.Find("ch1")
	assert.Equal(t, channel.StatusConnecting, ch.Status)
	assert.Empty(t, ch.ConnectionError)
}

func TestRequestPairingCodeOpensModal(t *testing.T) {
	api := &fakeAPI{pairingCode: "ABCD-1234"}
	service, _, _ := newTestService(api)

	err := service.RequestPairingCode(context.Background(), "ch1", "+34600000000")
	require.NoError(t, err)

	modal := service.PairingModal()
	assert.True(t, modal.IsOpen)
	assert.Equal(t, "ABCD-1234", modal.Code)
	assert.Equal(t, "ch1", modal.ChannelID)
}

func TestRequestPairingCodeRequiresPhoneNumber(t *testing.T) {
	api := &fakeAPI{pairingCode: "ABCD-1234"}
	service, _, _ := newTestService(api)

	err := service.RequestPairingCode(context.Background(), "ch1", "")
	require.Error(t, err)
	assert.False(t, service.PairingModal().IsOpen)
}

func TestDeleteUnsubscribesAndRefreshes(t *testing.T) {
	api := &fakeAPI{}
	service, registry, transport := newTestService(api)
	registry.Upsert("ch1", channel.Patch{})

	require.NoError(t, service.Delete(context.Background(), "ch1"))

	assert.Contains(t, transport.emitted, feed.ControlUnsubscribe+":ch1")
	assert.Equal(t, 1, api.listCalls, "a mutation is followed by an authoritative refresh")
	assert.Empty(t, registry.All())
}

func TestChannelsSnapshotIsJSONShapedForTheUI(t *testing.T) {
	api := &fakeAPI{channels: []channel.Channel{{
		ChannelID: "ch1",
		Name:      "One",
		Status:    channel.StatusOpen,
		IsActive:  true,
	}}}
	service, _, _ := newTestService(api)

	_, err := service.FetchChannels(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(service.Channels())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"channelId":"ch1","name":"One","status":"open","isActive":true,"isConnecting":false}]`, string(raw))
}
