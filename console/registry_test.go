package console_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifun/wa-console/console"
	"github.com/notifun/wa-console/domains/channel"
)

func strPtr(s string) *string                    { return &s }
func boolPtr(b bool) *bool                       { return &b }
func statusPtr(s channel.Status) *channel.Status { return &s }

func TestRegistryUpsertMergesPartialPatch(t *testing.T) {
	registry := console.NewRegistry()

	prev, cur := registry.Upsert("ch1", channel.Patch{Name: strPtr("Support")})
	assert.Empty(t, prev.ChannelID, "first upsert should report an insert")
	assert.Equal(t, channel.StatusInactive, cur.Status)
	assert.Equal(t, "Support", cur.Name)

	// A patch touching only status must leave the name intact.
	_, cur = registry.Upsert("ch1", channel.Patch{
		Status:       statusPtr(channel.StatusConnecting),
		IsConnecting: boolPtr(true),
	})
	assert.Equal(t, "Support", cur.Name)
	assert.Equal(t, channel.StatusConnecting, cur.Status)
	assert.True(t, cur.IsConnecting)

	got, ok := registry.Find("ch1")
	require.True(t, ok)
	assert.Equal(t, cur, got)
}

func TestRegistryPatchKnownSkipsUnknownChannels(t *testing.T) {
	registry := console.NewRegistry()

	_, _, ok := registry.PatchKnown("ghost", channel.Patch{Status: statusPtr(channel.StatusOpen)})
	assert.False(t, ok)
	assert.Empty(t, registry.All())
}

func TestRegistryClearErrorWithEmptyString(t *testing.T) {
	registry := console.NewRegistry()
	registry.Upsert("ch1", channel.Patch{ConnectionError: strPtr("Connection failed: timeout")})

	_, cur, ok := registry.PatchKnown("ch1", channel.Patch{ConnectionError: strPtr("")})
	require.True(t, ok)
	assert.Empty(t, cur.ConnectionError)
}

func TestRegistryReplaceAllKeepsModals(t *testing.T) {
	registry := console.NewRegistry()
	registry.Upsert("stale", channel.Patch{})
	registry.OpenQR("ch2", "qr-payload")

	registry.ReplaceAll([]channel.Channel{
		{ChannelID: "ch1", Name: "One"},
		{ChannelID: "ch2", Name: "Two"},
	})

	ids := registry.ChannelIDs()
	assert.Equal(t, []string{"ch1", "ch2"}, ids)
	_, ok := registry.Find("stale")
	assert.False(t, ok, "channels missing from the refresh should be dropped")

	modal := registry.QRModal()
	assert.True(t, modal.IsOpen, "a full refresh must not close an open modal")
	assert.Equal(t, "ch2", modal.ChannelID)
}

func TestRegistryModalOwnerExclusivity(t *testing.T) {
	registry := console.NewRegistry()

	registry.OpenQR("chA", "code-a")
	registry.OpenQR("chB", "code-b")

	modal := registry.QRModal()
	assert.Equal(t, "chB", modal.ChannelID)
	assert.Equal(t, "code-b", modal.Code)
	assert.Equal(t, channel.StatusQRReady, modal.ConnectionStatus)

	// The prior owner can no longer touch the slot.
	applied := registry.UpdateModal(channel.ModalQR, "chA", channel.ModalPatch{ShowSuccess: boolPtr(true)})
	assert.False(t, applied)
	assert.False(t, registry.QRModal().ShowSuccess)
}

func TestRegistryQRAndPairingModalsAreIndependent(t *testing.T) {
	registry := console.NewRegistry()

	registry.OpenQR("chA", "qr-code")
	registry.OpenPairing("chB", "ABCD-1234")

	assert.Equal(t, "chA", registry.QRModal().ChannelID)
	assert.Equal(t, "chB", registry.PairingModal().ChannelID)

	registry.ClosePairing()
	assert.True(t, registry.QRModal().IsOpen)
	assert.False(t, registry.PairingModal().IsOpen)
}

func TestRegistryCloseModalIfOwner(t *testing.T) {
	registry := console.NewRegistry()
	registry.OpenQR("chA", "code-a")

	// Stale close, the slot moved on to another channel.
	registry.OpenQR("chB", "code-b")
	assert.False(t, registry.CloseModalIfOwner(channel.ModalQR, "chA"))
	assert.True(t, registry.QRModal().IsOpen)

	assert.True(t, registry.CloseModalIfOwner(channel.ModalQR, "chB"))
	assert.False(t, registry.QRModal().IsOpen)
}

func TestRegistryNotifiesObserver(t *testing.T) {
	registry := console.NewRegistry()

	var changes []console.Change
	registry.OnChange(func(c console.Change) {
		changes = append(changes, c)
	})

	registry.Upsert("ch1", channel.Patch{Name: strPtr("One")})
	registry.OpenQR("ch1", "code")
	registry.CloseQR()

	require.Len(t, changes, 3)
	assert.Equal(t, console.ChangeChannelUpdated, changes[0].Code)
	assert.Equal(t, console.ChangeQRModal, changes[1].Code)
	assert.Equal(t, console.ChangeQRModal, changes[2].Code)
}
