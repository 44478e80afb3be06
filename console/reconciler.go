package console

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notifun/wa-console/domains/channel"
	"github.com/notifun/wa-console/domains/feed"
)

// Reconciler maps each inbound feed event to a deterministic registry
// mutation. Events arrive in delivery order with no sequence numbers: a later
// event overwrites the fields it carries and leaves the rest alone, so
// duplicated or delayed events converge on the same state.
type Reconciler struct {
	registry     *Registry
	transport    feed.ITransport
	dismissDelay time.Duration

	// OnOpenRefresh schedules an authoritative re-fetch of the channel list.
	// Fired once per not-open -> open transition, not once per event.
	OnOpenRefresh func(channelID string)

	// OnEvent receives every inbound event for journaling.
	OnEvent func(event, channelID string, payload json.RawMessage)
}

func NewReconciler(registry *Registry, transport feed.ITransport, dismissDelay time.Duration) *Reconciler {
	return &Reconciler{
		registry:     registry,
		transport:    transport,
		dismissDelay: dismissDelay,
	}
}

// Listen registers the event handlers on the transport.
func (rc *Reconciler) Listen() {
	rc.transport.On(feed.EventConnect, func(json.RawMessage) {
		logrus.Info("[RECONCILER] Event feed connected")
	})
	rc.transport.On(feed.EventDisconnect, func(payload json.RawMessage) {
		var p feed.DisconnectPayload
		_ = json.Unmarshal(payload, &p)
		logrus.Warnf("[RECONCILER] Event feed disconnected: %s", p.Reason)
	})
	rc.transport.On(feed.EventQRCode, rc.handleQRCode)
	rc.transport.On(feed.EventPairingCode, rc.handlePairingCode)
	rc.transport.On(feed.EventChannelStatus, rc.handleChannelStatus)
	rc.transport.On(feed.EventConnectionUpdate, rc.handleConnectionUpdate)
	rc.transport.On(feed.EventIncomingMessage, rc.journalOnly(feed.EventIncomingMessage))
	rc.transport.On(feed.EventMessageStatus, rc.journalOnly(feed.EventMessageStatus))
}

func (rc *Reconciler) journal(event string, payload json.RawMessage) {
	if rc.OnEvent == nil {
		return
	}
	var ref struct {
		ChannelID string `json:"channelId"`
	}
	_ = json.Unmarshal(payload, &ref)
	rc.OnEvent(event, ref.ChannelID, payload)
}

// journalOnly records events that carry no lifecycle meaning for the registry.
func (rc *Reconciler) journalOnly(event string) feed.Handler {
	return func(payload json.RawMessage) {
		logrus.Debugf("[RECONCILER] %s: %s", event, payload)
		rc.journal(event, payload)
	}
}

func (rc *Reconciler) handleQRCode(payload json.RawMessage) {
	rc.journal(feed.EventQRCode, payload)

	var p feed.QRCodePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logrus.Warnf("[RECONCILER] Malformed qr_code event: %v", err)
		return
	}
	if p.ChannelID == "" {
		return
	}

	// Latest wins, even for a repeat of the same channel: the server rotates
	// codes and a refreshed one supersedes the old.
	rc.registry.OpenQR(p.ChannelID, p.QRCode)

	rc.registry.PatchKnown(p.ChannelID, channel.Patch{
		Status:          statusPtr(channel.StatusQRReady),
		IsConnecting:    boolPtr(false),
		ConnectionError: strPtr(""),
	})
	logrus.Infof("[RECONCILER] QR code received for channel %s", p.ChannelID)
}

func (rc *Reconciler) handlePairingCode(payload json.RawMessage) {
	rc.journal(feed.EventPairingCode, payload)

	var p feed.PairingCodePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logrus.Warnf("[RECONCILER] Malformed pairing_code event: %v", err)
		return
	}
	if p.ChannelID == "" {
		return
	}

	rc.registry.OpenPairing(p.ChannelID, p.Code)

	rc.registry.PatchKnown(p.ChannelID, channel.Patch{
		Status:          statusPtr(channel.StatusPairingReady),
		IsConnecting:    boolPtr(false),
		ConnectionError: strPtr(""),
	})
	logrus.Infof("[RECONCILER] Pairing code received for channel %s", p.ChannelID)
}

func (rc *Reconciler) handleChannelStatus(payload json.RawMessage) {
	rc.journal(feed.EventChannelStatus, payload)

	var p feed.ChannelStatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logrus.Warnf("[RECONCILER] Malformed channel_status event: %v", err)
		return
	}
	if p.ChannelID == "" || p.Status == "" {
		return
	}

	status := channel.Status(p.Status)
	patch := channel.Patch{Status: &status}
	switch {
	case status.IsOpen():
		patch.IsActive = boolPtr(true)
		patch.IsConnecting = boolPtr(false)
		patch.ConnectionError = strPtr("")
	case status.IsClosed(), status == channel.StatusError:
		patch.IsActive = boolPtr(false)
		patch.IsConnecting = boolPtr(false)
	}
	rc.registry.PatchKnown(p.ChannelID, patch)
}

func (rc *Reconciler) handleConnectionUpdate(payload json.RawMessage) {
	rc.journal(feed.EventConnectionUpdate, payload)

	var p feed.ConnectionUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logrus.Warnf("[RECONCILER] Malformed connection_update event: %v", err)
		return
	}
	if p.ChannelID == "" {
		return
	}

	status := channel.Status(p.Status)
	rc.updateModal(channel.ModalQR, p.ChannelID, status)
	rc.updateModal(channel.ModalPairing, p.ChannelID, status)

	patch := channel.Patch{}
	if p.Status != "" {
		patch.Status = &status
	}
	if p.Timestamp != "" {
		patch.LastStatusUpdate = &p.Timestamp
	}
	switch {
	case status == channel.StatusOpen:
		patch.IsActive = boolPtr(true)
		patch.IsConnecting = boolPtr(false)
		patch.ConnectionError = strPtr("")
	case status == channel.StatusClose || status == channel.StatusError:
		patch.IsActive = boolPtr(false)
		patch.IsConnecting = boolPtr(false)
		if p.LastDisconnect != nil {
			patch.ConnectionError = strPtr(fmt.Sprintf("Connection failed: %s", p.LastDisconnect.Message))
		}
	case status == channel.StatusConnecting:
		patch.IsConnecting = boolPtr(true)
		patch.ConnectionError = strPtr("")
	}

	prev, _, known := rc.registry.PatchKnown(p.ChannelID, patch)
	if known && status == channel.StatusOpen && !prev.IsActive && rc.OnOpenRefresh != nil {
		rc.OnOpenRefresh(p.ChannelID)
	}
}

// updateModal mirrors a connection update onto the modal of the given kind,
// if that modal is currently owned by the channel. A successful open shows the
// success state and arms the auto-dismiss timer.
func (rc *Reconciler) updateModal(kind channel.ModalKind, channelID string, status channel.Status) {
	patch := channel.ModalPatch{ConnectionStatus: &status}
	switch {
	case status == channel.StatusOpen:
		patch.IsConnecting = boolPtr(false)
		patch.ShowSuccess = boolPtr(true)
	case status == channel.StatusClose || status == channel.StatusError:
		patch.IsConnecting = boolPtr(false)
		patch.ShowSuccess = boolPtr(false)
	case status == channel.StatusConnecting:
		patch.IsConnecting = boolPtr(true)
		patch.ShowSuccess = boolPtr(false)
	}

	if !rc.registry.UpdateModal(kind, channelID, patch) {
		return
	}
	if status == channel.StatusOpen {
		rc.scheduleDismiss(kind, channelID)
	}
}

// scheduleDismiss arms the one-shot auto-dismiss for a modal after a
// successful connection. The firing re-checks ownership: if the modal has
// moved to another channel in the meantime, it no-ops instead of closing
// someone else's artifact.
func (rc *Reconciler) scheduleDismiss(kind channel.ModalKind, channelID string) {
	time.AfterFunc(rc.dismissDelay, func() {
		if rc.registry.CloseModalIfOwner(kind, channelID) {
			logrus.Debugf("[RECONCILER] Auto-dismissed %s modal for channel %s", kind, channelID)
		}
	})
}

func statusPtr(s channel.Status) *channel.Status { return &s }
func boolPtr(b bool) *bool                       { return &b }
func strPtr(s string) *string                    { return &s }
