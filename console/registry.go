package console

import (
	"sync"

	"github.com/notifun/wa-console/domains/channel"
)

// Change codes published to registry observers.
const (
	ChangeChannelUpdated  = "CHANNEL_UPDATED"
	ChangeChannelsReplace = "CHANNELS_REPLACED"
	ChangeQRModal         = "QR_MODAL"
	ChangePairingModal    = "PAIRING_MODAL"
)

// Change describes one registry mutation, for observers (the UI hub).
type Change struct {
	Code    string `json:"code"`
	Payload any    `json:"payload"`
}

// Registry is the in-memory table of known channels plus the two singleton
// handshake modals. It is the only place channel state is mutated; readers
// get copies. Mutation happens from reconciler callbacks and user actions,
// so access is guarded even though mutations never truly overlap.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	channels map[string]*channel.Channel
	qr       channel.Modal
	pairing  channel.Modal

	onChange func(Change)
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*channel.Channel),
	}
}

// OnChange registers a single observer for registry mutations. The observer
// is invoked outside the registry lock.
func (r *Registry) OnChange(fn func(Change)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Registry) notify(changes ...Change) {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn == nil {
		return
	}
	for _, c := range changes {
		fn(c)
	}
}

// Upsert inserts the channel if its ID is unseen, otherwise merges the patch
// into the existing record. Fields absent from the patch are preserved. It
// returns the record before and after the merge; prev.ChannelID is empty when
// the channel was inserted.
func (r *Registry) Upsert(channelID string, patch channel.Patch) (prev, cur channel.Channel) {
	if channelID == "" {
		return channel.Channel{}, channel.Channel{}
	}

	r.mu.Lock()
	ch, ok := r.channels[channelID]
	if !ok {
		ch = &channel.Channel{ChannelID: channelID, Status: channel.StatusInactive}
		r.channels[channelID] = ch
		r.order = append(r.order, channelID)
	} else {
		prev = *ch
	}
	patch.Apply(ch)
	cur = *ch
	r.mu.Unlock()

	r.notify(Change{Code: ChangeChannelUpdated, Payload: cur})
	return prev, cur
}

// PatchKnown merges the patch only when the channel already exists. Events can
// reference channels the registry has never seen (creation races first QR
// emission); those merges are skipped without error. It returns the record
// before and after the merge.
func (r *Registry) PatchKnown(channelID string, patch channel.Patch) (prev, cur channel.Channel, ok bool) {
	r.mu.Lock()
	ch, found := r.channels[channelID]
	if !found {
		r.mu.Unlock()
		return channel.Channel{}, channel.Channel{}, false
	}
	prev = *ch
	patch.Apply(ch)
	cur = *ch
	r.mu.Unlock()

	r.notify(Change{Code: ChangeChannelUpdated, Payload: cur})
	return prev, cur, true
}

// Find returns a copy of the channel, if known. Absence is a normal outcome.
func (r *Registry) Find(channelID string) (channel.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[channelID]
	if !ok {
		return channel.Channel{}, false
	}
	return *ch, true
}

// All returns copies of every known channel in insertion order.
func (r *Registry) All() []channel.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]channel.Channel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.channels[id])
	}
	return out
}

// ChannelIDs returns the IDs of every known channel in insertion order.
func (r *Registry) ChannelIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ReplaceAll swaps in the authoritative channel list from a full refresh.
// Channels missing from the list are dropped. Modal state is independent of
// the channel set and survives the swap.
func (r *Registry) ReplaceAll(channels []channel.Channel) {
	r.mu.Lock()
	r.order = r.order[:0]
	r.channels = make(map[string]*channel.Channel, len(channels))
	for i := range channels {
		ch := channels[i]
		if ch.ChannelID == "" {
			continue
		}
		if _, dup := r.channels[ch.ChannelID]; dup {
			continue
		}
		r.channels[ch.ChannelID] = &ch
		r.order = append(r.order, ch.ChannelID)
	}
	snapshot := make([]channel.Channel, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, *r.channels[id])
	}
	r.mu.Unlock()

	r.notify(Change{Code: ChangeChannelsReplace, Payload: snapshot})
}

// OpenQR opens (or refreshes) the QR modal for the channel. If the modal is
// currently owned by a different channel it is fully reset first, so the prior
// occupant's code is discarded and never shown mixed with the new one. A
// repeated code for the same channel still replaces the stored one; the server
// rotates codes.
func (r *Registry) OpenQR(channelID, code string) {
	r.mu.Lock()
	if r.qr.IsOpen && r.qr.ChannelID != channelID {
		r.qr = channel.Modal{}
	}
	r.qr = channel.Modal{
		IsOpen:           true,
		Code:             code,
		ChannelID:        channelID,
		IsConnecting:     false,
		ConnectionStatus: channel.StatusQRReady,
		ShowSuccess:      false,
	}
	m := r.qr
	r.mu.Unlock()

	r.notify(Change{Code: ChangeQRModal, Payload: m})
}

// CloseQR resets the QR modal slot.
func (r *Registry) CloseQR() {
	r.mu.Lock()
	r.qr = channel.Modal{}
	m := r.qr
	r.mu.Unlock()

	r.notify(Change{Code: ChangeQRModal, Payload: m})
}

// OpenPairing opens (or refreshes) the pairing-code modal for the channel,
// with the same exclusivity rules as OpenQR.
func (r *Registry) OpenPairing(channelID, code string) {
	r.mu.Lock()
	if r.pairing.IsOpen && r.pairing.ChannelID != channelID {
		r.pairing = channel.Modal{}
	}
	r.pairing = channel.Modal{
		IsOpen:           true,
		Code:             code,
		ChannelID:        channelID,
		IsConnecting:     false,
		ConnectionStatus: channel.StatusPairingReady,
		ShowSuccess:      false,
	}
	m := r.pairing
	r.mu.Unlock()

	r.notify(Change{Code: ChangePairingModal, Payload: m})
}

// ClosePairing resets the pairing-code modal slot.
func (r *Registry) ClosePairing() {
	r.mu.Lock()
	r.pairing = channel.Modal{}
	m := r.pairing
	r.mu.Unlock()

	r.notify(Change{Code: ChangePairingModal, Payload: m})
}

// QRModal returns a copy of the QR modal state.
func (r *Registry) QRModal() channel.Modal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.qr
}

// PairingModal returns a copy of the pairing-code modal state.
func (r *Registry) PairingModal() channel.Modal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pairing
}

// UpdateModal applies the patch to the modal of the given kind, but only while
// that modal is open and owned by channelID. It reports whether the patch was
// applied.
func (r *Registry) UpdateModal(kind channel.ModalKind, channelID string, patch channel.ModalPatch) bool {
	r.mu.Lock()
	m := r.modal(kind)
	if !m.IsOpen || m.ChannelID != channelID {
		r.mu.Unlock()
		return false
	}
	if patch.ConnectionStatus != nil {
		m.ConnectionStatus = *patch.ConnectionStatus
	}
	if patch.IsConnecting != nil {
		m.IsConnecting = *patch.IsConnecting
	}
	if patch.ShowSuccess != nil {
		m.ShowSuccess = *patch.ShowSuccess
	}
	snapshot := *m
	r.mu.Unlock()

	r.notify(Change{Code: modalChangeCode(kind), Payload: snapshot})
	return true
}

// CloseModalIfOwner closes the modal of the given kind only if it is still
// open for channelID. Stale auto-dismiss firings whose owner has changed in
// the meantime fall through here as a no-op.
func (r *Registry) CloseModalIfOwner(kind channel.ModalKind, channelID string) bool {
	r.mu.Lock()
	m := r.modal(kind)
	if !m.IsOpen || m.ChannelID != channelID {
		r.mu.Unlock()
		return false
	}
	*m = channel.Modal{}
	snapshot := *m
	r.mu.Unlock()

	r.notify(Change{Code: modalChangeCode(kind), Payload: snapshot})
	return true
}

func (r *Registry) modal(kind channel.ModalKind) *channel.Modal {
	if kind == channel.ModalPairing {
		return &r.pairing
	}
	return &r.qr
}

func modalChangeCode(kind channel.ModalKind) string {
	if kind == channel.ModalPairing {
		return ChangePairingModal
	}
	return ChangeQRModal
}
