// Package espnow manages the connectionless link-layer session between a
// sensor node and its fixed receiving peer: protocol bring-up, peer
// registration, telemetry transmission, delivery tracking and
// failure-triggered recovery.
package espnow

// SendStatus is the binary delivery outcome the radio stack reports for a
// transmission attempt.
type SendStatus int

const (
	SendSuccess SendStatus = iota
	SendFail
)

func (s SendStatus) String() string {
	if s == SendSuccess {
		return "success"
	}
	return "fail"
}

// SendCallback is invoked asynchronously by the radio stack, outside the
// call stack that issued the send, once per transmission attempt.
type SendCallback func(peer MAC, status SendStatus)

// RecvCallback is invoked asynchronously for every datagram addressed to
// this device.
type RecvCallback func(src MAC, payload []byte)

// Peer describes a statically registered remote device.
type Peer struct {
	Addr    MAC
	Channel uint8
	Encrypt bool // always false in this system
}

// Radio is the primitive surface of the connectionless radio protocol. It
// is intentionally close to the underlying stack's C API so the session
// manager above it carries all policy.
type Radio interface {
	// HardwareAddr returns the device's burned-in station address.
	HardwareAddr() MAC

	// SetStationMode puts the radio into station mode and drops any access
	// point association. Station mode is purely a transport here; no IP.
	SetStationMode() error

	// SetChannel pins the RF channel. Sender and peer must agree out of band.
	SetChannel(ch uint8) error

	// Init brings the protocol up. Deinit tears it down and drops all
	// registered peers and callbacks.
	Init() error
	Deinit() error

	// OnSend registers the delivery-outcome callback. Requires Init.
	OnSend(cb SendCallback) error

	// OnRecv registers the receive callback. Requires Init.
	OnRecv(cb RecvCallback) error

	HasPeer(addr MAC) bool
	AddPeer(p Peer) error
	DeletePeer(addr MAC) error

	// Send enqueues a payload for the given registered peer. A nil return
	// means queued only; the outcome arrives via the OnSend callback.
	Send(addr MAC, payload []byte) error
}
