//go:build !tinygo && !baremetal

// Package sim implements espnow.Radio over UDP loopback so both firmware
// images can run and be exercised on a development host. Each simulated
// device binds a port derived from its hardware address; the receiving
// side answers data datagrams with a link-layer ack, which the sending
// side resolves into the asynchronous delivery callback the same way the
// real radio stack does.
package sim

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ayush8-agh/sih/internal/espnow"
)

// Datagram layout (little-endian):
//
//	kind(1) | channel(1) | dst mac(6) | src mac(6) | seq(4) | payload...
//
// Acks carry no payload. A data datagram on the wrong channel is dropped
// silently, so a channel mismatch surfaces as delivery failures exactly
// like on air.
const (
	kindData = 0x01
	kindAck  = 0x02

	headerLen      = 1 + 1 + 6 + 6 + 4
	maxDatagramLen = headerLen + 250 // matches the link layer's payload cap
)

// Config tunes the simulated link. Zero values fall back to defaults.
type Config struct {
	BasePort   int           // device port = BasePort + last MAC octet
	AckTimeout time.Duration // how long a sender waits for the link-layer ack
}

const (
	defaultBasePort   = 17400
	defaultAckTimeout = 250 * time.Millisecond
)

// Radio is a simulated connectionless radio bound to one hardware address.
type Radio struct {
	mac    espnow.MAC
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	stationMode bool
	channel     uint8
	peers       map[espnow.MAC]espnow.Peer
	sendCb      espnow.SendCallback
	recvCb      espnow.RecvCallback
	conn        *net.UDPConn
	seq         uint32
	pending     map[uint32]chan struct{}
}

func New(mac espnow.MAC, cfg Config, logger *slog.Logger) *Radio {
	if cfg.BasePort == 0 {
		cfg.BasePort = defaultBasePort
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Radio{
		mac:    mac,
		cfg:    cfg,
		logger: logger,
		peers:  make(map[espnow.MAC]espnow.Peer),
	}
}

func (r *Radio) HardwareAddr() espnow.MAC { return r.mac }

func (r *Radio) SetStationMode() error {
	r.mu.Lock()
	r.stationMode = true
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetChannel(ch uint8) error {
	if ch < 1 || ch > 13 {
		return espnow.ErrInvalidChannel
	}
	r.mu.Lock()
	r.channel = ch
	r.mu.Unlock()
	return nil
}

// Init binds the device socket and starts the receive loop. Idempotent.
func (r *Radio) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	if !r.stationMode {
		return fmt.Errorf("station mode required before init")
	}

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: r.port(r.mac)}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	r.conn = conn
	r.initialized = true
	r.pending = make(map[uint32]chan struct{})
	go r.readLoop(conn)

	r.logger.Debug("sim radio up", "mac", r.mac.String(), "port", addr.Port)
	return nil
}

// Deinit tears the protocol down: the socket closes, registered peers and
// callbacks are dropped, pending outcomes resolve as failures via timeout.
func (r *Radio) Deinit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil
	}
	r.initialized = false
	r.sendCb = nil
	r.recvCb = nil
	r.peers = make(map[espnow.MAC]espnow.Peer)
	err := r.conn.Close()
	r.conn = nil
	r.logger.Debug("sim radio down", "mac", r.mac.String())
	return err
}

func (r *Radio) OnSend(cb espnow.SendCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return espnow.ErrNotInitialized
	}
	r.sendCb = cb
	return nil
}

func (r *Radio) OnRecv(cb espnow.RecvCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return espnow.ErrNotInitialized
	}
	r.recvCb = cb
	return nil
}

func (r *Radio) HasPeer(addr espnow.MAC) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[addr]
	return ok
}

func (r *Radio) AddPeer(p espnow.Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return espnow.ErrNotInitialized
	}
	if _, ok := r.peers[p.Addr]; ok {
		return fmt.Errorf("peer %s already registered", p.Addr)
	}
	r.peers[p.Addr] = p
	return nil
}

func (r *Radio) DeletePeer(addr espnow.MAC) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[addr]; !ok {
		return espnow.ErrUnknownPeer
	}
	delete(r.peers, addr)
	return nil
}

// Send enqueues one datagram to a registered peer and spawns the ack wait
// that resolves the delivery callback. Only a rejected enqueue returns an
// error; the outcome itself is always asynchronous.
func (r *Radio) Send(addr espnow.MAC, payload []byte) error {
	if len(payload) > maxDatagramLen-headerLen {
		return fmt.Errorf("payload %d bytes exceeds link maximum", len(payload))
	}

	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return espnow.ErrNotInitialized
	}
	if _, ok := r.peers[addr]; !ok {
		r.mu.Unlock()
		return espnow.ErrUnknownPeer
	}
	r.seq++
	seq := r.seq
	ack := make(chan struct{}, 1)
	r.pending[seq] = ack
	conn := r.conn
	channel := r.channel
	r.mu.Unlock()

	dgram := r.encode(kindData, channel, addr, seq, payload)
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: r.port(addr)}
	if _, err := conn.WriteToUDP(dgram, dst); err != nil {
		r.mu.Lock()
		delete(r.pending, seq)
		r.mu.Unlock()
		return fmt.Errorf("enqueue to %s: %w", addr, err)
	}

	go r.awaitAck(addr, seq, ack)
	return nil
}

func (r *Radio) awaitAck(peer espnow.MAC, seq uint32, ack chan struct{}) {
	status := espnow.SendFail
	select {
	case <-ack:
		status = espnow.SendSuccess
	case <-time.After(r.cfg.AckTimeout):
	}

	r.mu.Lock()
	delete(r.pending, seq)
	cb := r.sendCb
	r.mu.Unlock()

	if cb != nil {
		cb(peer, status)
	}
}

func (r *Radio) readLoop(conn *net.UDPConn) {
	buf := make([]byte, maxDatagramLen)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return // socket closed by Deinit
		}
		if n < headerLen {
			continue
		}
		kind := buf[0]
		channel := buf[1]
		var dst, src espnow.MAC
		copy(dst[:], buf[2:8])
		copy(src[:], buf[8:14])
		seq := binary.LittleEndian.Uint32(buf[14:18])

		if dst != r.mac {
			continue
		}

		switch kind {
		case kindData:
			r.mu.Lock()
			ours := channel == r.channel
			cb := r.recvCb
			cur := r.conn
			r.mu.Unlock()
			if !ours || cur == nil {
				continue // wrong channel: no ack, sender sees a failure
			}

			back := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: r.port(src)}
			if _, err := cur.WriteToUDP(r.encode(kindAck, channel, src, seq, nil), back); err != nil {
				r.logger.Debug("ack write failed", "to", src.String(), "error", err)
			}

			if cb != nil {
				payload := make([]byte, n-headerLen)
				copy(payload, buf[headerLen:n])
				cb(src, payload)
			}
		case kindAck:
			r.mu.Lock()
			ack, ok := r.pending[seq]
			r.mu.Unlock()
			if ok {
				select {
				case ack <- struct{}{}:
				default:
				}
			}
		}
	}
}

// encode builds a datagram from this device to dst.
func (r *Radio) encode(kind byte, channel uint8, dst espnow.MAC, seq uint32, payload []byte) []byte {
	dgram := make([]byte, headerLen+len(payload))
	dgram[0] = kind
	dgram[1] = channel
	copy(dgram[2:8], dst[:])
	copy(dgram[8:14], r.mac[:])
	binary.LittleEndian.PutUint32(dgram[14:18], seq)
	copy(dgram[headerLen:], payload)
	return dgram
}

// port maps a hardware address onto a loopback UDP port. The last octet
// distinguishes simulated devices, so addresses used together in one
// simulation must differ in their final byte.
func (r *Radio) port(mac espnow.MAC) int {
	return r.cfg.BasePort + int(mac[5])
}
