package espnow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayush8-agh/sih/internal/telemetry"
)

// State is the link session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDegraded
	StateRestarting
	StateUnrecoverable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateRestarting:
		return "restarting"
	case StateUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Config carries the session's compile-time tuning. Zero values fall back
// to the firmware defaults.
type Config struct {
	PeerAddr MAC
	Channel  uint8 // 1-13, must match the peer

	MaxInitRetries   int           // bring-up attempts at boot
	InitRetryBackoff time.Duration // delay between bring-up attempts
	RestartThreshold uint32        // consecutive-failure multiple that triggers a restart
	RestartSettle    time.Duration // delay between deinit and re-init
}

const (
	defaultMaxInitRetries   = 3
	defaultInitRetryBackoff = 2 * time.Second
	defaultRestartThreshold = 5
	defaultRestartSettle    = time.Second
)

// Session owns the radio protocol lifecycle for exactly one peer. The
// delivery callback runs on the radio stack's context while the dispatcher
// calls Send from the main loop, so all shared state (health flag, counters,
// lifecycle state) lives behind the mutex.
type Session struct {
	radio  Radio
	cfg    Config
	logger *slog.Logger
	sleep  func(time.Duration) // settle/backoff delays, injectable in tests

	mu         sync.Mutex
	state      State
	healthy    bool
	successes  uint32
	failures   uint32
	restarting bool
}

// NewSession validates cfg, applies defaults and returns an unestablished
// session. Call Establish before the first Send.
func NewSession(radio Radio, cfg Config, logger *slog.Logger) (*Session, error) {
	if cfg.Channel < 1 || cfg.Channel > 13 {
		return nil, ErrInvalidChannel
	}
	if cfg.PeerAddr.IsZero() {
		return nil, fmt.Errorf("peer address must be set")
	}
	if cfg.MaxInitRetries <= 0 {
		cfg.MaxInitRetries = defaultMaxInitRetries
	}
	if cfg.InitRetryBackoff <= 0 {
		cfg.InitRetryBackoff = defaultInitRetryBackoff
	}
	if cfg.RestartThreshold == 0 {
		cfg.RestartThreshold = defaultRestartThreshold
	}
	if cfg.RestartSettle <= 0 {
		cfg.RestartSettle = defaultRestartSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		radio:  radio,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
		state:  StateUninitialized,
	}, nil
}

// Establish runs the bring-up protocol, retrying up to MaxInitRetries with
// a fixed backoff. Exhausting every attempt leaves the session in the
// terminal unrecoverable state and returns ErrUnrecoverable; the caller is
// expected to keep the device running regardless.
func (s *Session) Establish() error {
	for attempt := 1; attempt <= s.cfg.MaxInitRetries; attempt++ {
		s.logger.Info("link bring-up",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxInitRetries,
			"channel", s.cfg.Channel,
		)
		err := s.bringUp()
		if err == nil {
			return nil
		}
		s.logger.Error("bring-up attempt failed", "attempt", attempt, "error", err)
		if attempt < s.cfg.MaxInitRetries {
			s.sleep(s.cfg.InitRetryBackoff)
		}
	}

	s.mu.Lock()
	s.state = StateUnrecoverable
	s.healthy = false
	s.mu.Unlock()
	s.logger.Error("link unrecoverable, device keeps running but transmissions will fail",
		"attempts", s.cfg.MaxInitRetries,
	)
	return ErrUnrecoverable
}

// bringUp performs one pass of the bring-up protocol: station mode, channel,
// protocol init, delivery callback, peer registration. Registration is
// idempotent: a peer left over from a previous session is removed first.
func (s *Session) bringUp() error {
	s.setState(StateInitializing)

	if err := s.radio.SetStationMode(); err != nil {
		return s.bringUpFailed(fmt.Errorf("station mode: %w", err))
	}
	if err := s.radio.SetChannel(s.cfg.Channel); err != nil {
		return s.bringUpFailed(fmt.Errorf("set channel %d: %w", s.cfg.Channel, err))
	}
	if err := s.radio.Init(); err != nil {
		return s.bringUpFailed(fmt.Errorf("protocol init: %w", err))
	}
	if err := s.radio.OnSend(s.onSendResult); err != nil {
		return s.bringUpFailed(fmt.Errorf("register send callback: %w", err))
	}

	if s.radio.HasPeer(s.cfg.PeerAddr) {
		s.logger.Warn("peer already registered, removing before re-add", "peer", s.cfg.PeerAddr.String())
		if err := s.radio.DeletePeer(s.cfg.PeerAddr); err != nil {
			return s.bringUpFailed(fmt.Errorf("delete stale peer: %w", err))
		}
	}
	if err := s.radio.AddPeer(Peer{Addr: s.cfg.PeerAddr, Channel: s.cfg.Channel, Encrypt: false}); err != nil {
		return s.bringUpFailed(fmt.Errorf("add peer: %w", err))
	}

	s.mu.Lock()
	s.healthy = true
	s.state = StateReady
	s.mu.Unlock()
	s.logger.Info("link ready", "peer", s.cfg.PeerAddr.String(), "channel", s.cfg.Channel)
	return nil
}

func (s *Session) bringUpFailed(err error) error {
	s.mu.Lock()
	s.healthy = false
	if s.state != StateUnrecoverable {
		s.state = StateDegraded
	}
	s.mu.Unlock()
	return err
}

// Send marshals the record and hands it to the radio addressed to the fixed
// peer. A nil return means enqueued only; the delivery outcome arrives via
// the asynchronous callback. While the link is unhealthy the call is a safe
// no-op reported as ErrLinkDown, leaving both counters untouched.
func (s *Session) Send(rec *telemetry.Record) error {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()
	if !healthy {
		s.logger.Warn("link down, skipping transmission")
		return ErrLinkDown
	}

	payload, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.radio.Send(s.cfg.PeerAddr, payload); err != nil {
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		s.logger.Error("transmit enqueue failed", "error", err, "failures", failures)
		return fmt.Errorf("enqueue: %w", err)
	}

	s.logger.Debug("record queued for transmission",
		"peer", s.cfg.PeerAddr.String(),
		"bytes", len(payload),
		"timestamp_ms", rec.Timestamp,
	)
	return nil
}

// onSendResult is the delivery callback registered with the radio stack.
// Success and failure both overwrite the health flag outright. Every
// RestartThreshold-th failure triggers exactly one restart; the restarting
// flag keeps overlapping callbacks from stacking restarts.
func (s *Session) onSendResult(peer MAC, status SendStatus) {
	if status == SendSuccess {
		s.mu.Lock()
		s.healthy = true
		s.successes++
		if s.state == StateDegraded {
			s.state = StateReady
		}
		successes, failures := s.successes, s.failures
		s.mu.Unlock()
		s.logger.Info("delivery success",
			"peer", peer.String(),
			"successes", successes,
			"failures", failures,
		)
		return
	}

	s.mu.Lock()
	s.healthy = false
	s.failures++
	if s.state == StateReady {
		s.state = StateDegraded
	}
	triggerRestart := s.state != StateUnrecoverable &&
		!s.restarting &&
		s.failures%s.cfg.RestartThreshold == 0
	if triggerRestart {
		s.restarting = true
		s.state = StateRestarting
	}
	successes, failures := s.successes, s.failures
	s.mu.Unlock()

	s.logger.Warn("delivery failed",
		"peer", peer.String(),
		"successes", successes,
		"failures", failures,
	)

	if triggerRestart {
		s.restart()
	}
}

// restart tears the protocol down, waits for the hardware to settle and
// re-runs bring-up once. A failed restart leaves the session degraded; the
// next threshold multiple triggers another attempt.
func (s *Session) restart() {
	defer func() {
		s.mu.Lock()
		s.restarting = false
		s.mu.Unlock()
	}()

	s.logger.Warn("repeated delivery failures, restarting link")
	if err := s.radio.Deinit(); err != nil {
		s.logger.Error("protocol deinit failed", "error", err)
	}
	s.sleep(s.cfg.RestartSettle)
	if err := s.bringUp(); err != nil {
		s.logger.Error("restart bring-up failed", "error", err)
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Healthy reports whether the last outcome-bearing transmission succeeded.
func (s *Session) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Counters returns the cumulative success and failure counts.
func (s *Session) Counters() (successes, failures uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successes, s.failures
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
