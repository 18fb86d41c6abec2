// Package dispatch paces telemetry transmissions on a fixed interval
// against the wrapping millisecond uptime clock.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ayush8-agh/sih/internal/clock"
	"github.com/ayush8-agh/sih/internal/espnow"
	"github.com/ayush8-agh/sih/internal/telemetry"
)

// Acquirer produces a fully populated telemetry record on demand.
type Acquirer interface {
	Acquire() *telemetry.Record
}

// Sender hands a record to the link layer for transmission.
type Sender interface {
	Send(rec *telemetry.Record) error
}

// Config carries the dispatcher timing. Zero values fall back to the
// firmware defaults.
type Config struct {
	IntervalMS uint32        // minimum spacing between dispatches
	IdleDelay  time.Duration // pause between polls, yields to background work
}

const (
	defaultIntervalMS = 12000
	defaultIdleDelay  = 50 * time.Millisecond
)

// Dispatcher fires an acquire-and-send cycle once per interval, independent
// of link health. It is driven from a single goroutine; the clock is
// injectable for tests.
type Dispatcher struct {
	cfg      Config
	acquirer Acquirer
	sender   Sender
	logger   *slog.Logger
	now      func() uint32 // wrapping milliseconds

	lastDispatch uint32
}

func New(cfg Config, acquirer Acquirer, sender Sender, logger *slog.Logger) *Dispatcher {
	if cfg.IntervalMS == 0 {
		cfg.IntervalMS = defaultIntervalMS
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = defaultIdleDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		acquirer: acquirer,
		sender:   sender,
		logger:   logger,
		now:      clock.Millis,
	}
}

// Poll evaluates the clock once and dispatches when a full interval has
// elapsed since the previous dispatch. Returns true when a record was
// dispatched.
//
// When the tick counter has wrapped (now numerically below the stored
// timestamp) the slot is re-anchored at the current time and the dispatcher
// waits out a full interval instead of firing immediately.
func (d *Dispatcher) Poll() bool {
	now := d.now()
	if now < d.lastDispatch {
		d.logger.Warn("uptime clock wrapped, rescheduling next send", "now_ms", now)
		d.lastDispatch = now
		return false
	}
	if now-d.lastDispatch < d.cfg.IntervalMS {
		return false
	}

	// Claim the slot before the acquire+send cycle so a slow cycle cannot
	// cause catch-up sends.
	d.lastDispatch = now

	rec := d.acquirer.Acquire()
	if err := d.sender.Send(rec); err != nil {
		if errors.Is(err, espnow.ErrLinkDown) {
			d.logger.Debug("dispatch skipped, link down")
		} else {
			d.logger.Error("dispatch send failed", "error", err)
		}
	}
	return true
}

// Run polls until ctx is done, idling between polls to avoid busy-spinning.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher running",
		"interval_ms", d.cfg.IntervalMS,
		"idle_delay", d.cfg.IdleDelay,
	)
	for {
		d.Poll()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.cfg.IdleDelay):
		}
	}
}
