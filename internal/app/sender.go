//go:build !tinygo && !baremetal

// Package app wires the configured components into the sender and receiver
// run loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayush8-agh/sih/internal/config"
	"github.com/ayush8-agh/sih/internal/dispatch"
	"github.com/ayush8-agh/sih/internal/espnow"
	"github.com/ayush8-agh/sih/internal/espnow/sim"
	"github.com/ayush8-agh/sih/internal/sensor"
)

// RunSender brings the link session up and drives the periodic dispatcher
// until ctx is done. An unrecoverable link does not abort the run: the
// dispatcher keeps polling and each send reports a safe no-op failure.
func RunSender(ctx context.Context, cfg config.Config) error {
	nodeMAC, err := espnow.ParseMAC(cfg.NodeMAC)
	if err != nil {
		return fmt.Errorf("node mac: %w", err)
	}
	peerMAC, err := espnow.ParseMAC(cfg.PeerMAC)
	if err != nil {
		return fmt.Errorf("peer mac: %w", err)
	}

	radio := sim.New(nodeMAC, sim.Config{BasePort: cfg.SimBasePort}, slog.Default())

	session, err := espnow.NewSession(radio, espnow.Config{
		PeerAddr:         peerMAC,
		Channel:          cfg.Channel,
		MaxInitRetries:   config.MaxInitRetries,
		InitRetryBackoff: config.InitRetryBackoff,
		RestartThreshold: config.RestartThreshold,
		RestartSettle:    config.RestartSettle,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("link session: %w", err)
	}

	if err := session.Establish(); err != nil {
		if !errors.Is(err, espnow.ErrUnrecoverable) {
			return err
		}
		slog.Error("continuing without a usable link; check peer address and channel")
	}

	acquirer := sensor.NewAcquirer(
		sensor.SimClimate{},
		sensor.SimGas{},
		sensor.SimVitals{},
		radio.HardwareAddr().String(),
		slog.Default(),
	)

	dispatcher := dispatch.New(dispatch.Config{
		IntervalMS: cfg.SendIntervalMS,
		IdleDelay:  config.IdlePollDelay,
	}, acquirer, session, slog.Default())

	slog.Info("sender running",
		"node", nodeMAC.String(),
		"peer", peerMAC.String(),
		"channel", cfg.Channel,
		"interval_ms", cfg.SendIntervalMS,
	)
	return dispatcher.Run(ctx)
}
