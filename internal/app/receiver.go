//go:build !tinygo && !baremetal

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayush8-agh/sih/internal/config"
	"github.com/ayush8-agh/sih/internal/espnow"
	"github.com/ayush8-agh/sih/internal/espnow/sim"
	"github.com/ayush8-agh/sih/internal/mqtt"
	"github.com/ayush8-agh/sih/internal/store"
	"github.com/ayush8-agh/sih/internal/telemetry"
)

// RunReceiver listens for telemetry records on the simulated link, decodes
// them with the shared wire layout and fans them out to SQLite and MQTT.
// A missing broker degrades to store-only operation rather than stopping
// the receiver.
func RunReceiver(ctx context.Context, cfg config.Config) error {
	// The receiver binds the address senders register as their peer;
	// NodeMAC identifies a sender and has no role in this process.
	mac, err := espnow.ParseMAC(cfg.PeerMAC)
	if err != nil {
		return fmt.Errorf("receiver mac: %w", err)
	}

	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close store", "error", err)
		}
	}()

	pub := mqtt.NewClient(cfg, slog.Default())
	go func() {
		if err := pub.Connect(ctx); err != nil {
			slog.Warn("mqtt unavailable; receiver continues store-only", "error", err)
		}
	}()
	defer pub.Disconnect()

	radio := sim.New(mac, sim.Config{BasePort: cfg.SimBasePort}, slog.Default())
	if err := radio.SetStationMode(); err != nil {
		return err
	}
	if err := radio.SetChannel(cfg.Channel); err != nil {
		return err
	}
	if err := radio.Init(); err != nil {
		return fmt.Errorf("radio init: %w", err)
	}
	defer func() {
		if err := radio.Deinit(); err != nil {
			slog.Error("radio deinit", "error", err)
		}
	}()

	err = radio.OnRecv(func(src espnow.MAC, payload []byte) {
		var rec telemetry.Record
		if err := rec.UnmarshalBinary(payload); err != nil {
			slog.Warn("discarding malformed record", "from", src.String(), "bytes", len(payload), "error", err)
			return
		}
		receivedAt := time.Now()

		slog.Info("record received",
			"device", rec.DeviceMAC,
			"temperature_c", rec.Temperature,
			"humidity_pct", rec.Humidity,
			"gas_raw", rec.GasLevel,
			"heart_rate_bpm", rec.HeartRate,
			"spo2_pct", rec.SpO2,
			"uptime_ms", rec.Timestamp,
		)

		if err := st.InsertReading(&rec, receivedAt); err != nil {
			slog.Error("store reading failed", "device", rec.DeviceMAC, "error", err)
		}
		if err := pub.PublishReading(&rec, receivedAt); err != nil {
			slog.Debug("mqtt publish skipped", "error", err)
		}
	})
	if err != nil {
		return err
	}

	slog.Info("receiver running",
		"mac", mac.String(),
		"channel", cfg.Channel,
		"sqlite", cfg.SQLitePath,
	)
	<-ctx.Done()
	slog.Info("receiver shutting down")
	return nil
}
