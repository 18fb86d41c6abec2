//go:build tinygo

// Firmware image for the sensor node. The radio protocol has no Go driver
// on this target yet, so marshaled telemetry frames leave over the serial
// console instead of the link session; sensor wiring, acquisition
// fallbacks, dispatch pacing and the wire codec are the real thing.
package main

import (
	"context"
	"encoding/hex"
	"machine"
	"time"

	"github.com/ayush8-agh/sih/internal/config"
	"github.com/ayush8-agh/sih/internal/dispatch"
	"github.com/ayush8-agh/sih/internal/sensor"
	"github.com/ayush8-agh/sih/internal/telemetry"
)

func put(s string) {
	machine.Serial.Write([]byte(s))
}

// serialSender emits each record as one hex-encoded line on the serial
// console.
type serialSender struct{}

func (serialSender) Send(rec *telemetry.Record) error {
	payload, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	buf := make([]byte, hex.EncodedLen(len(payload)))
	hex.Encode(buf, payload)
	machine.Serial.Write(buf)
	put("\r\n")
	return nil
}

func main() {
	time.Sleep(2 * time.Second) // let the serial console attach

	climate, err := sensor.NewClimate(config.ClimateSensorType, machine.Pin(config.ClimateSensorPin))
	if err != nil {
		for {
			put("climate sensor init failed: " + err.Error() + "\r\n")
			time.Sleep(5 * time.Second)
		}
	}
	gas := sensor.NewADCGas(machine.Pin(config.GasSensorADCPin))

	acquirer := sensor.NewAcquirer(climate, gas, sensor.SimVitals{}, config.DefaultNodeMAC, nil)

	dispatcher := dispatch.New(dispatch.Config{
		IntervalMS: config.SendIntervalMS,
		IdleDelay:  config.IdlePollDelay,
	}, acquirer, serialSender{}, nil)

	put("sensor node up\r\n")
	_ = dispatcher.Run(context.Background())
}
