// Package sensor acquires environmental readings and fills telemetry
// records. Read failures are recovered locally with previous or default
// values; acquisition never propagates an error to the send path.
package sensor

import (
	"log/slog"

	"github.com/ayush8-agh/sih/internal/clock"
	"github.com/ayush8-agh/sih/internal/telemetry"
)

// ClimateSensor reads ambient temperature (Celsius) and relative humidity
// (percent) in one measurement.
type ClimateSensor interface {
	Read() (temperature, humidity float32, err error)
}

// GasSensor reads the raw gas level from the ADC, 0-4095 for a 12-bit
// converter.
type GasSensor interface {
	Read() (int32, error)
}

// VitalsSensor reads heart rate (bpm) and SpO2 (percent). The current
// hardware has no biometric sensor attached, so the shipped implementation
// simulates both values.
type VitalsSensor interface {
	Read() (heartRate, spo2 float32, err error)
}

const (
	defaultTemperature = 25.0 // fallback before the first good climate read
	defaultHumidity    = 50.0
	adcMax             = 4095

	// SpO2 clamp bounds. The floor sits below the simulated 95-100 range
	// on purpose; see the boundary test before changing it.
	spo2Floor = 90.0
	spo2Ceil  = 100.0
)

// Acquirer fills one record per dispatch tick from the configured sensors.
// It keeps the previously acquired record so failed reads can fall back to
// the last known values.
type Acquirer struct {
	climate   ClimateSensor
	gas       GasSensor
	vitals    VitalsSensor
	deviceMAC string
	logger    *slog.Logger
	now       func() uint32

	prev telemetry.Record
}

func NewAcquirer(climate ClimateSensor, gas GasSensor, vitals VitalsSensor, deviceMAC string, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		climate:   climate,
		gas:       gas,
		vitals:    vitals,
		deviceMAC: deviceMAC,
		logger:    logger,
		now:       clock.Millis,
	}
}

// Acquire reads every sensor and returns a fully populated record.
func (a *Acquirer) Acquire() *telemetry.Record {
	rec := &telemetry.Record{}

	temp, hum, err := a.climate.Read()
	if err != nil {
		if a.prev.Temperature == 0 && a.prev.Humidity == 0 {
			rec.Temperature = defaultTemperature
			rec.Humidity = defaultHumidity
			a.logger.Warn("climate read failed, using defaults", "error", err)
		} else {
			rec.Temperature = a.prev.Temperature
			rec.Humidity = a.prev.Humidity
			a.logger.Warn("climate read failed, keeping previous values", "error", err)
		}
	} else {
		rec.Temperature = temp
		rec.Humidity = hum
	}

	gas, err := a.gas.Read()
	if err != nil || gas < 0 || gas > adcMax {
		a.logger.Warn("invalid gas reading", "value", gas, "error", err)
		rec.GasLevel = 0
	} else {
		rec.GasLevel = gas
	}

	hr, spo2, err := a.vitals.Read()
	if err != nil {
		a.logger.Warn("vitals read failed, keeping previous values", "error", err)
		rec.HeartRate = a.prev.HeartRate
		rec.SpO2 = a.prev.SpO2
	} else {
		if spo2 > spo2Ceil {
			spo2 = spo2Ceil
		}
		if spo2 < spo2Floor {
			spo2 = spo2Floor
		}
		rec.HeartRate = hr
		rec.SpO2 = spo2
	}

	rec.DeviceMAC = a.deviceMAC
	rec.Timestamp = a.now()

	a.logger.Debug("sensors read",
		"temperature_c", rec.Temperature,
		"humidity_pct", rec.Humidity,
		"gas_raw", rec.GasLevel,
		"heart_rate_bpm", rec.HeartRate,
		"spo2_pct", rec.SpO2,
		"timestamp_ms", rec.Timestamp,
	)

	a.prev = *rec
	return rec
}
