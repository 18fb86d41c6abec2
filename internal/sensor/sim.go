//go:build !tinygo && !baremetal

package sensor

import "math/rand"

// Host-side sensor stand-ins for running the firmware off hardware. Value
// ranges mirror what the real sensors produce.

// SimClimate produces plausible room-climate readings.
type SimClimate struct{}

func (SimClimate) Read() (float32, float32, error) {
	temperature := 24.0 + rand.Float32()*4.0  // 24-28 C
	humidity := 45.0 + rand.Float32()*15.0    // 45-60 %
	return temperature, humidity, nil
}

// SimGas produces raw 12-bit ADC readings across the full range.
type SimGas struct{}

func (SimGas) Read() (int32, error) {
	return int32(rand.Intn(adcMax + 1)), nil
}
