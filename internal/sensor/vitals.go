package sensor

import "math/rand"

// SimVitals simulates a pulse oximeter: heart rate 67-77 bpm around a 72
// center, SpO2 95-100 around 97.5. No biometric sensor is attached on any
// build, so both firmware images use this source; the Acquirer clamps SpO2
// afterwards.
type SimVitals struct{}

func (SimVitals) Read() (float32, float32, error) {
	heartRate := 72.0 + float32(rand.Intn(21)-10)/2.0
	spo2 := 97.5 + float32(rand.Intn(11)-5)/2.0
	return heartRate, spo2, nil
}
