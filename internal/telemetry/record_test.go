package telemetry

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{
			name: "typical readings",
			rec: Record{
				Temperature: 26.43,
				Humidity:    58.1,
				GasLevel:    2045,
				HeartRate:   71.5,
				SpO2:        97.5,
				DeviceMAC:   "24:6F:28:0A:1B:2C",
				Timestamp:   123456,
			},
		},
		{
			name: "zero values",
			rec:  Record{DeviceMAC: "00:00:00:00:00:00"},
		},
		{
			name: "negative temperature and extreme gas",
			rec: Record{
				Temperature: -40.25,
				Humidity:    0.1,
				GasLevel:    4095,
				HeartRate:   67.0,
				SpO2:        90.0,
				DeviceMAC:   "B8:D6:1A:A7:66:88",
				Timestamp:   math.MaxUint32,
			},
		},
		{
			name: "short identity string",
			rec: Record{
				Temperature: 1,
				DeviceMAC:   "AB:CD",
				Timestamp:   42,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.rec.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error: %v", err)
			}
			if len(data) != RecordLen {
				t.Fatalf("encoded length = %d, want %d", len(data), RecordLen)
			}

			var got Record
			if err := got.UnmarshalBinary(data); err != nil {
				t.Fatalf("UnmarshalBinary() error: %v", err)
			}

			// Floats must survive bit-exact, not approximately.
			if math.Float32bits(got.Temperature) != math.Float32bits(tt.rec.Temperature) {
				t.Errorf("Temperature = %v, want %v", got.Temperature, tt.rec.Temperature)
			}
			if math.Float32bits(got.Humidity) != math.Float32bits(tt.rec.Humidity) {
				t.Errorf("Humidity = %v, want %v", got.Humidity, tt.rec.Humidity)
			}
			if got.GasLevel != tt.rec.GasLevel {
				t.Errorf("GasLevel = %d, want %d", got.GasLevel, tt.rec.GasLevel)
			}
			if math.Float32bits(got.HeartRate) != math.Float32bits(tt.rec.HeartRate) {
				t.Errorf("HeartRate = %v, want %v", got.HeartRate, tt.rec.HeartRate)
			}
			if math.Float32bits(got.SpO2) != math.Float32bits(tt.rec.SpO2) {
				t.Errorf("SpO2 = %v, want %v", got.SpO2, tt.rec.SpO2)
			}
			if got.DeviceMAC != tt.rec.DeviceMAC {
				t.Errorf("DeviceMAC = %q, want %q", got.DeviceMAC, tt.rec.DeviceMAC)
			}
			if got.Timestamp != tt.rec.Timestamp {
				t.Errorf("Timestamp = %d, want %d", got.Timestamp, tt.rec.Timestamp)
			}
		})
	}
}

func TestRecordWireLayout(t *testing.T) {
	rec := Record{
		Temperature: 25.0,
		Humidity:    50.0,
		GasLevel:    -7,
		HeartRate:   72.0,
		SpO2:        98.5,
		DeviceMAC:   "AA:BB:CC:DD:EE:FF",
		Timestamp:   0xDEADBEEF,
	}
	data, err := rec.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}

	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])); got != 25.0 {
		t.Errorf("temperature field = %v, want 25.0", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])); got != 50.0 {
		t.Errorf("humidity field = %v, want 50.0", got)
	}
	if got := int32(binary.LittleEndian.Uint32(data[8:12])); got != -7 {
		t.Errorf("gas field = %d, want -7", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[12:16])); got != 72.0 {
		t.Errorf("heart-rate field = %v, want 72.0", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[16:20])); got != 98.5 {
		t.Errorf("spo2 field = %v, want 98.5", got)
	}

	mac := data[20:38]
	if !bytes.Equal(mac[:17], []byte("AA:BB:CC:DD:EE:FF")) {
		t.Errorf("mac field = %q", mac[:17])
	}
	if mac[17] != 0 {
		t.Errorf("mac terminator = %#x, want NUL", mac[17])
	}

	if got := binary.LittleEndian.Uint32(data[38:42]); got != 0xDEADBEEF {
		t.Errorf("timestamp field = %#x, want 0xDEADBEEF", got)
	}
}

func TestRecordMarshalErrors(t *testing.T) {
	rec := Record{DeviceMAC: strings.Repeat("A", MACFieldLen)}
	if _, err := rec.MarshalBinary(); err == nil {
		t.Error("MarshalBinary() accepted an identity string with no room for the terminator")
	}
}

func TestRecordUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil data", data: nil},
		{name: "short buffer", data: make([]byte, RecordLen-1)},
		{name: "long buffer", data: make([]byte, RecordLen+1)},
		{
			name: "mac without terminator",
			data: func() []byte {
				data := make([]byte, RecordLen)
				for i := macOffset; i < timestampOffset; i++ {
					data[i] = 'X'
				}
				return data
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			if err := rec.UnmarshalBinary(tt.data); err == nil {
				t.Error("UnmarshalBinary() = nil error, want failure")
			}
		})
	}
}
