// Package telemetry defines the fixed-layout sensor record and its wire
// encoding shared by the sender and receiver images.
package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wire layout, little-endian, no padding:
//
//	temperature float32 | humidity float32 | gas int32 |
//	heartRate float32 | spo2 float32 | mac [18]byte (NUL-terminated ASCII) |
//	timestamp uint32
//
// There is no version field: both firmware images must be built from the
// same record definition or every field after the first mismatch decodes
// as garbage.
const (
	// MACFieldLen fits "XX:XX:XX:XX:XX:XX" plus the terminating NUL.
	MACFieldLen = 18

	// RecordLen is the total on-air record size in bytes.
	RecordLen = 4 + 4 + 4 + 4 + 4 + MACFieldLen + 4

	macOffset       = 20
	timestampOffset = macOffset + MACFieldLen
)

// Record is a single telemetry sample. Every field is populated before
// transmission; failed sensor reads substitute previous or default values.
type Record struct {
	Temperature float32 // degrees Celsius
	Humidity    float32 // percent relative humidity
	GasLevel    int32   // raw ADC units, 0-4095
	HeartRate   float32 // bpm, simulated vital sign
	SpO2        float32 // percent, simulated vital sign
	DeviceMAC   string  // sender hardware address, "XX:XX:XX:XX:XX:XX"
	Timestamp   uint32  // milliseconds since sender boot
}

// MarshalBinary packs the record field by field instead of copying the
// in-memory struct image, so the wire layout does not depend on compiler
// padding rules. Field order and widths match the receiver's decoder.
func (r *Record) MarshalBinary() ([]byte, error) {
	if len(r.DeviceMAC) >= MACFieldLen {
		return nil, fmt.Errorf("device mac %q longer than %d bytes", r.DeviceMAC, MACFieldLen-1)
	}
	buf := make([]byte, RecordLen)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(r.Temperature))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(r.Humidity))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.GasLevel))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(r.HeartRate))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(r.SpO2))
	copy(buf[macOffset:timestampOffset], r.DeviceMAC) // trailing bytes stay NUL
	binary.LittleEndian.PutUint32(buf[timestampOffset:], r.Timestamp)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary (or by a sender
// image with the identical layout).
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordLen {
		return fmt.Errorf("record length %d, want %d", len(data), RecordLen)
	}
	r.Temperature = math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	r.Humidity = math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	r.GasLevel = int32(binary.LittleEndian.Uint32(data[8:12]))
	r.HeartRate = math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	r.SpO2 = math.Float32frombits(binary.LittleEndian.Uint32(data[16:20]))

	mac := data[macOffset:timestampOffset]
	if i := bytes.IndexByte(mac, 0); i >= 0 {
		mac = mac[:i]
	} else {
		return fmt.Errorf("mac field missing NUL terminator")
	}
	r.DeviceMAC = string(mac)

	r.Timestamp = binary.LittleEndian.Uint32(data[timestampOffset:])
	return nil
}
