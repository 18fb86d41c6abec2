// Package clock provides the millisecond uptime counter used to timestamp
// telemetry records and pace the dispatcher.
package clock

import "time"

var bootTime = time.Now()

// Millis returns milliseconds elapsed since process start, truncated to
// uint32 so it wraps around like a hardware tick counter (roughly every
// 49.7 days). Consumers must tolerate the wraparound.
func Millis() uint32 {
	return uint32(time.Since(bootTime).Milliseconds())
}
