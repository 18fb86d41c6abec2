package espnow

import (
	"fmt"
	"strconv"
	"strings"
)

// MAC is a 6-byte link-layer hardware address.
type MAC [6]byte

// String formats the address as upper-case colon-separated hex, the same
// form carried in the telemetry record's identity field.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether the address is all zeroes.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// ParseMAC parses "XX:XX:XX:XX:XX:XX" (case-insensitive) into a MAC.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	parts := strings.Split(s, ":")
	if len(parts) != len(m) {
		return MAC{}, fmt.Errorf("invalid mac address %q", s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return MAC{}, fmt.Errorf("invalid mac address %q", s)
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return MAC{}, fmt.Errorf("invalid mac address %q", s)
		}
		m[i] = byte(v)
	}
	return m, nil
}
