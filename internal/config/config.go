// Package config holds the firmware's compile-time constants and the
// host-runtime settings loaded from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Compile-time firmware configuration. On real hardware these are the whole
// configuration surface; the env loader below only exists for the host
// simulation and the receiver-side services.
const (
	// DefaultNodeMAC is this node's hardware address in the telemetry
	// record's identity field.
	DefaultNodeMAC = "24:6F:28:0A:1B:2C"

	// DefaultPeerMAC is the receiver's hardware address. Replace per
	// deployment; sender and receiver agree on it out of band.
	DefaultPeerMAC = "B8:D6:1A:A7:66:88"

	// DefaultChannel is the RF channel (1-13). Must match the peer.
	DefaultChannel = uint8(1)

	// SendIntervalMS is the minimum spacing between transmissions.
	SendIntervalMS = uint32(12000)

	// IdlePollDelay is the pause between dispatcher polls.
	IdlePollDelay = 50 * time.Millisecond

	// MaxInitRetries and InitRetryBackoff bound the boot bring-up sequence.
	MaxInitRetries   = 3
	InitRetryBackoff = 2 * time.Second

	// RestartThreshold is the failure-count multiple that triggers a link
	// restart; RestartSettle is the pause between deinit and re-init.
	RestartThreshold = uint32(5)
	RestartSettle    = time.Second

	// GasSensorADCPin is the analog pin the MQ sensor is wired to. ADC1
	// only: ADC2 pins conflict with the radio.
	GasSensorADCPin = 34

	// ClimateSensorType selects the attached climate sensor;
	// ClimateSensorPin is its data pin.
	ClimateSensorType = "DHT22"
	ClimateSensorPin  = 4
)

// Config is the host-runtime configuration for the sender simulation and
// the receiver.
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	NodeMAC string // this device's address in the simulated link
	PeerMAC string // the fixed peer's address
	Channel uint8

	SendIntervalMS uint32
	SimBasePort    int

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	SQLitePath string
}

// LoadFromEnv reads configuration from the environment, applying defaults
// and validating each value.
func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	nodeMAC := strings.TrimSpace(os.Getenv("NODE_MAC"))
	if nodeMAC == "" {
		nodeMAC = DefaultNodeMAC
	}

	peerMAC := strings.TrimSpace(os.Getenv("PEER_MAC"))
	if peerMAC == "" {
		peerMAC = DefaultPeerMAC
	}

	channel := DefaultChannel
	if s := strings.TrimSpace(os.Getenv("RADIO_CHANNEL")); s != "" {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil || v < 1 || v > 13 {
			return Config{}, fmt.Errorf("invalid RADIO_CHANNEL %q (allowed: 1-13)", s)
		}
		channel = uint8(v)
	}

	intervalMS := SendIntervalMS
	if s := strings.TrimSpace(os.Getenv("SEND_INTERVAL_MS")); s != "" {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil || v == 0 {
			return Config{}, fmt.Errorf("invalid SEND_INTERVAL_MS %q", s)
		}
		intervalMS = uint32(v)
	}

	simBasePort := 0
	if s := strings.TrimSpace(os.Getenv("SIM_BASE_PORT")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 65000 {
			return Config{}, fmt.Errorf("invalid SIM_BASE_PORT %q", s)
		}
		simBasePort = v
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPort := 1883
	if s := strings.TrimSpace(os.Getenv("MQTT_PORT")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", s, err)
		}
		mqttPort = v
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "sih-receiver"
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "data/readings.db"
	}

	return Config{
		AppEnv:         appEnv,
		LogLevel:       level,
		NodeMAC:        nodeMAC,
		PeerMAC:        peerMAC,
		Channel:        channel,
		SendIntervalMS: intervalMS,
		SimBasePort:    simBasePort,
		MQTTBroker:     mqttBroker,
		MQTTPort:       mqttPort,
		MQTTClientID:   mqttClientID,
		SQLitePath:     sqlitePath,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
