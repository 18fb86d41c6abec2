// Package mqtt publishes decoded telemetry readings to a broker so the
// rest of the backend can consume them. The sensor node itself never
// touches MQTT; only the receiver image does.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayush8-agh/sih/internal/config"
	"github.com/ayush8-agh/sih/internal/telemetry"
)

// Reading is the JSON shape published per decoded record.
type Reading struct {
	DeviceMAC    string    `json:"device_mac"`
	ReceivedAt   time.Time `json:"received_at"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	GasRaw       int32     `json:"gas_raw"`
	HeartRateBPM float64   `json:"heart_rate_bpm"`
	SpO2Pct      float64   `json:"spo2_pct"`
	UptimeMS     uint32    `json:"uptime_ms"`
}

// Client wraps the paho client with connection-state tracking and an
// idempotent shutdown.
type Client struct {
	client mqtt.Client
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes the broker connection, waiting in a ctx/stop-aware
// loop. With connect-retry enabled the paho client keeps retrying
// internally.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishReading publishes one decoded record to nodes/<mac>/telemetry.
func (c *Client) PublishReading(rec *telemetry.Record, receivedAt time.Time) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := fmt.Sprintf("nodes/%s/telemetry", rec.DeviceMAC)
	data, err := json.Marshal(Reading{
		DeviceMAC:    rec.DeviceMAC,
		ReceivedAt:   receivedAt,
		TemperatureC: float64(rec.Temperature),
		HumidityPct:  float64(rec.Humidity),
		GasRaw:       rec.GasLevel,
		HeartRateBPM: float64(rec.HeartRate),
		SpO2Pct:      float64(rec.SpO2),
		UptimeMS:     rec.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := c.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	c.logger.Debug("published reading", "topic", topic)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client. Safe to call more than once; Connect fails
// afterwards.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
