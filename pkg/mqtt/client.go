package mqtt

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/config"
)

// Client wraps the paho MQTT client with auto-reconnection and a retained
// availability topic.
type Client struct {
	client            mqtt.Client
	config            *config.MQTTConfig
	logger            *logrus.Logger
	connected         bool
	mutex             sync.RWMutex
	availabilityTopic string
	onConnect         func()
	onDisconnect      func()
}

// NewClient creates a new MQTT client. availabilityTopic, when non-empty, is
// published "online"/"offline" (retained) and used as the will topic.
func NewClient(cfg *config.MQTTConfig, availabilityTopic string, logger *logrus.Logger) (*Client, error) {
	c := &Client{
		config:            cfg,
		logger:            logger,
		availabilityTopic: availabilityTopic,
	}

	opts := c.buildClientOptions()
	c.client = mqtt.NewClient(opts)

	return c, nil
}

func (c *Client) buildClientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(c.config.BrokerURL).
		SetClientID(c.config.ClientID).
		SetKeepAlive(time.Duration(c.config.KeepAlive) * time.Second).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(60 * time.Second).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetWriteTimeout(5 * time.Second).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(c.handleDisconnect)

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		if c.config.Password != "" {
			opts.SetPassword(c.config.Password)
		}
	}

	if c.config.IsSecure() {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: c.config.InsecureSkipVerify, // #nosec G402 - configurable for dev environments
		})
	}

	if c.availabilityTopic != "" {
		opts.SetWill(c.availabilityTopic, "offline", c.config.QoS, true)
	}

	return opts
}

// SetOnConnectCallback sets the callback invoked on every (re)connect.
func (c *Client) SetOnConnectCallback(callback func()) {
	c.onConnect = callback
}

// SetOnDisconnectCallback sets the callback invoked when the connection drops.
func (c *Client) SetOnDisconnectCallback(callback func()) {
	c.onDisconnect = callback
}

// Start connects to the broker (implements the app Service interface).
func (c *Client) Start() error {
	return c.Connect()
}

// Connect connects to the MQTT broker.
func (c *Client) Connect() error {
	c.logger.Infof("Connecting to MQTT broker: %s", c.config.BrokerURL)

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return nil
}

// Stop disconnects from the broker (implements the app Service interface).
func (c *Client) Stop() error {
	c.Disconnect()
	return nil
}

// Disconnect publishes the offline status and disconnects.
func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker")

	if c.availabilityTopic != "" && c.IsConnected() {
		_ = c.Publish(c.availabilityTopic, "offline", true)
	}

	c.client.Disconnect(250)
	c.setConnected(false)
}

// Publish publishes a message to the given topic.
func (c *Client) Publish(topic, payload string, retain bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Publish(topic, c.config.QoS, retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		c.logger.Errorf("Failed to publish to %s: %v", topic, err)
		return err
	}

	return nil
}

// PublishWithRetry publishes with retry, for messages that must not be lost
// across a reconnect window (notification events).
func (c *Client) PublishWithRetry(topic, payload string, maxRetries int, retryDelay time.Duration) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.IsConnected() {
			if err := c.Publish(topic, payload, false); err == nil {
				return nil
			}
		}

		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("failed to publish to %s after %d attempts", topic, maxRetries+1)
}

// IsConnected returns true if the client is connected to the broker.
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.connected && c.client.IsConnected()
}

func (c *Client) setConnected(connected bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connected = connected
}

func (c *Client) handleConnect(client mqtt.Client) {
	c.logger.Info("MQTT client connected")
	c.setConnected(true)

	if c.availabilityTopic != "" {
		if err := c.Publish(c.availabilityTopic, "online", true); err != nil {
			c.logger.Errorf("Failed to publish online status: %v", err)
		}
	}

	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleDisconnect(client mqtt.Client, err error) {
	c.logger.Errorf("MQTT connection lost: %v", err)
	c.setConnected(false)

	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}

// WaitForConnection waits for the client to connect, with a timeout.
func (c *Client) WaitForConnection(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for MQTT connection")
}
