package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HomeAssistant HomeAssistantConfig      `yaml:"homeassistant"`
	Printers      map[string]PrinterConfig `yaml:"printers"`
	MQTT          MQTTConfig               `yaml:"mqtt"`
	Server        ServerConfig             `yaml:"server"`
	Logging       LoggingConfig            `yaml:"logging"`
}

type HomeAssistantConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type PrinterConfig struct {
	ID            string             `yaml:"id"`
	Prefix        string             `yaml:"prefix"`
	Name          string             `yaml:"name,omitempty"`
	PollInterval  int                `yaml:"poll_interval"` // seconds
	Notifications NotificationConfig `yaml:"notifications"`
}

type NotificationConfig struct {
	Started           bool `yaml:"started"`
	Paused            bool `yaml:"paused"`
	Resumed           bool `yaml:"resumed"`
	Completed         bool `yaml:"completed"`
	Failed            bool `yaml:"failed"`
	MilestoneInterval int  `yaml:"milestone_interval"` // percent, 0 disables
}

type MQTTConfig struct {
	Enabled            bool   `yaml:"enabled"`
	BrokerURL          string `yaml:"broker_url"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	ClientID           string `yaml:"client_id"`
	QoS                byte   `yaml:"qos"`
	KeepAlive          int    `yaml:"keep_alive"`
	BaseTopic          string `yaml:"base_topic"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type ServerConfig struct {
	// Listen is the local status/metrics listen address ("127.0.0.1:8093").
	// Empty disables the HTTP server.
	Listen string `yaml:"listen,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DefaultPollIntervalSeconds = 30
	MinPollIntervalSeconds     = 15
	MaxPollIntervalSeconds     = 120
)

func (m *MQTTConfig) IsSecure() bool {
	return strings.HasPrefix(m.BrokerURL, "mqtts://") || strings.HasPrefix(m.BrokerURL, "wss://")
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	for id, printer := range config.Printers {
		printer.ID = id
		config.Printers[id] = printer
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	c.setPrinterDefaults()
	c.setMQTTDefaults()
	c.setLoggingDefaults()
}

func (c *Config) setPrinterDefaults() {
	for id, printer := range c.Printers {
		if printer.PollInterval == 0 {
			printer.PollInterval = DefaultPollIntervalSeconds
		}
		c.Printers[id] = printer
	}
}

func (c *Config) setMQTTDefaults() {
	if c.MQTT.BrokerURL == "" {
		c.MQTT.BrokerURL = "mqtt://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "ha-printer-bridge"
	}
	if c.MQTT.QoS == 0 {
		c.MQTT.QoS = 1
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 60
	}
	if c.MQTT.BaseTopic == "" {
		c.MQTT.BaseTopic = "printerbridge"
	}
}

func (c *Config) setLoggingDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	if err := c.validateHomeAssistant(); err != nil {
		return err
	}
	if err := c.validatePrinters(); err != nil {
		return err
	}
	if c.MQTT.Enabled {
		if err := c.validateMQTT(); err != nil {
			return err
		}
	}
	return c.validateLogging()
}

func (c *Config) validateHomeAssistant() error {
	if c.HomeAssistant.BaseURL == "" {
		return fmt.Errorf("homeassistant.base_url is required")
	}

	u, err := url.Parse(c.HomeAssistant.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid homeassistant.base_url '%s': %w", c.HomeAssistant.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("homeassistant.base_url '%s' must use http:// or https://", c.HomeAssistant.BaseURL)
	}

	if c.HomeAssistant.Token == "" {
		return fmt.Errorf("homeassistant.token is required")
	}

	return nil
}

func (c *Config) validatePrinters() error {
	if len(c.Printers) == 0 {
		return fmt.Errorf("at least one printer must be configured")
	}

	for id, printer := range c.Printers {
		if printer.Prefix == "" {
			return fmt.Errorf("printers[%s].prefix is required", id)
		}
		if printer.PollInterval < MinPollIntervalSeconds || printer.PollInterval > MaxPollIntervalSeconds {
			return fmt.Errorf("printers[%s].poll_interval must be between %d and %d seconds (got %d)",
				id, MinPollIntervalSeconds, MaxPollIntervalSeconds, printer.PollInterval)
		}
		if err := validateMilestoneInterval(id, printer.Notifications.MilestoneInterval); err != nil {
			return err
		}
	}
	return nil
}

func validateMilestoneInterval(id string, interval int) error {
	if interval == 0 {
		return nil
	}
	if interval < 5 || interval > 50 {
		return fmt.Errorf("printers[%s].notifications.milestone_interval must be 0 (disabled) or between 5 and 50 percent (got %d)",
			id, interval)
	}
	return nil
}

func (c *Config) validateMQTT() error {
	if c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required")
	}

	if _, err := url.Parse(c.MQTT.BrokerURL); err != nil {
		return fmt.Errorf("invalid mqtt.broker_url '%s': %w", c.MQTT.BrokerURL, err)
	}

	validSchemes := []string{"mqtt://", "mqtts://", "ws://", "wss://"}
	for _, scheme := range validSchemes {
		if strings.HasPrefix(c.MQTT.BrokerURL, scheme) {
			return c.validateMQTTParams()
		}
	}

	return fmt.Errorf("mqtt.broker_url '%s' must use one of: %s", c.MQTT.BrokerURL, strings.Join(validSchemes, ", "))
}

func (c *Config) validateMQTTParams() error {
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1, or 2 (got %d)", c.MQTT.QoS)
	}
	if c.MQTT.KeepAlive < 10 {
		return fmt.Errorf("mqtt.keep_alive must be at least 10 seconds (got %d)", c.MQTT.KeepAlive)
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLogLevels := []string{"debug", "info", "warn", "warning", "error", "fatal", "panic"}
	logLevel := strings.ToLower(c.Logging.Level)
	if !slices.Contains(validLogLevels, logLevel) {
		return fmt.Errorf("logging.level '%s' must be one of: %s",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"text", "json"}
	logFormat := strings.ToLower(c.Logging.Format)
	if !slices.Contains(validLogFormats, logFormat) {
		return fmt.Errorf("logging.format '%s' must be one of: %s",
			c.Logging.Format, strings.Join(validLogFormats, ", "))
	}

	return nil
}
