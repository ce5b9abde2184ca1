// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport names
const (
	TransportTCP       = "tcp"
	TransportSerial    = "serial"
	TransportWebSocket = "websocket"
)

// EnvPrefix prefixes every environment override, e.g. MACTL_RECEIVER_HOST.
const EnvPrefix = "MACTL"

// ReceiverConfig selects the receiver and how to reach it
type ReceiverConfig struct {
	Transport string `mapstructure:"transport"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Name      string `mapstructure:"name"`
}

// Address returns host:port for the TCP transport
func (r ReceiverConfig) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Identifier returns a stable id for the receiver, e.g. jblav_192_168_1_20_50000
func (r ReceiverConfig) Identifier() string {
	host := strings.NewReplacer(".", "_", ":", "_").Replace(r.Host)
	return fmt.Sprintf("jblav_%s_%d", host, r.Port)
}

// SerialConfig configures an RS-232 link
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// WebSocketConfig configures a WebSocket bridge
type WebSocketConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"noSSLVerify"`
}

// SessionConfig tunes the control session
type SessionConfig struct {
	ConnectTimeout    time.Duration `mapstructure:"connectTimeout"`
	RequestTimeout    time.Duration `mapstructure:"requestTimeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeatInterval"`
	CommandRate       float64       `mapstructure:"commandRate"`
	CommandBurst      int           `mapstructure:"commandBurst"`
	MaxBuffered       int           `mapstructure:"maxBuffered"`
}

// BackoffConfig controls reconnection
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
	Jitter     bool          `mapstructure:"jitter"`
}

// LumberjackConfig configures log file rotation
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig holds log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the top-level configuration
type Config struct {
	Receiver  ReceiverConfig  `mapstructure:"receiver"`
	Serial    SerialConfig    `mapstructure:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Session   SessionConfig   `mapstructure:"session"`
	Backoff   BackoffConfig   `mapstructure:"backoff"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// New returns a viper instance with defaults and MACTL_ environment
// overrides, ready for flag binding.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional config file into v and decodes the result. An empty
// path searches ./mactl.{yaml,toml,json} and $HOME/.config/mactl; a missing
// file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mactl")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mactl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Receiver.Transport = cfg.inferTransport()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// inferTransport picks the transport when none was configured: a WebSocket
// URL wins over a serial port, which wins over TCP.
func (c *Config) inferTransport() string {
	if t := strings.ToLower(c.Receiver.Transport); t != "" {
		return t
	}
	switch {
	case c.WebSocket.URL != "":
		return TransportWebSocket
	case c.Serial.Port != "":
		return TransportSerial
	}
	return TransportTCP
}

// Validate checks the settings needed by the selected transport. A missing
// receiver address is not an error here; commands that connect report it.
func (c *Config) Validate() error {
	switch c.Receiver.Transport {
	case TransportTCP:
		if c.Receiver.Port <= 0 || c.Receiver.Port > 65535 {
			return fmt.Errorf("invalid receiver.port %d", c.Receiver.Port)
		}
	case TransportSerial:
		if c.Serial.Baud <= 0 {
			return fmt.Errorf("invalid serial.baud %d", c.Serial.Baud)
		}
	case TransportWebSocket:
	default:
		return fmt.Errorf("unknown receiver.transport %q (use tcp, serial or websocket)", c.Receiver.Transport)
	}

	if c.Session.RequestTimeout <= 0 {
		return errors.New("session.requestTimeout must be positive")
	}
	if c.Session.CommandRate < 0 {
		return errors.New("session.commandRate must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("receiver.transport", "")
	v.SetDefault("receiver.host", "")
	v.SetDefault("receiver.port", 50000)
	v.SetDefault("receiver.name", "JBL AV Receiver")

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "")
	v.SetDefault("websocket.noSSLVerify", false)

	v.SetDefault("session.connectTimeout", "15s")
	v.SetDefault("session.requestTimeout", "3s")
	v.SetDefault("session.heartbeatInterval", "30s")
	v.SetDefault("session.commandRate", 10)
	v.SetDefault("session.commandBurst", 4)
	v.SetDefault("session.maxBuffered", 522)

	v.SetDefault("backoff.initial", "1s")
	v.SetDefault("backoff.max", "30s")
	v.SetDefault("backoff.multiplier", 2.0)
	v.SetDefault("backoff.jitter", true)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}
