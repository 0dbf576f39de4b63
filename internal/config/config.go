// config.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package config loads tellopaint settings from tellopaint.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked for in the config directory.
const FileName = "tellopaint"

// DroneConfig holds the UDP addressing of the drone.
type DroneConfig struct {
	Address   string `mapstructure:"address"`
	Port      int    `mapstructure:"port"`
	LocalPort int    `mapstructure:"localPort"`
}

// SequencerConfig holds the command pacing.
type SequencerConfig struct {
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
	MaxTimeouts     int           `mapstructure:"maxTimeouts"`
	Spacing         time.Duration `mapstructure:"spacing"`
}

// CaptureConfig holds the light-painting window settings.
type CaptureConfig struct {
	Window      time.Duration `mapstructure:"window"`
	Orientation string        `mapstructure:"orientation"`
	OutputDir   string        `mapstructure:"outputDir"`
}

// JournalConfig locates the flight journal database.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds the control server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// MQTTConfig holds the event publisher settings.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topicPrefix"`
	ClientID    string `mapstructure:"clientID"`
}

// Config is the complete tellopaint configuration.
type Config struct {
	LogLevel  string          `mapstructure:"logLevel"`
	LogsDir   string          `mapstructure:"logsDir"`
	Drone     DroneConfig     `mapstructure:"drone"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Server    ServerConfig    `mapstructure:"server"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "./logs")

	v.SetDefault("drone.address", "192.168.10.1")
	v.SetDefault("drone.port", 8889)
	v.SetDefault("drone.localPort", 8889)

	v.SetDefault("sequencer.responseTimeout", "6s")
	v.SetDefault("sequencer.maxTimeouts", 2)
	v.SetDefault("sequencer.spacing", "1s")

	v.SetDefault("capture.window", "60s")
	v.SetDefault("capture.orientation", "portrait")
	v.SetDefault("capture.outputDir", "./captures")

	v.SetDefault("journal.path", "tellopaint.db")

	v.SetDefault("server.port", 8080)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topicPrefix", "tellopaint")
	v.SetDefault("mqtt.clientID", "tellopaint")
}

// Load reads tellopaint.yaml from configDir, if present, over the defaults.
// Environment variables such as TELLOPAINT_DRONE_ADDRESS override both.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix("TELLOPAINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Sequencer.ResponseTimeout <= 0:
		return fmt.Errorf("sequencer.responseTimeout must be positive, got %v", c.Sequencer.ResponseTimeout)
	case c.Sequencer.MaxTimeouts < 1:
		return fmt.Errorf("sequencer.maxTimeouts must be at least 1, got %d", c.Sequencer.MaxTimeouts)
	case c.Sequencer.Spacing < 0:
		return fmt.Errorf("sequencer.spacing must not be negative, got %v", c.Sequencer.Spacing)
	case c.Capture.Window <= 0:
		return fmt.Errorf("capture.window must be positive, got %v", c.Capture.Window)
	}
	return nil
}
