package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the process configuration. The bridge settings proper
// (port, baud rate, sleep timeout) live in the persisted record.
type Config struct {
	// SerialPort is the device the bridge talks to (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is used when the persisted record carries no baud rate
	BaudRate int `yaml:"baud_rate"`
	// DataDir holds the persisted records
	DataDir string `yaml:"data_dir"`
	// ListenHost is the host the raw TCP bridge listens on
	ListenHost string `yaml:"listen_host"`
	// BindAddress is the address of the admin HTTP server, empty disables it
	BindAddress string `yaml:"bind_address"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// LogFormat is "json" or "text"
	LogFormat string `yaml:"log_format"`
	// MatchMode selects how control commands are found in a line ("prefix", "substring")
	MatchMode string `yaml:"match_mode"`
	// Codeword enables the in-band baud rate codeword
	Codeword bool `yaml:"codeword"`
	// IndicatorLine is the output line driving the status indicator ("dtr", "rts", "none")
	IndicatorLine string `yaml:"indicator_line"`
	// ControlLine is the input line read as the control button
	ControlLine string `yaml:"control_line"`
	// IdleDivision is the number of idle timer ticks per sleep timeout
	IdleDivision int `yaml:"idle_division"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.DataDir = "/var/lib/serbridge"
		c.ListenHost = "0.0.0.0"
		c.BindAddress = "0.0.0.0:8080"
		c.LogLevel = "info"
		c.LogFormat = "json"
		c.MatchMode = "substring"
		c.Codeword = true
		c.IndicatorLine = "dtr"
		c.ControlLine = "none"
		c.IdleDivision = 10
		return nil
	}
}

// WithFile loads configuration from a YAML file. Keys missing from the
// file keep their current value. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %q: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if dir := os.Getenv("DATA_DIR"); dir != "" {
			c.DataDir = dir
		}

		if host := os.Getenv("LISTEN_HOST"); host != "" {
			c.ListenHost = host
		}

		if addr, ok := os.LookupEnv("BIND_ADDRESS"); ok {
			c.BindAddress = addr
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if format := os.Getenv("LOG_FORMAT"); format != "" {
			c.LogFormat = format
		}

		if mode := os.Getenv("MATCH_MODE"); mode != "" {
			c.MatchMode = mode
		}

		if cw := os.Getenv("CODEWORD"); cw != "" {
			if b, err := strconv.ParseBool(cw); err == nil {
				c.Codeword = b
			}
		}

		if line := os.Getenv("INDICATOR_LINE"); line != "" {
			c.IndicatorLine = line
		}

		if line := os.Getenv("CONTROL_LINE"); line != "" {
			c.ControlLine = line
		}

		if div := os.Getenv("IDLE_DIVISION"); div != "" {
			if d, err := strconv.Atoi(div); err == nil {
				c.IdleDivision = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags that were set
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "data-dir":
				c.DataDir = f.Value.String()
			case "listen-host":
				c.ListenHost = f.Value.String()
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "log-format":
				c.LogFormat = f.Value.String()
			case "match-mode":
				c.MatchMode = f.Value.String()
			case "codeword":
				if b, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.Codeword = b
				}
			case "indicator-line":
				c.IndicatorLine = f.Value.String()
			case "control-line":
				c.ControlLine = f.Value.String()
			case "idle-division":
				if d, err := strconv.Atoi(f.Value.String()); err == nil {
					c.IdleDivision = d
				}
			}
		})
		return nil
	}
}

// registerFlags declares the flags read by WithFlags on fs.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML configuration file")
	fs.String("serial-port", "/dev/ttyUSB0", "Serial port of the legacy device")
	fs.Int("baud-rate", 9600, "Baud rate used when the stored configuration has none")
	fs.String("data-dir", "/var/lib/serbridge", "Directory holding the stored configuration")
	fs.String("listen-host", "0.0.0.0", "Host the bridge listens on")
	fs.String("bind-address", "0.0.0.0:8080", "Bind address for the admin HTTP server, empty disables it")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "json", "Log format (json, text)")
	fs.String("match-mode", "substring", "Control command matching (prefix, substring)")
	fs.Bool("codeword", true, "Enable the in-band baud rate codeword")
	fs.String("indicator-line", "dtr", "Output line driving the status indicator (dtr, rts, none)")
	fs.String("control-line", "none", "Input line read as the control button (dsr, cts, ri, dcd, none)")
	fs.Int("idle-division", 10, "Idle timer ticks per sleep timeout")
}
