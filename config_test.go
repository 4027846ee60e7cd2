package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.BaudRate != 9600 || config.MatchMode != "substring" || !config.Codeword || config.IdleDivision != 10 {
			t.Errorf("unexpected defaults: %+v", config)
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "serbridge.yaml")
		data := "serial_port: /dev/ttyS1\nmatch_mode: prefix\ncodeword: false\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyS1" || config.MatchMode != "prefix" || config.Codeword {
			t.Errorf("file values not applied: %+v", config)
		}
		if config.LogLevel != "info" {
			t.Errorf("expected missing keys to keep defaults, got log level %q", config.LogLevel)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := LoadConfig(WithDefaults(), WithFile(filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("Env overrides file", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyAMA0")
		t.Setenv("IDLE_DIVISION", "4")
		t.Setenv("CODEWORD", "false")
		t.Setenv("BIND_ADDRESS", "")

		config, err := LoadConfig(WithDefaults(), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyAMA0" || config.IdleDivision != 4 || config.Codeword {
			t.Errorf("env values not applied: %+v", config)
		}
		if config.BindAddress != "" {
			t.Errorf("expected an empty BIND_ADDRESS to disable the admin server, got %q", config.BindAddress)
		}
	})

	t.Run("Flags override env", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "warn")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		registerFlags(fs)
		if err := fs.Parse([]string{"--log-level=debug", "--baud-rate=2400", "--codeword=false"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fs))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.LogLevel != "debug" || config.BaudRate != 2400 || config.Codeword {
			t.Errorf("flag values not applied: %+v", config)
		}
		if config.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("expected unset flags to be ignored, got %q", config.SerialPort)
		}
	})
}
