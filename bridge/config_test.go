package bridge_test

import (
	"errors"
	"net"
	"testing"

	"i4.energy/across/serbridge/bridge"
	"i4.energy/across/serbridge/device"
	"i4.energy/across/serbridge/idle"
	"i4.energy/across/serbridge/settings"
)

func TestConfig(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error from Listen(): %v", err)
	}
	defer ln.Close()
	port := device.NewTestPort(9600)
	defer port.Close()
	store, _ := settings.NewFileStore(t.TempDir())

	tests := []struct {
		name     string
		builder  *bridge.ConfigBuilder
		expected error
	}{
		{
			name:     "ErrNoListener when no listener provided",
			builder:  bridge.NewConfigBuilder().WithDevice(port).WithStore(store),
			expected: bridge.ErrNoListener,
		},
		{
			name:     "ErrNoDevice when no device provided",
			builder:  bridge.NewConfigBuilder().WithListener(ln).WithStore(store),
			expected: bridge.ErrNoDevice,
		},
		{
			name:     "ErrNoStore when no store provided",
			builder:  bridge.NewConfigBuilder().WithListener(ln).WithDevice(port),
			expected: bridge.ErrNoStore,
		},
		{
			name:     "ErrInvalidDivision for a division below 2",
			builder:  bridge.NewConfigBuilder().WithListener(ln).WithDevice(port).WithStore(store).WithIdleDivision(1),
			expected: idle.ErrInvalidDivision,
		},
		{
			name:    "Defaults are applied",
			builder: bridge.NewConfigBuilder().WithListener(ln).WithDevice(port).WithStore(store),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got: %v", tt.expected, err)
			}
		})
	}
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	if _, err := bridge.New(bridge.Config{}); !errors.Is(err, bridge.ErrNoListener) {
		t.Errorf("expected ErrNoListener, got %v", err)
	}
}
