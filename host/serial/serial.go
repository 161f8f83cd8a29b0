package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this, a real UART needs >= 921600 for stereo 48 kHz)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for the block monitor
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        921600,
		ReadTimeout: 100, // 100ms read timeout
	}
}

// DefaultConfigWithBaud returns DefaultConfig with an explicit baud rate
func DefaultConfigWithBaud(device string, baud int) *Config {
	cfg := DefaultConfig(device)
	if baud > 0 {
		cfg.Baud = baud
	}
	return cfg
}
