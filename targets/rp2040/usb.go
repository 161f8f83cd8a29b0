//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo sets up USB CDC-ACM on RP2040; only block frames go out this way
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBWriteBytes writes multiple bytes to USB
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
