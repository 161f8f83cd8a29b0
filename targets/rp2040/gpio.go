//go:build rp2040

package main

import (
	"i2saudio/core"
	"machine"
)

// RPGPIODriver implements the GPIODriver interface for RP2040
type RPGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}

	// RP2040 pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		// Pin isn't configured - configure it first
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}

	machinePin.Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, nil
	}
	return machinePin.Get(), nil
}
