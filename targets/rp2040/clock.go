//go:build rp2040

package main

import (
	"errors"
	"machine"
	"runtime/volatile"
	"unsafe"
)

// RP2040 clock-output and IO bank registers
const (
	clocksBase       = 0x40008000
	clkGPOUT0CTRL    = clocksBase + 0x00
	clkGPOUT0DIV     = clocksBase + 0x04
	ioBank0Base      = 0x40014000
	gpio21CTRL       = ioBank0Base + 0x04 + 8*masterClockPin
	masterClockPin   = 21 // GPOUT0 is only available on GPIO21
	gpoutAuxsrcSys   = 0x6
	gpoutAuxsrcShift = 5
	gpoutEnable      = 1 << 11
	funcselGPCK      = 8
)

var (
	gpout0Ctrl = (*volatile.Register32)(unsafe.Pointer(uintptr(clkGPOUT0CTRL)))
	gpout0Div  = (*volatile.Register32)(unsafe.Pointer(uintptr(clkGPOUT0DIV)))
	gpio21Ctrl = (*volatile.Register32)(unsafe.Pointer(uintptr(gpio21CTRL)))
)

var errMCLKRange = errors.New("master clock out of range for GPOUT0 divider")

// GPOutClockRouter drives the codec master clock from clk_sys through GPOUT0.
// The divider is 24.8 fixed point, so rates that don't divide clk_sys exactly
// carry fractional jitter.
type GPOutClockRouter struct{}

// RouteMasterClock enables GPOUT0 at rateHz and muxes it onto GPIO21
func (GPOutClockRouter) RouteMasterClock(rateHz uint32) error {
	if rateHz == 0 {
		return errMCLKRange
	}
	div := (uint64(machine.CPUFrequency()) << 8) / uint64(rateHz)
	if div < 1<<8 || div > 0xFFFFFFFF {
		return errMCLKRange
	}

	gpout0Ctrl.ClearBits(gpoutEnable)
	gpout0Div.Set(uint32(div))
	gpout0Ctrl.Set(gpoutAuxsrcSys << gpoutAuxsrcShift)
	gpout0Ctrl.SetBits(gpoutEnable)

	gpio21Ctrl.Set(funcselGPCK)
	return nil
}
