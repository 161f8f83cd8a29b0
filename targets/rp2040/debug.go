//go:build rp2040

package main

import (
	"i2saudio/core"
	"machine"
)

var debugUART *machine.UART

// InitDebugUART initializes UART0 on GPIO0 (TX) and GPIO1 (RX) for diagnostics.
// USB carries block frames, so diagnostics need their own port.
// Baud rate: 115200
func InitDebugUART() {
	debugUART = machine.UART0

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		debugUART = nil
		return
	}

	core.SetDebugWriter(debugWrite)
	debugWrite("=== i2saudio debug UART ===")
}

func debugWrite(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
