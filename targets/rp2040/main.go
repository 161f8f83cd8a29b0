//go:build rp2040

package main

import (
	"i2saudio/core"
	"i2saudio/protocol"
	"machine"
)

// Board wiring for the AK4556 (strapped for 384fs slave mode)
const (
	sampleRate = 48000
	channels   = 2
	i2sInst    = 0

	pinBitClock  = 10
	pinWordClock = 11 // Must be pinBitClock + 1 for side-set
	pinDataOut   = 12
	pinDataIn    = 13
	pinCodecPDN  = 14

	// Forward every captured block to the host monitor over USB
	forwardBlocks = true

	// Check the transfer ring every this many blocks
	ringCheckBlocks = 1024
)

var (
	frameOutput *protocol.ScratchOutput
	frameSeq    uint8

	// Debug counters
	blocksProcessed uint32
	framesSent      uint32
	frameErrors     uint32

	consecutiveWriteFailures uint32
	usbWasDisconnected       bool
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	core.SetDebugEnabled(true)

	core.SetGPIODriver(NewRPGPIODriver())
	core.SetI2SDriver(NewPIOI2SDriver())
	core.SetClockRouter(GPOutClockRouter{})

	cfg := core.DefaultStreamConfig()
	cfg.SampleRate = sampleRate
	cfg.Channels = channels
	cfg.Instance = i2sInst
	cfg.Pins = core.I2SPins{
		BitClock:  pinBitClock,
		WordClock: pinWordClock,
		DataOut:   pinDataOut,
		DataIn:    pinDataIn,
	}
	cfg.EnablePin = pinCodecPDN

	stream := core.NewStream()
	result := stream.Configure(cfg)
	if !result.OK() {
		// Keep running: a failed step usually still leaves the codec clocked
		core.Diagnostic("setup failed steps=" + itoa(result.Code()))
	}
	stream.SetEnabled(true)

	frameOutput = protocol.NewScratchOutput()
	in := stream.ReadBuffer()
	out := stream.WriteBuffer()
	samples := make([]float32, len(in))

	var lastEvents uint32
	for {
		// Errors are already reported by the stream; keep the loop running
		stream.ReadBlock()

		core.DecodeBlock(samples, in)
		core.EncodeBlock(out, samples)

		stream.WriteBlock()

		if forwardBlocks {
			forwardBlock(in)
		}

		blocksProcessed++
		if blocksProcessed%ringCheckBlocks == 0 {
			if n := core.TransferEventCount(); n != lastEvents {
				core.DumpTransferRing()
				lastEvents = n
			}
		}
	}
}

// forwardBlock frames a captured block and writes it to USB
func forwardBlock(samples []int32) {
	frameOutput.Reset()
	if err := protocol.EncodeBlockFrame(frameOutput, frameSeq, channels, samples); err != nil {
		frameErrors++
		return
	}
	// Sequence advances even if USB drops the frame so the host sees the gap
	frameSeq++
	writeUSB()
}

// writeUSB writes the pending frame to USB
func writeUSB() {
	result := frameOutput.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely no host attached
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 && !usbWasDisconnected {
				usbWasDisconnected = true
				core.DebugPrintln("USB host gone, dropping frames")
			}
			frameOutput.Reset()
			return
		}
		written += n
	}

	if usbWasDisconnected {
		usbWasDisconnected = false
		core.DebugPrintln("USB host back after " + itoa(int(consecutiveWriteFailures)) + " dropped frames")
	}
	consecutiveWriteFailures = 0
	framesSent++
	frameOutput.Reset()
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
