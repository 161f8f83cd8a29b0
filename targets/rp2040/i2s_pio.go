//go:build rp2040

package main

// Full-duplex I2S on a PIO state machine.
//
// BCLK and LRCLK are side-set pins (LRCLK must be BCLK+1), data out is the
// OUT pin and data in is the IN pin. Each channel occupies a 32-bit slot,
// MSB first, with LRCLK switching one bit before the MSB (Philips framing).
// One bit period is 4 PIO cycles: data changes while BCLK is low and the
// input is sampled while BCLK is high, so output and input words stay aligned.

import (
	"errors"
	"i2saudio/core"
	"machine"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

const (
	i2sPIOOrigin     = 0  // Program uses absolute jump targets
	i2sEntryPoint    = 11 // "set x, 30" with LRCLK low
	i2sSlotBits      = 32
	i2sCyclesPerBit  = 4
	i2sFIFODepth     = 4
	i2sStateMachine  = 0
	i2sChannelsFixed = 2 // Two slots per frame, no TDM
)

var (
	errI2SChannels   = errors.New("PIO I2S supports exactly 2 channels")
	errI2SPinLayout  = errors.New("PIO I2S needs word clock on bit clock + 1")
	errI2SNotReady   = errors.New("PIO I2S not installed")
	errI2SSampleRate = errors.New("sample rate out of range for PIO divider")
)

// buildI2SProgram creates the duplex I2S program using AssemblerV0.
// Side-set bit 0 is BCLK, bit 1 is LRCLK.
func buildI2SProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 2}
	return []uint16{
		// .wrap_target
		// bitloop0: left channel, bits 31..1
		asm.Out(rp2pio.OutDestPins, 1).Side(0b00).Delay(1).Encode(), // 0
		asm.In(rp2pio.InSrcPins, 1).Side(0b01).Encode(),             // 1
		asm.Jmp(0, rp2pio.JmpXNZeroDec).Side(0b01).Encode(),         // 2
		// left bit 0, LRCLK already high
		asm.Out(rp2pio.OutDestPins, 1).Side(0b10).Delay(1).Encode(), // 3
		asm.In(rp2pio.InSrcPins, 1).Side(0b11).Encode(),             // 4
		asm.Set(rp2pio.SetDestX, i2sSlotBits-2).Side(0b11).Encode(), // 5
		// bitloop1: right channel, bits 31..1
		asm.Out(rp2pio.OutDestPins, 1).Side(0b10).Delay(1).Encode(), // 6
		asm.In(rp2pio.InSrcPins, 1).Side(0b11).Encode(),             // 7
		asm.Jmp(6, rp2pio.JmpXNZeroDec).Side(0b11).Encode(),         // 8
		// right bit 0, LRCLK back low
		asm.Out(rp2pio.OutDestPins, 1).Side(0b00).Delay(1).Encode(), // 9
		asm.In(rp2pio.InSrcPins, 1).Side(0b01).Encode(),             // 10
		// entry point
		asm.Set(rp2pio.SetDestX, i2sSlotBits-2).Side(0b01).Encode(), // 11
		// .wrap
	}
}

// pioI2S is one installed instance
type pioI2S struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	cfg    rp2pio.StateMachineConfig
	offset uint8
	pins   core.I2SPins
	pinned bool
	rate   uint32

	pump       *core.DuplexPump
	primeWords int
}

// smFIFO adapts a state machine's FIFOs to core.DuplexFIFO
type smFIFO struct {
	sm rp2pio.StateMachine
}

func (f smFIFO) TxFull() bool { return f.sm.IsTxFIFOFull() }
func (f smFIFO) TxPut(word uint32) { f.sm.TxPut(word) }
func (f smFIFO) RxEmpty() bool { return f.sm.IsRxFIFOEmpty() }
func (f smFIFO) RxGet() uint32 { return f.sm.RxGet() }

// PIOI2SDriver implements core.I2SDriver on the RP2040 PIO blocks.
// Instance 0 runs on PIO0, instance 1 on PIO1, each using state machine 0.
//
// The state machine stalls both directions when TX runs dry or RX fills, so
// every transfer goes through a core.DuplexPump that services both FIFOs.
// Its rings stand in for the DMA ring: DMABufCount buffers of DMABufLen
// frames are primed with silence, plus one block of headroom.
type PIOI2SDriver struct {
	instances [core.I2SInstanceMax + 1]*pioI2S
}

// NewPIOI2SDriver creates the driver
func NewPIOI2SDriver() *PIOI2SDriver {
	return &PIOI2SDriver{}
}

func (d *PIOI2SDriver) get(instance core.I2SInstance) (*pioI2S, error) {
	if instance > core.I2SInstanceMax {
		return nil, core.ErrInvalidInstance
	}
	inst := d.instances[instance]
	if inst == nil {
		return nil, errI2SNotReady
	}
	return inst, nil
}

// Install loads the program and prepares the state machine configuration
func (d *PIOI2SDriver) Install(cfg core.I2SInstallConfig) error {
	if cfg.Instance > core.I2SInstanceMax {
		return core.ErrInvalidInstance
	}
	if cfg.Channels != i2sChannelsFixed {
		return errI2SChannels
	}

	pioHW := rp2pio.PIO0
	if cfg.Instance == 1 {
		pioHW = rp2pio.PIO1
	}
	sm := pioHW.StateMachine(i2sStateMachine)

	// Claim the state machine before touching it
	sm.TryClaim()

	program := buildI2SProgram()
	offset, err := pioHW.AddProgram(program, i2sPIOOrigin)
	if err != nil {
		return err
	}

	smCfg := rp2pio.DefaultStateMachineConfig()
	smCfg.SetSidesetParams(2, false, false)
	smCfg.SetWrap(offset, offset+uint8(len(program))-1)

	// MSB first in both directions, one 32-bit word per channel slot
	smCfg.SetOutShift(false, true, i2sSlotBits)
	smCfg.SetInShift(false, true, i2sSlotBits)

	bufCount := cfg.DMABufCount
	if bufCount < 1 {
		bufCount = 1
	}
	blockWords := cfg.DMABufLen * cfg.Channels
	primeWords := bufCount * blockWords

	d.instances[cfg.Instance] = &pioI2S{
		pio:        pioHW,
		sm:         sm,
		cfg:        smCfg,
		offset:     offset,
		rate:       cfg.SampleRate,
		pump:       core.NewDuplexPump(smFIFO{sm: sm}, primeWords+blockWords+i2sFIFODepth),
		primeWords: primeWords,
	}
	return nil
}

// SetPins routes BCLK/LRCLK (side-set), data out and data in to the PIO
func (d *PIOI2SDriver) SetPins(instance core.I2SInstance, pins core.I2SPins) error {
	inst, err := d.get(instance)
	if err != nil {
		return err
	}
	if pins.WordClock != pins.BitClock+1 {
		return errI2SPinLayout
	}

	bclk := machine.Pin(pins.BitClock)
	dout := machine.Pin(pins.DataOut)
	din := machine.Pin(pins.DataIn)

	mode := inst.pio.PinMode()
	bclk.Configure(machine.PinConfig{Mode: mode})
	machine.Pin(pins.WordClock).Configure(machine.PinConfig{Mode: mode})
	dout.Configure(machine.PinConfig{Mode: mode})
	din.Configure(machine.PinConfig{Mode: mode})

	inst.cfg.SetSidesetPins(bclk)
	inst.cfg.SetOutPins(dout, 1)
	inst.cfg.SetInPins(din, 1)

	inst.pins = pins
	inst.pinned = true
	return nil
}

// SetSampleRate programs the clock divider and (re)starts the state machine
func (d *PIOI2SDriver) SetSampleRate(instance core.I2SInstance, rate uint32) error {
	inst, err := d.get(instance)
	if err != nil {
		return err
	}
	if !inst.pinned {
		return errI2SNotReady
	}

	// PIO clock = fs * 2 slots * 32 bits * 4 cycles, as 16.8 fixed point
	pioHz := uint64(rate) * 2 * i2sSlotBits * i2sCyclesPerBit
	if pioHz == 0 {
		return errI2SSampleRate
	}
	div := (uint64(machine.CPUFrequency()) << 8) / pioHz
	whole := div >> 8
	if whole < 1 || whole > 0xFFFF {
		return errI2SSampleRate
	}
	inst.cfg.SetClkDivIntFrac(uint16(whole), uint8(div&0xFF))
	inst.rate = rate

	inst.sm.SetEnabled(false)
	inst.sm.Init(inst.offset+i2sEntryPoint, inst.cfg)

	// Pin directions must be set after Init
	bclk := machine.Pin(inst.pins.BitClock)
	inst.sm.SetPindirsConsecutive(bclk, 2, true)
	inst.sm.SetPindirsConsecutive(machine.Pin(inst.pins.DataOut), 1, true)
	inst.sm.SetPindirsConsecutive(machine.Pin(inst.pins.DataIn), 1, false)
	inst.sm.SetPinsConsecutive(bclk, 2, false)

	inst.sm.SetEnabled(true)
	return nil
}

// ZeroDMABuffer drops anything queued and primes the output with silence
func (d *PIOI2SDriver) ZeroDMABuffer(instance core.I2SInstance) error {
	inst, err := d.get(instance)
	if err != nil {
		return err
	}

	inst.sm.SetEnabled(false)
	inst.sm.ClearFIFOs()
	inst.pump.Reset()
	inst.pump.Prime(inst.primeWords)
	inst.sm.Restart()
	inst.sm.SetEnabled(true)
	return nil
}

// Read collects samples until buf is full or timeout expires, keeping TX fed
// meanwhile. The low 8 bits are cleared so every sample is valid wire format.
func (d *PIOI2SDriver) Read(instance core.I2SInstance, buf []int32, timeout time.Duration) (int, error) {
	inst, err := d.get(instance)
	if err != nil {
		return 0, err
	}

	n, err := inst.pump.Read(buf, timeout)
	for i := range buf[:n] {
		buf[i] &^= 0xFF
	}
	return n * core.SampleBytes, err
}

// Write queues samples until buf is queued or timeout expires, draining RX meanwhile
func (d *PIOI2SDriver) Write(instance core.I2SInstance, buf []int32, timeout time.Duration) (int, error) {
	inst, err := d.get(instance)
	if err != nil {
		return 0, err
	}

	n, err := inst.pump.Write(buf, timeout)
	return n * core.SampleBytes, err
}
