// Package core implements the block-oriented audio stream between the MCU and
// an external I2S codec: hardware bring-up, blocking block transfer and
// sample format conversion. Hardware access goes through the HAL interfaces
// registered by target code.
package core

import (
	"errors"
	"time"
)

const (
	BufferSize       = 64  // Frames per block
	SampleBytes      = 4   // Wire sample container size
	BitsPerSample    = 24  // Effective sample width
	DefaultMCLKRatio = 384 // MCLK/fs for the codec's strapped mode
	DMABufCount      = 2   // Descriptor ring depth

	SettleDelay     = 500 * time.Millisecond // Clock/codec stabilisation after bring-up
	TransferTimeout = 500 * time.Millisecond // Bound on each block transfer
)

var ErrNotConfigured = errors.New("i2s stream not configured")

// StreamConfig holds the logical stream parameters supplied at setup time
type StreamConfig struct {
	SampleRate uint32  // Hz
	Channels   int     // Samples per frame, at least 1
	Instance   int     // Hardware instance, clamped to [0, I2SInstanceMax]
	Pins       I2SPins // Clock and data lines
	EnablePin  GPIOPin // Codec power-down (active low) line

	// MCLKRatio is the master clock multiple of the sample rate. It depends
	// on the codec's CKS strapping, which cannot be read back; 0 selects
	// DefaultMCLKRatio.
	MCLKRatio uint32
}

// DefaultStreamConfig returns a 48 kHz stereo configuration with no pins assigned
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: 48000,
		Channels:   2,
		MCLKRatio:  DefaultMCLKRatio,
	}
}

// applyDefaults fills in missing configuration values
func (c *StreamConfig) applyDefaults() {
	if c.MCLKRatio == 0 {
		c.MCLKRatio = DefaultMCLKRatio
	}
	if c.Channels < 1 {
		c.Channels = 1
	}
}

// clampInstance maps any selector onto a valid instance without failing
func clampInstance(n int) I2SInstance {
	if n < 0 {
		return 0
	}
	if n > int(I2SInstanceMax) {
		return I2SInstanceMax
	}
	return I2SInstance(n)
}

// Stream owns one full-duplex I2S block stream and its two sample buffers.
// It is not safe for concurrent use; one goroutine should drive both
// ReadBlock and WriteBlock once per block period.
type Stream struct {
	sampleRate uint32
	channels   int
	instance   I2SInstance
	enablePin  GPIOPin
	mclk       uint32
	configured bool

	readBuf  []int32
	writeBuf []int32
}

// NewStream creates an unconfigured stream
func NewStream() *Stream {
	return &Stream{}
}

// Configure brings up the transport and allocates the block buffers.
// It is meant to run once per stream lifetime: calling it again reinstalls
// the driver, which the underlying hardware may not tolerate.
func (s *Stream) Configure(cfg StreamConfig) SetupResult {
	cfg.applyDefaults()

	if s.configured {
		Diagnostic("I2S reconfigure on instance " + itoa(int(s.instance)))
		RecordTransfer(EvtReconfig, s.instance, 0, 0, false)
	}

	s.sampleRate = cfg.SampleRate
	s.channels = cfg.Channels
	s.instance = clampInstance(cfg.Instance)

	// Hold the codec in power-down until the caller enables it
	s.enablePin = cfg.EnablePin
	gpio := MustGPIO()
	if err := gpio.ConfigureOutput(s.enablePin); err != nil {
		Diagnostic("I2S enable pin config error: " + err.Error())
	}
	if err := gpio.SetPin(s.enablePin, false); err != nil {
		Diagnostic("I2S enable pin write error: " + err.Error())
	}

	s.mclk = cfg.SampleRate * cfg.MCLKRatio

	var result SetupResult
	drv := MustI2S()

	result.record(StepInstall, drv.Install(I2SInstallConfig{
		Instance:        s.instance,
		Mode:            I2SModeMaster | I2SModeRX | I2SModeTX,
		SampleRate:      s.sampleRate,
		BitsPerSample:   BitsPerSample,
		Channels:        s.channels,
		ChannelFormat:   I2SChannelRightLeft,
		CommFormat:      I2SCommFormatI2S | I2SCommFormatMSB,
		InterruptLevel:  I2SInterruptLevel1,
		DMABufCount:     DMABufCount,
		DMABufLen:       BufferSize,
		UseAPLL:         true,
		TxDescAutoClear: true,
		FixedMCLK:       s.mclk,
	}))
	result.record(StepPins, drv.SetPins(s.instance, cfg.Pins))
	result.record(StepSampleRate, drv.SetSampleRate(s.instance, s.sampleRate))
	result.record(StepZeroBuffer, drv.ZeroDMABuffer(s.instance))
	result.record(StepMasterClock, MustClockRouter().RouteMasterClock(s.mclk))

	// wait for stable clock
	sleep(SettleDelay)

	size := s.channels * BufferSize
	s.readBuf = make([]int32, size)
	s.writeBuf = make([]int32, size)
	s.configured = true

	if !result.OK() {
		Diagnostic(result.Err().Error())
	}
	DebugPrintln("I2S configured: fs=" + utoa(s.sampleRate) +
		" ch=" + itoa(s.channels) +
		" mclk=" + utoa(s.mclk))

	return result
}

// SetEnabled drives the codec enable line. It does not check that the codec
// responded and always reports true. Before Configure there is no enable pin,
// so nothing is driven.
func (s *Stream) SetEnabled(on bool) bool {
	if !s.configured {
		return true
	}
	_ = MustGPIO().SetPin(s.enablePin, on)
	return true
}

// ReadBlock reads one block into the read buffer.
// A failed or short read leaves the undelivered tail stale; it is reported
// through Diagnostic and the driver's result is returned unchanged.
func (s *Stream) ReadBlock() (int, error) {
	if !s.configured {
		return 0, ErrNotConfigured
	}

	want := len(s.readBuf) * SampleBytes
	n, err := MustI2S().Read(s.instance, s.readBuf, TransferTimeout)
	if err != nil || n < want {
		Diagnostic("I2S read error: " + itoa(n))
		RecordTransfer(EvtReadShort, s.instance, uint32(want), uint32(n), err != nil)
	}
	return n, err
}

// WriteBlock writes the write buffer as one block.
// Only a write that accepted nothing is reported; partial writes pass
// through silently with the driver's result.
func (s *Stream) WriteBlock() (int, error) {
	if !s.configured {
		return 0, ErrNotConfigured
	}

	want := len(s.writeBuf) * SampleBytes
	n, err := MustI2S().Write(s.instance, s.writeBuf, TransferTimeout)
	if n < 1 {
		Diagnostic("I2S write error: " + itoa(n))
		RecordTransfer(EvtWriteEmpty, s.instance, uint32(want), uint32(n), err != nil)
	}
	return n, err
}

// ReadBuffer returns the buffer filled by ReadBlock. The stream keeps ownership.
func (s *Stream) ReadBuffer() []int32 {
	return s.readBuf
}

// WriteBuffer returns the buffer sent by WriteBlock. The stream keeps ownership.
func (s *Stream) WriteBuffer() []int32 {
	return s.writeBuf
}

// BlockBytes returns the byte length of one block transfer
func (s *Stream) BlockBytes() int {
	return s.channels * BufferSize * SampleBytes
}

func (s *Stream) SampleRate() uint32    { return s.sampleRate }
func (s *Stream) Channels() int         { return s.channels }
func (s *Stream) Instance() I2SInstance { return s.instance }
func (s *Stream) MasterClock() uint32   { return s.mclk }
func (s *Stream) Configured() bool      { return s.configured }
