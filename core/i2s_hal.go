package core

import (
	"errors"
	"time"
)

// I2SInstance selects one of the hardware I2S peripherals
type I2SInstance uint8

// I2SInstanceMax is the highest valid instance number.
// Both supported parts expose two serial-audio capable blocks.
const I2SInstanceMax I2SInstance = 1

// I2SMode is a bit set describing the peripheral role and direction
type I2SMode uint8

const (
	I2SModeMaster I2SMode = 1 << 0
	I2SModeSlave  I2SMode = 1 << 1
	I2SModeTX     I2SMode = 1 << 2
	I2SModeRX     I2SMode = 1 << 3
)

// I2SChannelFormat describes how channels are laid out in a frame
type I2SChannelFormat uint8

const (
	I2SChannelRightLeft I2SChannelFormat = iota // all channels interleaved
	I2SChannelAllRight
	I2SChannelAllLeft
	I2SChannelOnlyRight
	I2SChannelOnlyLeft
)

// I2SCommFormat is a bit set describing the serial data format
type I2SCommFormat uint8

const (
	I2SCommFormatI2S I2SCommFormat = 1 << 0 // Philips framing, one BCLK delay
	I2SCommFormatMSB I2SCommFormat = 1 << 1 // MSB first, left justified
	I2SCommFormatLSB I2SCommFormat = 1 << 2
	I2SCommFormatPCM I2SCommFormat = 1 << 3
)

// I2SInterruptLevel selects the interrupt priority for the DMA completion handler
type I2SInterruptLevel uint8

const (
	I2SInterruptLevel1 I2SInterruptLevel = 1 // highest priority
	I2SInterruptLevel2 I2SInterruptLevel = 2
	I2SInterruptLevel3 I2SInterruptLevel = 3
)

// I2SInstallConfig carries everything the transport driver needs to bring up
// an instance. Field meanings follow the common MCU I2S driver model.
type I2SInstallConfig struct {
	Instance        I2SInstance
	Mode            I2SMode
	SampleRate      uint32 // Hz
	BitsPerSample   uint8
	Channels        int
	ChannelFormat   I2SChannelFormat
	CommFormat      I2SCommFormat
	InterruptLevel  I2SInterruptLevel
	DMABufCount     int    // Number of DMA descriptors in the ring
	DMABufLen       int    // Frames per DMA descriptor
	UseAPLL         bool   // Clock from the audio PLL
	TxDescAutoClear bool   // Zero the TX descriptor once it has been sent
	FixedMCLK       uint32 // Master clock rate in Hz
}

// I2SPins binds the transport's clock and data lines to GPIOs
type I2SPins struct {
	BitClock  GPIOPin // BCLK / SCK
	WordClock GPIOPin // LRCK / WS
	DataOut   GPIOPin // SDO, MCU to codec
	DataIn    GPIOPin // SDI, codec to MCU
}

// I2SDriver is the abstract serial-audio transport that core code uses.
// Platform-specific implementations own clock generation, pin muxing and the
// DMA (or FIFO) mechanics. Read and Write report bytes transferred, which may
// be short of len(buf)*SampleBytes on timeout.
type I2SDriver interface {
	// Install brings up the peripheral with the given configuration
	Install(cfg I2SInstallConfig) error

	// SetPins routes the clock and data lines
	SetPins(instance I2SInstance, pins I2SPins) error

	// SetSampleRate reprograms the frame clock
	SetSampleRate(instance I2SInstance, rate uint32) error

	// ZeroDMABuffer clears the driver's internal buffers so stream start is silent
	ZeroDMABuffer(instance I2SInstance) error

	// Read blocks until buf is full or timeout expires
	Read(instance I2SInstance, buf []int32, timeout time.Duration) (int, error)

	// Write blocks until buf is queued or timeout expires
	Write(instance I2SInstance, buf []int32, timeout time.Duration) (int, error)
}

var (
	ErrTimeout         = errors.New("i2s transfer timed out")
	ErrInvalidInstance = errors.New("invalid I2S instance")
)

// Global singleton used by core code.
var i2sDriver I2SDriver

// SetI2SDriver is called by target-specific code to register its driver.
func SetI2SDriver(d I2SDriver) {
	i2sDriver = d
}

// MustI2S returns the configured driver or panics if missing.
func MustI2S() I2SDriver {
	if i2sDriver == nil {
		panic("I2S driver not configured")
	}
	return i2sDriver
}
