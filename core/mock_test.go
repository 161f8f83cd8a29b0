package core

import (
	"time"
)

// mockI2SDriver records every call and plays back canned transfer results
type mockI2SDriver struct {
	installs    []I2SInstallConfig
	pinCalls    []I2SInstance
	pins        I2SPins
	rateCalls   []uint32
	zeroCalls   int
	installErr  error
	pinsErr     error
	rateErr     error
	zeroErr     error
	readLens    []int
	writeLens   []int
	timeouts    []time.Duration
	readSamples int // samples delivered per read, -1 for all
	readErr     error
	readFill    int32
	writeBytes  int // bytes reported per write, -1 for all
	writeErr    error
	lastWritten []int32
}

func newMockI2SDriver() *mockI2SDriver {
	return &mockI2SDriver{readSamples: -1, writeBytes: -1, readFill: 0x123400}
}

func (m *mockI2SDriver) Install(cfg I2SInstallConfig) error {
	m.installs = append(m.installs, cfg)
	return m.installErr
}

func (m *mockI2SDriver) SetPins(instance I2SInstance, pins I2SPins) error {
	m.pinCalls = append(m.pinCalls, instance)
	m.pins = pins
	return m.pinsErr
}

func (m *mockI2SDriver) SetSampleRate(instance I2SInstance, rate uint32) error {
	m.rateCalls = append(m.rateCalls, rate)
	return m.rateErr
}

func (m *mockI2SDriver) ZeroDMABuffer(instance I2SInstance) error {
	m.zeroCalls++
	return m.zeroErr
}

func (m *mockI2SDriver) Read(instance I2SInstance, buf []int32, timeout time.Duration) (int, error) {
	m.readLens = append(m.readLens, len(buf)*SampleBytes)
	m.timeouts = append(m.timeouts, timeout)
	n := len(buf)
	if m.readSamples >= 0 && m.readSamples < n {
		n = m.readSamples
	}
	for i := 0; i < n; i++ {
		buf[i] = m.readFill
	}
	return n * SampleBytes, m.readErr
}

func (m *mockI2SDriver) Write(instance I2SInstance, buf []int32, timeout time.Duration) (int, error) {
	m.writeLens = append(m.writeLens, len(buf)*SampleBytes)
	m.timeouts = append(m.timeouts, timeout)
	m.lastWritten = append(m.lastWritten[:0], buf...)
	if m.writeBytes >= 0 {
		return m.writeBytes, m.writeErr
	}
	return len(buf) * SampleBytes, m.writeErr
}

// mockGPIODriver is a test implementation of GPIODriver
type mockGPIODriver struct {
	outputs map[GPIOPin]bool
	pins    map[GPIOPin]bool
	writes  int
}

func newMockGPIODriver() *mockGPIODriver {
	return &mockGPIODriver{
		outputs: make(map[GPIOPin]bool),
		pins:    make(map[GPIOPin]bool),
	}
}

func (m *mockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.outputs[pin] = true
	return nil
}

func (m *mockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	m.writes++
	return nil
}

func (m *mockGPIODriver) GetPin(pin GPIOPin) (bool, error) {
	return m.pins[pin], nil
}

// mockClockRouter records the routed master clock rate
type mockClockRouter struct {
	rates []uint32
	err   error
}

func (m *mockClockRouter) RouteMasterClock(rateHz uint32) error {
	m.rates = append(m.rates, rateHz)
	return m.err
}

type mockHAL struct {
	i2s    *mockI2SDriver
	gpio   *mockGPIODriver
	clock  *mockClockRouter
	sleeps []time.Duration
	diag   []string
}

// setupMockHAL registers fresh mocks and captures sleeps and diagnostics
func setupMockHAL() *mockHAL {
	h := &mockHAL{
		i2s:   newMockI2SDriver(),
		gpio:  newMockGPIODriver(),
		clock: &mockClockRouter{},
	}
	SetI2SDriver(h.i2s)
	SetGPIODriver(h.gpio)
	SetClockRouter(h.clock)
	sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	SetDebugWriter(func(s string) { h.diag = append(h.diag, s) })
	SetDebugEnabled(false)
	ClearTransferRing()
	return h
}

func testStreamConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Pins = I2SPins{BitClock: 18, WordClock: 19, DataOut: 20, DataIn: 22}
	cfg.EnablePin = 15
	return cfg
}
