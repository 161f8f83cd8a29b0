// Package monitor consumes block frames forwarded by the firmware and keeps
// running level and loss statistics. Samples go through the same codec the
// firmware uses, so the figures match what downstream processing sees.
package monitor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"i2saudio/core"
	"i2saudio/protocol"
)

// SilenceDB is reported for channels with no signal
const SilenceDB = -120.0

// ChannelLevel holds the levels of one channel over a report window
type ChannelLevel struct {
	PeakDB float64
	RMSDB  float64
}

// Report summarises the stream since the previous report
type Report struct {
	Blocks     uint32 // Blocks received in this window
	Lost       uint32 // Blocks missing according to sequence numbers, in this window
	Channels   int
	SampleRate uint32 // Estimated from frames received over the window, 0 if unknown
	Levels     []ChannelLevel
	Discarded  uint32 // Total bytes dropped by the frame decoder
	Errors     uint32 // Total corrupt frames
}

func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "blocks=%d lost=%d ch=%d", r.Blocks, r.Lost, r.Channels)
	if r.SampleRate > 0 {
		fmt.Fprintf(&sb, " fs~%d", r.SampleRate)
	}
	for i, l := range r.Levels {
		fmt.Fprintf(&sb, " [%d] peak=%.1fdB rms=%.1fdB", i, l.PeakDB, l.RMSDB)
	}
	if r.Discarded > 0 || r.Errors > 0 {
		fmt.Fprintf(&sb, " discarded=%d errors=%d", r.Discarded, r.Errors)
	}
	return sb.String()
}

// Monitor decodes frames and accumulates per-channel levels
type Monitor struct {
	dec  *protocol.FrameDecoder
	dump io.Writer

	channels int
	lastSeq  uint8
	haveSeq  bool

	blocks  uint32
	lost    uint32
	frames  uint64
	peak    []float32
	sumSq   []float64
	samples []float32
	since   time.Time
	dumpErr error
}

// New creates a Monitor. If dump is non-nil every decoded sample is written
// to it as little-endian float32, interleaved.
func New(dump io.Writer) *Monitor {
	m := &Monitor{dump: dump, since: time.Now()}
	m.dec = protocol.NewFrameDecoder(m.handleFrame)
	return m
}

// Write feeds raw serial bytes to the monitor
func (m *Monitor) Write(p []byte) (int, error) {
	n, _ := m.dec.Write(p)
	if m.dumpErr != nil {
		err := m.dumpErr
		m.dumpErr = nil
		return n, fmt.Errorf("dump samples: %w", err)
	}
	return n, nil
}

func (m *Monitor) handleFrame(f *protocol.BlockFrame) {
	if f.Channels != m.channels {
		// Shape change: restart level accumulation
		m.channels = f.Channels
		m.peak = make([]float32, f.Channels)
		m.sumSq = make([]float64, f.Channels)
		m.frames = 0
	}

	if m.haveSeq {
		m.lost += uint32(f.Seq - m.lastSeq - 1)
	}
	m.lastSeq = f.Seq
	m.haveSeq = true
	m.blocks++

	if cap(m.samples) < len(f.Samples) {
		m.samples = make([]float32, len(f.Samples))
	}
	samples := m.samples[:len(f.Samples)]
	core.DecodeBlock(samples, f.Samples)

	for i, x := range samples {
		ch := i % f.Channels
		a := x
		if a < 0 {
			a = -a
		}
		if a > m.peak[ch] {
			m.peak[ch] = a
		}
		m.sumSq[ch] += float64(x) * float64(x)
	}
	m.frames += uint64(f.Frames())

	if m.dump != nil && m.dumpErr == nil {
		m.dumpErr = binary.Write(m.dump, binary.LittleEndian, samples)
	}
}

// Snapshot returns the report for the current window and starts a new one
func (m *Monitor) Snapshot() Report {
	now := time.Now()
	r := Report{
		Blocks:    m.blocks,
		Lost:      m.lost,
		Channels:  m.channels,
		Levels:    make([]ChannelLevel, m.channels),
		Discarded: m.dec.Discarded,
		Errors:    m.dec.Errors,
	}

	if elapsed := now.Sub(m.since).Seconds(); elapsed > 0 && m.frames > 0 {
		r.SampleRate = uint32((float64(m.frames+uint64(m.lost)*uint64(core.BufferSize)) / elapsed) + 0.5)
	}

	for ch := 0; ch < m.channels; ch++ {
		r.Levels[ch].PeakDB = toDB(float64(m.peak[ch]))
		if m.frames > 0 {
			r.Levels[ch].RMSDB = toDB(math.Sqrt(m.sumSq[ch] / float64(m.frames)))
		} else {
			r.Levels[ch].RMSDB = SilenceDB
		}
		m.peak[ch] = 0
		m.sumSq[ch] = 0
	}

	m.blocks = 0
	m.lost = 0
	m.frames = 0
	m.since = now
	return r
}

func toDB(v float64) float64 {
	if v <= 0 {
		return SilenceDB
	}
	db := 20 * math.Log10(v)
	if db < SilenceDB {
		return SilenceDB
	}
	return db
}

// Run reads port until ctx is cancelled or the port fails, calling report
// every interval. io.EOF from the port is treated as a read timeout.
func (m *Monitor) Run(ctx context.Context, port io.Reader, interval time.Duration, report func(Report)) error {
	buf := make([]byte, 4096)
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := port.Read(buf)
		if n > 0 {
			if _, werr := m.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read port: %w", err)
		}

		if report != nil && time.Since(last) >= interval {
			report(m.Snapshot())
			last = time.Now()
		}
	}
}
