package monitor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"i2saudio/core"
	"i2saudio/protocol"
)

func encodeBlock(t *testing.T, seq uint8, channels int, values []float32) []byte {
	t.Helper()
	wire := make([]int32, len(values))
	core.EncodeBlock(wire, values)

	output := protocol.NewScratchOutput()
	require.NoError(t, protocol.EncodeBlockFrame(output, seq, channels, wire))
	return append([]byte(nil), output.Result()...)
}

// stereoBlock builds a block with a constant level on the left and silence on the right
func stereoBlock(left float32) []float32 {
	values := make([]float32, 2*core.BufferSize)
	for i := 0; i < core.BufferSize; i++ {
		values[2*i] = left
		if i%2 == 1 {
			values[2*i] = -left
		}
	}
	return values
}

func TestMonitorLevels(t *testing.T) {
	m := New(nil)

	for seq := uint8(0); seq < 4; seq++ {
		_, err := m.Write(encodeBlock(t, seq, 2, stereoBlock(0.5)))
		require.NoError(t, err)
	}

	r := m.Snapshot()
	require.Equal(t, uint32(4), r.Blocks)
	require.Equal(t, uint32(0), r.Lost)
	require.Equal(t, 2, r.Channels)

	// 0.5 full scale is about -6.02 dBFS, peak and RMS alike for a square wave
	expected := 20 * math.Log10(0.5)
	require.InDelta(t, expected, r.Levels[0].PeakDB, 0.01)
	require.InDelta(t, expected, r.Levels[0].RMSDB, 0.01)
	require.Equal(t, SilenceDB, r.Levels[1].PeakDB)
	require.Equal(t, SilenceDB, r.Levels[1].RMSDB)
	t.Logf("Report: %v", r)

	// Window resets after a snapshot
	r = m.Snapshot()
	require.Equal(t, uint32(0), r.Blocks)
	require.Equal(t, SilenceDB, r.Levels[0].PeakDB)
}

func TestMonitorSequenceGaps(t *testing.T) {
	m := New(nil)

	for _, seq := range []uint8{250, 251, 254, 255, 0, 1, 3} {
		m.Write(encodeBlock(t, seq, 2, stereoBlock(0.1)))
	}

	r := m.Snapshot()
	require.Equal(t, uint32(7), r.Blocks)
	// 252, 253 and 2 are missing; 255 -> 0 is a plain wrap
	require.Equal(t, uint32(3), r.Lost)
}

func TestMonitorChannelChange(t *testing.T) {
	m := New(nil)

	m.Write(encodeBlock(t, 0, 2, stereoBlock(0.5)))
	m.Write(encodeBlock(t, 1, 1, make([]float32, core.BufferSize)))

	r := m.Snapshot()
	require.Equal(t, 1, r.Channels)
	require.Len(t, r.Levels, 1)
	require.Equal(t, SilenceDB, r.Levels[0].PeakDB)
}

func TestMonitorDump(t *testing.T) {
	var dump bytes.Buffer
	m := New(&dump)

	values := stereoBlock(0.25)
	m.Write(encodeBlock(t, 0, 2, values))
	require.Equal(t, len(values)*4, dump.Len())

	got := make([]float32, len(values))
	require.NoError(t, binary.Read(&dump, binary.LittleEndian, got))
	for i, x := range values {
		require.Equal(t, core.ToFloat(core.ToWire(x)), got[i], "sample %d", i)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestMonitorDumpError(t *testing.T) {
	m := New(failingWriter{})
	_, err := m.Write(encodeBlock(t, 0, 2, stereoBlock(0.1)))
	require.Error(t, err)
}

func TestMonitorRun(t *testing.T) {
	pr, pw := io.Pipe()
	errPortClosed := errors.New("port closed")

	var frames [][]byte
	for seq := uint8(0); seq < 3; seq++ {
		frames = append(frames, encodeBlock(t, seq, 2, stereoBlock(0.5)))
	}

	go func() {
		for _, f := range frames {
			pw.Write(f)
		}
		pw.CloseWithError(errPortClosed)
	}()

	var reports []Report
	m := New(nil)
	err := m.Run(context.Background(), pr, 0, func(r Report) { reports = append(reports, r) })
	require.ErrorIs(t, err, errPortClosed)

	var blocks uint32
	for _, r := range reports {
		blocks += r.Blocks
	}
	blocks += m.Snapshot().Blocks
	require.Equal(t, uint32(3), blocks)
}

func TestMonitorRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(nil)
	err := m.Run(ctx, bytes.NewReader(nil), time.Second, nil)
	require.ErrorIs(t, err, context.Canceled)
}
