// Package playback plays monitored samples on the host's default audio device.
// It accepts the same interleaved little-endian float32 stream the monitor
// dumps, so it can sit behind Monitor's dump writer.
package playback

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// BufferLatency is the device buffer requested from the audio backend
const BufferLatency = 100 * time.Millisecond

var ErrClosed = errors.New("playback closed")

// Player streams float32 samples to the default output device
type Player struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	sampleRate int
	channels   int
}

// Open creates the audio context and starts a player fed through a pipe.
// The backend allows one context per process, so Open should be called once.
func Open(sampleRate, channels int) (*Player, error) {
	if sampleRate <= 0 || channels < 1 {
		return nil, fmt.Errorf("invalid playback format %d Hz, %d channels", sampleRate, channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   BufferLatency,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	<-readyChan

	p := &Player{
		otoCtx:     ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}

	// Persistent player reading from the pipe
	p.pipeReader, p.pipeWriter = io.Pipe()
	p.player = ctx.NewPlayer(p.pipeReader)
	p.player.Play()

	return p, nil
}

// Write queues interleaved float32 LE samples. It blocks while the device
// buffer is full, which paces the caller at the playback rate.
func (p *Player) Write(b []byte) (int, error) {
	if p.pipeWriter == nil {
		return 0, ErrClosed
	}
	return p.pipeWriter.Write(b)
}

// Close stops playback and suspends the audio context
func (p *Player) Close() error {
	if p.pipeWriter != nil {
		p.pipeWriter.Close()
		p.pipeWriter = nil
	}
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
	if p.pipeReader != nil {
		p.pipeReader.Close()
		p.pipeReader = nil
	}
	if p.otoCtx != nil {
		return p.otoCtx.Suspend()
	}
	return nil
}

// Format returns the sample rate and channel count the device was opened with
func (p *Player) Format() (sampleRate, channels int) {
	return p.sampleRate, p.channels
}
