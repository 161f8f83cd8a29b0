package protocol

import "errors"

var (
	ErrFrameIncomplete = errors.New("incomplete block frame")
	ErrFrameCorrupt    = errors.New("corrupt block frame")
	ErrFrameCRC        = errors.New("block frame CRC mismatch")
	ErrFrameShape      = errors.New("sample count is not a multiple of channels")
	ErrFrameTooLarge   = errors.New("block frame exceeds FrameMax")
)

// BlockFrame is one decoded audio block
type BlockFrame struct {
	Seq      uint8
	Channels int
	Samples  []int32 // Wire format, interleaved
}

// Frames returns the number of frames (samples per channel) in the block
func (f *BlockFrame) Frames() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// BlockFrameSize returns the encoded size of a block with the given shape
func BlockFrameSize(channels, samples int) int {
	payload := blockPayloadSize(channels, samples)
	return FrameHeaderMin - 1 + VLQSize(int32(payload)) + payload + FrameTrailer
}

func blockPayloadSize(channels, samples int) int {
	frames := 0
	if channels > 0 {
		frames = samples / channels
	}
	return VLQSize(int32(channels)) + VLQSize(int32(frames)) + samples*PackedSampleBytes
}

// EncodeBlockFrame writes one frame carrying interleaved wire samples to output
func EncodeBlockFrame(output OutputBuffer, seq uint8, channels int, samples []int32) error {
	if channels < 1 || len(samples)%channels != 0 {
		return ErrFrameShape
	}
	if BlockFrameSize(channels, len(samples)) > FrameMax {
		return ErrFrameTooLarge
	}

	start := output.CurPosition()
	output.Output([]byte{FrameSync, seq})
	EncodeVLQUint(output, uint32(blockPayloadSize(channels, len(samples))))
	EncodeVLQUint(output, uint32(channels))
	EncodeVLQUint(output, uint32(len(samples)/channels))

	var packed [PackedSampleBytes]byte
	for _, s := range samples {
		packed[0] = byte(s >> 24)
		packed[1] = byte(s >> 16)
		packed[2] = byte(s >> 8)
		output.Output(packed[:])
	}

	crc := CRC16(output.DataSince(start + 1))
	output.Output([]byte{byte(crc >> 8), byte(crc & 0xFF), FrameSync})
	return nil
}

// DecodeBlockFrame parses one frame at the start of data.
// Returns the frame and the number of bytes consumed. ErrFrameIncomplete
// means data holds a plausible frame prefix and more bytes are needed.
func DecodeBlockFrame(data []byte) (*BlockFrame, int, error) {
	if len(data) < FrameHeaderMin {
		return nil, 0, ErrFrameIncomplete
	}
	if data[0] != FrameSync {
		return nil, 0, ErrFrameCorrupt
	}
	seq := data[1]

	rest := data[2:]
	payloadLen, err := DecodeVLQUint(&rest)
	if err == ErrBufferTooSmall {
		return nil, 0, ErrFrameIncomplete
	}
	if err != nil || payloadLen > FrameMax {
		return nil, 0, ErrFrameCorrupt
	}

	headerLen := len(data) - len(rest)
	total := headerLen + int(payloadLen) + FrameTrailer
	if total > FrameMax {
		return nil, 0, ErrFrameCorrupt
	}
	if len(data) < total {
		return nil, 0, ErrFrameIncomplete
	}
	if data[total-1] != FrameSync {
		return nil, 0, ErrFrameCorrupt
	}

	crcPos := total - FrameTrailer
	frameCRC := uint16(data[crcPos])<<8 | uint16(data[crcPos+1])
	if frameCRC != CRC16(data[1:crcPos]) {
		return nil, 0, ErrFrameCRC
	}

	payload := data[headerLen:crcPos]
	channels, err := DecodeVLQUint(&payload)
	if err != nil || channels < 1 {
		return nil, 0, ErrFrameCorrupt
	}
	frames, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, 0, ErrFrameCorrupt
	}
	count := int(channels) * int(frames)
	if len(payload) != count*PackedSampleBytes {
		return nil, 0, ErrFrameCorrupt
	}

	samples := make([]int32, count)
	for i := range samples {
		p := payload[i*PackedSampleBytes:]
		samples[i] = int32(uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8)
	}

	return &BlockFrame{Seq: seq, Channels: int(channels), Samples: samples}, total, nil
}

// FrameHandler is called for every complete frame
type FrameHandler func(frame *BlockFrame)

// FrameDecoder reassembles frames from an arbitrary chunked byte stream,
// resynchronising on the sync byte after garbage or corruption.
type FrameDecoder struct {
	fifo    *FifoBuffer
	handler FrameHandler

	Frames    uint32 // Frames delivered
	Discarded uint32 // Bytes dropped while searching for sync
	Errors    uint32 // Corrupt or CRC-failed frame candidates
}

// NewFrameDecoder creates a decoder that calls handler for each frame
func NewFrameDecoder(handler FrameHandler) *FrameDecoder {
	return &FrameDecoder{
		fifo:    NewFifoBuffer(2*FrameMax + 1),
		handler: handler,
	}
}

// Write feeds received bytes to the decoder. It never fails; the
// io.Writer signature lets it sit behind io.Copy.
func (d *FrameDecoder) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := d.fifo.Write(p)
		p = p[n:]
		d.process()
	}
	return total, nil
}

// Reset drops any partially received frame
func (d *FrameDecoder) Reset() {
	d.fifo.Reset()
}

func (d *FrameDecoder) process() {
	for !d.fifo.IsEmpty() {
		data := d.fifo.Data()

		if data[0] != FrameSync {
			// Skip garbage up to the next sync byte
			skip := len(data)
			for i, b := range data {
				if b == FrameSync {
					skip = i
					break
				}
			}
			d.fifo.Pop(skip)
			d.Discarded += uint32(skip)
			continue
		}

		frame, n, err := DecodeBlockFrame(data)
		switch err {
		case nil:
			d.fifo.Pop(n)
			d.Frames++
			if d.handler != nil {
				d.handler(frame)
			}
		case ErrFrameIncomplete:
			return
		default:
			// Not a frame start after all; resync from the next byte
			d.fifo.Pop(1)
			d.Discarded++
			d.Errors++
		}
	}
}
