// Package protocol implements the block frame format used to forward captured
// audio blocks from the firmware to a host over USB serial.
//
// Frame layout:
//
//	sync(0x7E) seq len(VLQ) | channels(VLQ) frames(VLQ) samples(3 bytes each, big endian) | crc16 sync(0x7E)
//
// The CRC covers seq, len and the payload. Samples carry the upper 24 bits of
// the 32-bit wire word; the zero padding byte is dropped.
package protocol

// Version represents the frame format version
const Version = "1"

// Frame constants
const (
	FrameMax          = 2048 // Maximum encoded frame size
	FrameSync         = 0x7E
	FrameHeaderMin    = 3 // sync + seq + one byte length
	FrameTrailer      = 3 // crc16 + sync
	PackedSampleBytes = 3

	// MessageMax sizes ScratchOutput so it can hold one full frame
	MessageMax = FrameMax
)
