package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt encodes a signed integer to VLQ format.
// Values in [-32, 96) take one byte; each further byte adds 7 bits.
func EncodeVLQInt(output OutputBuffer, v int32) {
	// Check ranges and output bytes from most significant to least
	if !(-(1<<26) <= v && v < (3<<26)) {
		output.Output([]byte{byte((v>>28)&0x7F) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		output.Output([]byte{byte((v>>21)&0x7F) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		output.Output([]byte{byte((v>>14)&0x7F) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		output.Output([]byte{byte((v>>7)&0x7F) | 0x80})
	}
	output.Output([]byte{byte(v & 0x7F)})
}

// EncodeVLQUint encodes an unsigned integer to VLQ format
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// VLQSize returns the number of bytes EncodeVLQInt produces for v
func VLQSize(v int32) int {
	n := 1
	if !(-(1<<26) <= v && v < (3<<26)) {
		n++
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		n++
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		n++
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		n++
	}
	return n
}

// DecodeVLQInt decodes a VLQ signed integer from the data slice
// The data slice is advanced past the consumed bytes
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	// Sign extension for negative numbers
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F)
	}

	// Read continuation bytes, at most five bytes in total
	for i := 0; c&0x80 != 0; i++ {
		if i == 4 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}
