package protocol

// OutputBuffer provides an abstraction for writing outgoing protocol data
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Data returns available data as a slice
// When wrapped, this copies data into a contiguous slice for frame parsing
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	avail := f.Available()
	result := make([]byte, avail)

	firstLen := f.size - f.read
	copy(result, f.buf[f.read:])
	copy(result[firstLen:], f.buf[:f.write])

	return result
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
