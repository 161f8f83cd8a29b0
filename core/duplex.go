package core

import "time"

// DuplexFIFO is the word-level view of a serial-audio engine whose transmit
// and receive sides shift in lockstep. Such an engine stops both directions
// when its TX FIFO runs dry or its RX FIFO fills.
type DuplexFIFO interface {
	TxFull() bool
	TxPut(word uint32)
	RxEmpty() bool
	RxGet() uint32
}

// DuplexPump keeps both FIFOs of a DuplexFIFO moving during every transfer.
// Read tops up TX (queued samples, else silence) while it waits for input,
// and Write drains RX into a ring while it queues output, so a caller that
// alternates blocking reads and writes never stalls the engine.
//
// The pump only runs inside Read and Write; time spent elsewhere is covered
// by the hardware FIFO depth alone.
type DuplexPump struct {
	fifo DuplexFIFO

	tx            []uint32
	txHead, txLen int
	rx            []uint32
	rxHead, rxLen int

	Underruns uint32 // Silence words sent because no output was queued
	Overruns  uint32 // Input words dropped because the RX ring was full
}

// NewDuplexPump creates a pump with rings of ringWords words per direction
func NewDuplexPump(fifo DuplexFIFO, ringWords int) *DuplexPump {
	if ringWords < 1 {
		ringWords = 1
	}
	return &DuplexPump{
		fifo: fifo,
		tx:   make([]uint32, ringWords),
		rx:   make([]uint32, ringWords),
	}
}

// Reset drops everything queued in both rings and clears the counters
func (p *DuplexPump) Reset() {
	p.txHead, p.txLen = 0, 0
	p.rxHead, p.rxLen = 0, 0
	p.Underruns = 0
	p.Overruns = 0
}

// Prime queues words of silence ahead of any output. Starting with a
// cushion keeps TX fed while the caller converts a block between transfers.
// Returns the number of words actually queued.
func (p *DuplexPump) Prime(words int) int {
	n := 0
	for ; n < words && p.txLen < len(p.tx); n++ {
		p.tx[(p.txHead+p.txLen)%len(p.tx)] = 0
		p.txLen++
	}
	return n
}

// Queued returns the number of output words waiting in the TX ring
func (p *DuplexPump) Queued() int { return p.txLen }

// Buffered returns the number of input words waiting in the RX ring
func (p *DuplexPump) Buffered() int { return p.rxLen }

// service moves as many words as the FIFOs accept without blocking
func (p *DuplexPump) service() {
	for !p.fifo.RxEmpty() {
		w := p.fifo.RxGet()
		if p.rxLen == len(p.rx) {
			// Oldest input goes first
			p.rxHead = (p.rxHead + 1) % len(p.rx)
			p.rxLen--
			p.Overruns++
		}
		p.rx[(p.rxHead+p.rxLen)%len(p.rx)] = w
		p.rxLen++
	}

	for !p.fifo.TxFull() {
		var w uint32
		if p.txLen > 0 {
			w = p.tx[p.txHead]
			p.txHead = (p.txHead + 1) % len(p.tx)
			p.txLen--
		} else {
			p.Underruns++
		}
		p.fifo.TxPut(w)
	}
}

// Read fills buf with received words until it is full or timeout expires.
// Returns the number of samples delivered.
func (p *DuplexPump) Read(buf []int32, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for i := range buf {
		for p.rxLen == 0 {
			p.service()
			if p.rxLen > 0 {
				break
			}
			if time.Now().After(deadline) {
				return i, ErrTimeout
			}
		}
		buf[i] = int32(p.rx[p.rxHead])
		p.rxHead = (p.rxHead + 1) % len(p.rx)
		p.rxLen--
	}
	p.service()
	return len(buf), nil
}

// Write queues buf for transmission until it is all queued or timeout expires.
// Returns the number of samples queued.
func (p *DuplexPump) Write(buf []int32, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for i, s := range buf {
		for p.txLen == len(p.tx) {
			p.service()
			if p.txLen < len(p.tx) {
				break
			}
			if time.Now().After(deadline) {
				return i, ErrTimeout
			}
		}
		p.tx[(p.txHead+p.txLen)%len(p.tx)] = uint32(s)
		p.txLen++
	}
	p.service()
	return len(buf), nil
}
