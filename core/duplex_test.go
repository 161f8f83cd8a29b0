package core

import (
	"testing"
	"time"
)

const (
	fakeFIFODepth  = 4
	pollsPerWord   = 8 // CPU polls per word slot shifted by the engine
	testBlockWords = 2 * BufferSize
)

// lockstepFIFO models a full-duplex engine with 4-deep FIFOs that shifts one
// word each way per slot and stalls both ways when TX is empty or RX is full.
type lockstepFIFO struct {
	tx, rx  []uint32
	sent    []uint32
	nextIn  uint32
	polls   int
	stalls  int
	stopped bool
}

func (f *lockstepFIFO) tick() {
	f.polls++
	if f.stopped || f.polls%pollsPerWord != 0 {
		return
	}
	if len(f.tx) == 0 || len(f.rx) == fakeFIFODepth {
		f.stalls++
		return
	}
	f.sent = append(f.sent, f.tx[0])
	f.tx = f.tx[1:]
	f.nextIn++
	f.rx = append(f.rx, f.nextIn<<8)
}

func (f *lockstepFIFO) TxFull() bool {
	f.tick()
	return len(f.tx) >= fakeFIFODepth
}

func (f *lockstepFIFO) TxPut(word uint32) {
	f.tx = append(f.tx, word)
}

func (f *lockstepFIFO) RxEmpty() bool {
	f.tick()
	return len(f.rx) == 0
}

func (f *lockstepFIFO) RxGet() uint32 {
	w := f.rx[0]
	f.rx = f.rx[1:]
	return w
}

func TestDuplexPumpAlternatingBlocks(t *testing.T) {
	fifo := &lockstepFIFO{}
	prime := DMABufCount * testBlockWords
	pump := NewDuplexPump(fifo, prime+testBlockWords+fakeFIFODepth)
	if got := pump.Prime(prime); got != prime {
		t.Fatalf("Expected %d primed words, got %d", prime, got)
	}

	const iterations = 10
	in := make([]int32, testBlockWords)
	out := make([]int32, testBlockWords)
	var expectIn uint32
	var written []uint32

	for it := 0; it < iterations; it++ {
		n, err := pump.Read(in, 50*time.Millisecond)
		if err != nil || n != len(in) {
			t.Fatalf("Iteration %d: read %d samples, err %v", it, n, err)
		}
		for i, s := range in {
			expectIn++
			if uint32(s) != expectIn<<8 {
				t.Fatalf("Iteration %d sample %d: got %#x, expected %#x", it, i, uint32(s), expectIn<<8)
			}
		}

		for i := range out {
			out[i] = int32(uint32(it*testBlockWords+i+1) << 8)
			written = append(written, uint32(out[i]))
		}
		n, err = pump.Write(out, 50*time.Millisecond)
		if err != nil || n != len(out) {
			t.Fatalf("Iteration %d: wrote %d samples, err %v", it, n, err)
		}
	}

	if pump.Underruns != 0 || pump.Overruns != 0 {
		t.Errorf("Expected no underruns/overruns, got %d/%d", pump.Underruns, pump.Overruns)
	}
	if fifo.stalls != 0 {
		t.Errorf("Engine stalled %d times", fifo.stalls)
	}

	// Output leaves after the primed silence, in order, with nothing dropped
	var data []uint32
	for i, w := range fifo.sent {
		if w == 0 {
			if len(data) > 0 {
				t.Fatalf("Silence inside the output stream at word %d", i)
			}
			continue
		}
		data = append(data, w)
	}
	if len(data) < (iterations-3)*testBlockWords {
		t.Fatalf("Only %d output words reached the engine", len(data))
	}
	for i, w := range data {
		if w != written[i] {
			t.Fatalf("Output word %d: got %#x, expected %#x", i, w, written[i])
		}
	}
	t.Logf("Sent %d words (%d data), engine stalls %d", len(fifo.sent), len(data), fifo.stalls)
}

func TestDuplexPumpUnprimedUnderruns(t *testing.T) {
	fifo := &lockstepFIFO{}
	pump := NewDuplexPump(fifo, 64)

	buf := make([]int32, 16)
	if n, err := pump.Read(buf, 50*time.Millisecond); err != nil || n != 16 {
		t.Fatalf("Read %d samples, err %v", n, err)
	}
	// Nothing was queued, so the engine ran on silence
	if pump.Underruns == 0 {
		t.Error("Expected underruns with nothing queued")
	}
}

func TestDuplexPumpReadTimeout(t *testing.T) {
	fifo := &lockstepFIFO{stopped: true}
	pump := NewDuplexPump(fifo, 64)

	buf := make([]int32, 8)
	n, err := pump.Read(buf, 5*time.Millisecond)
	if err != ErrTimeout || n != 0 {
		t.Errorf("Expected (0, ErrTimeout), got (%d, %v)", n, err)
	}
}

func TestDuplexPumpWriteBackpressure(t *testing.T) {
	fifo := &lockstepFIFO{stopped: true}
	pump := NewDuplexPump(fifo, 8)

	buf := make([]int32, 20)
	n, err := pump.Write(buf, 5*time.Millisecond)
	if err != ErrTimeout {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
	// Ring plus the hardware FIFO absorb the first words
	if n != 8+fakeFIFODepth {
		t.Errorf("Expected %d samples queued, got %d", 8+fakeFIFODepth, n)
	}
}

func TestDuplexPumpReset(t *testing.T) {
	pump := NewDuplexPump(&lockstepFIFO{stopped: true}, 16)
	pump.Prime(10)
	pump.Underruns = 3
	pump.Reset()
	if pump.Queued() != 0 || pump.Buffered() != 0 || pump.Underruns != 0 {
		t.Errorf("Reset left state: queued=%d buffered=%d underruns=%d", pump.Queued(), pump.Buffered(), pump.Underruns)
	}
	if got := pump.Prime(100); got != 16 {
		t.Errorf("Prime should stop at ring capacity, got %d", got)
	}
}
