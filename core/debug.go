package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TransferEvent captures a failed or short transfer for post-mortem analysis
type TransferEvent struct {
	Kind        uint8       // Event kind code
	Instance    I2SInstance // I2S instance the transfer ran on
	Requested   uint32      // Bytes requested
	Transferred uint32      // Bytes the driver reported
	Failed      bool        // Driver returned an error
}

// Event kind codes
const (
	EvtReadShort  = 1 // read returned an error or fewer bytes than requested
	EvtWriteEmpty = 2 // write accepted zero bytes
	EvtReconfig   = 3 // Configure called on an already configured stream
)

const (
	TransferRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	transferRing     [TransferRingSize]TransferEvent
	transferRingHead uint8
	transferCount    uint32
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables verbose debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a verbose message if debug output is enabled
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// Diagnostic writes a message unconditionally and synchronously.
// Used for transfer errors, which happen at most once per block period.
func Diagnostic(msg string) {
	if debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTransfer captures a transfer event in the ring buffer
func RecordTransfer(kind uint8, instance I2SInstance, requested, transferred uint32, failed bool) {
	state := lockRing()
	defer unlockRing(state)

	idx := transferRingHead
	transferRing[idx] = TransferEvent{
		Kind:        kind,
		Instance:    instance,
		Requested:   requested,
		Transferred: transferred,
		Failed:      failed,
	}
	transferRingHead = (idx + 1) % TransferRingSize
	transferCount++
}

// TransferEvents returns the recorded events, oldest first
func TransferEvents() []TransferEvent {
	state := lockRing()
	defer unlockRing(state)

	events := make([]TransferEvent, 0, TransferRingSize)
	start := transferRingHead
	for i := uint8(0); i < TransferRingSize; i++ {
		evt := transferRing[(start+i)%TransferRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// TransferEventCount returns the number of events recorded since the last clear,
// including those already overwritten in the ring
func TransferEventCount() uint32 {
	return transferCount
}

// DumpTransferRing outputs the transfer ring buffer (call on shutdown/error)
func DumpTransferRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[I2S] === Transfer Ring Dump ===")
	debugPrintln("[I2S] Total events: " + utoa(transferCount))

	for _, evt := range TransferEvents() {
		var name string
		switch evt.Kind {
		case EvtReadShort:
			name = "READ_SHORT"
		case EvtWriteEmpty:
			name = "WRITE_EMPTY"
		case EvtReconfig:
			name = "RECONFIG"
		default:
			name = "UNKNOWN"
		}

		line := "[I2S] " + name +
			" inst=" + itoa(int(evt.Instance)) +
			" req=" + utoa(evt.Requested) +
			" got=" + utoa(evt.Transferred)
		if evt.Failed {
			line += " err"
		}
		debugPrintln(line)
	}
	debugPrintln("[I2S] === End Dump ===")
}

// ClearTransferRing clears the transfer buffer
func ClearTransferRing() {
	state := lockRing()
	defer unlockRing(state)

	for i := range transferRing {
		transferRing[i] = TransferEvent{}
	}
	transferRingHead = 0
	transferCount = 0
}
