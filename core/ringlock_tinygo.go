//go:build tinygo

package core

import "runtime/interrupt"

type ringState = interrupt.State

// lockRing masks interrupts so an ISR-side dump never sees a half-written event
func lockRing() ringState {
	return interrupt.Disable()
}

func unlockRing(state ringState) {
	interrupt.Restore(state)
}
