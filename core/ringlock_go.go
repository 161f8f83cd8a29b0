//go:build !tinygo

package core

import "sync"

// ringMu serialises transfer ring access when the host build shares the
// ring between goroutines (tests, host-side tools).
var ringMu sync.Mutex

type ringState struct{}

func lockRing() ringState {
	ringMu.Lock()
	return ringState{}
}

func unlockRing(ringState) {
	ringMu.Unlock()
}
