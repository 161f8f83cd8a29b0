package core

import "time"

// ClockRouter puts the codec master clock onto the board's clock-output pin.
// This is a board-level mux setting, independent of the I2S instance.
type ClockRouter interface {
	RouteMasterClock(rateHz uint32) error
}

// Global singleton used by core code.
var clockRouter ClockRouter

// SetClockRouter is called by target-specific code to register its router.
func SetClockRouter(r ClockRouter) {
	clockRouter = r
}

// MustClockRouter returns the configured router or panics if missing.
func MustClockRouter() ClockRouter {
	if clockRouter == nil {
		panic("clock router not configured")
	}
	return clockRouter
}

// sleep blocks for the settle delay. Replaced in tests.
var sleep = time.Sleep
