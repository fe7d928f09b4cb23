package controller

import "sync/atomic"

// ShutdownFlag is a single switch a container shares across every
// controller it owns. Flipping it once (Set) makes every controller's
// SetMode reject any mode but REMOVE, without each controller needing a
// reference back to the container that owns it. The zero value is unset,
// and a nil *ShutdownFlag (the default for a controller built without one
// wired in) behaves as permanently unset.
type ShutdownFlag struct {
	flag atomic.Bool
}

// Set flips the flag. Idempotent.
func (f *ShutdownFlag) Set() {
	f.flag.Store(true)
}

// IsSet reports whether Set has been called. Safe to call on a nil
// receiver.
func (f *ShutdownFlag) IsSet() bool {
	if f == nil {
		return false
	}
	return f.flag.Load()
}
