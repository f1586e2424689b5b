package compositor

import "github.com/damianoneill/compositor/sizing"

// FrameCacheCapacity returns the frame-cache capacity sized from the
// host's current free memory (see package sizing). Callers typically
// fold this into the params of the start Command passed to NewSupervisor,
// e.g. as a "frameCacheCapacity" field, since the compositor's own
// internal cache sizing is outside this package's contract.
func FrameCacheCapacity() int {
	return sizing.FrameCacheCapacity()
}
