// Package sizing derives the compositor child's internal frame-cache
// capacity from the amount of free physical memory on the host.
package sizing

import "github.com/pbnjay/memory"

const (
	// bytesPerFrame is the assumed per-frame memory cost used to convert
	// free memory into a frame count.
	bytesPerFrame = 6 * 1024 * 1024 // 6 MiB

	// MinCapacity is the floor applied to the computed capacity, honored
	// even when it implies swapping on memory-constrained hosts.
	MinCapacity = 500

	// MaxCapacity is the ceiling applied to the computed capacity, capping
	// absolute memory commitment on memory-rich hosts.
	MaxCapacity = 2000
)

// FrameCacheCapacity reads the host's free physical memory and returns
// the frame-cache capacity to pass to the compositor child: free bytes
// divided by the per-frame assumption, clamped to [MinCapacity,
// MaxCapacity].
func FrameCacheCapacity() int {
	return capacityFromFreeBytes(memory.FreeMemory())
}

func capacityFromFreeBytes(freeBytes uint64) int {
	n := int(freeBytes / bytesPerFrame)
	if n < MinCapacity {
		return MinCapacity
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}
