//go:build !unix

package buffer

import "accelrt/internal/status"

// NewMappedAllocator is unavailable without mmap.
func NewMappedAllocator() (Allocator, error) {
	return nil, status.New(status.AllocationError, "buffer.NewMappedAllocator", "anonymous mappings unsupported on this platform")
}
