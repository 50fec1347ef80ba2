//go:build unix

package buffer

import (
	"golang.org/x/sys/unix"

	"accelrt/internal/status"
)

// MappedAllocator allocates page-aligned anonymous mappings, for delegates
// that need host memory they can hand to a driver without copying.
type MappedAllocator struct{}

// NewMappedAllocator returns a MappedAllocator on platforms with mmap.
func NewMappedAllocator() (Allocator, error) {
	return MappedAllocator{}, nil
}

func (MappedAllocator) Type() BufferType { return BufferTypeMappedHost }

func (MappedAllocator) Allocate(size uint64) (Memory, error) {
	if size == 0 {
		return &mappedMemory{}, nil
	}
	if uint64(int(size)) != size || int(size) < 0 {
		return nil, status.New(status.AllocationError, "buffer.MappedAllocator", "size %d overflows", size)
	}
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, status.Wrap(status.AllocationError, "buffer.MappedAllocator", err, "mmap %d bytes", size)
	}
	return &mappedMemory{b: b}, nil
}

type mappedMemory struct {
	b []byte
}

func (m *mappedMemory) Bytes() []byte { return m.b }

func (m *mappedMemory) Free() error {
	if m.b == nil {
		return nil
	}
	b := m.b
	m.b = nil
	if err := unix.Munmap(b); err != nil {
		return status.Wrap(status.AllocationError, "buffer.MappedAllocator", err, "munmap")
	}
	return nil
}
