package buffer

import (
	"fmt"

	"accelrt/internal/status"
)

// MaxHostAllocation bounds a single HostAllocator request. Larger sizes fail
// with AllocationError instead of reaching the runtime allocator.
const MaxHostAllocation uint64 = 1 << 40

// Memory is one backing store produced by an Allocator.
type Memory interface {
	// Bytes returns the host view of the memory, or nil when the memory is
	// not host-addressable.
	Bytes() []byte
	// Free releases the memory. It is called exactly once.
	Free() error
}

// Allocator produces memory of a single BufferType. Delegates register
// allocators for accelerator memory on a Context.
type Allocator interface {
	Type() BufferType
	Allocate(size uint64) (Memory, error)
}

// HostAllocator allocates HostMemory buffers on the Go heap.
type HostAllocator struct{}

func (HostAllocator) Type() BufferType { return BufferTypeHostMemory }

func (HostAllocator) Allocate(size uint64) (Memory, error) {
	const op = "buffer.HostAllocator"
	if size > MaxHostAllocation || uint64(int(size)) != size || int(size) < 0 {
		return nil, status.New(status.AllocationError, op, "size %d exceeds host allocation limit", size)
	}
	b, err := makeBytes(int(size))
	if err != nil {
		return nil, status.Wrap(status.AllocationError, op, err, "allocate %d bytes", size)
	}
	return &heapMemory{b: b}, nil
}

// makeBytes turns a makeslice panic into an error.
func makeBytes(n int) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return make([]byte, n), nil
}

type heapMemory struct {
	b []byte
}

func (m *heapMemory) Bytes() []byte { return m.b }

func (m *heapMemory) Free() error {
	m.b = nil
	return nil
}
