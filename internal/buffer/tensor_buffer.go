package buffer

import (
	"sync/atomic"

	"accelrt/internal/status"
)

// allocation is the memory shared by every handle duplicated from one buffer.
type allocation struct {
	typ    BufferType
	size   uint64
	mem    Memory
	refs   atomic.Int64
	onFree func()
}

// TensorBuffer is a reference-counted handle to a tensor's memory.
// Duplicate yields an independent handle over the same allocation; the
// memory is freed when the last handle is released. A nil or zero-value
// TensorBuffer is empty and is rejected by Context.
type TensorBuffer struct {
	alloc    *allocation
	released atomic.Bool
}

// Wrap builds a buffer over memory produced outside an Allocator, e.g. by a
// delegate importing a device handle. The returned handle holds the only
// reference.
func Wrap(t BufferType, size uint64, mem Memory) (*TensorBuffer, error) {
	if mem == nil {
		return nil, status.New(status.InvalidArgument, "buffer.Wrap", "nil memory")
	}
	if !t.known() {
		return nil, status.New(status.InvalidArgument, "buffer.Wrap", "unsupported buffer type %s", t)
	}
	return newTensorBuffer(t, size, mem, nil), nil
}

func newTensorBuffer(t BufferType, size uint64, mem Memory, onFree func()) *TensorBuffer {
	a := &allocation{typ: t, size: size, mem: mem, onFree: onFree}
	a.refs.Store(1)
	return &TensorBuffer{alloc: a}
}

func (b *TensorBuffer) live() bool {
	return b != nil && b.alloc != nil && !b.released.Load()
}

// Type returns the memory type, or Unknown for an empty handle.
func (b *TensorBuffer) Type() BufferType {
	if b == nil || b.alloc == nil {
		return BufferTypeUnknown
	}
	return b.alloc.typ
}

// Size returns the allocation size in bytes.
func (b *TensorBuffer) Size() uint64 {
	if b == nil || b.alloc == nil {
		return 0
	}
	return b.alloc.size
}

// Bytes returns the host view of the memory. It is nil for device-only
// memory and for released handles. Writes are not synchronized.
func (b *TensorBuffer) Bytes() []byte {
	if !b.live() {
		return nil
	}
	return b.alloc.mem.Bytes()
}

// RefCount returns the number of live handles sharing the allocation.
func (b *TensorBuffer) RefCount() int64 {
	if b == nil || b.alloc == nil {
		return 0
	}
	return b.alloc.refs.Load()
}

// Released reports whether this handle has been released.
func (b *TensorBuffer) Released() bool {
	return b != nil && b.released.Load()
}

// SameAllocation reports whether b and o share underlying memory.
func (b *TensorBuffer) SameAllocation(o *TensorBuffer) bool {
	return b != nil && o != nil && b.alloc != nil && b.alloc == o.alloc
}

// Duplicate returns a new handle over the same allocation.
func (b *TensorBuffer) Duplicate() (*TensorBuffer, error) {
	if !b.live() {
		return nil, status.New(status.InvalidArgument, "buffer.Duplicate", "empty or released buffer")
	}
	b.alloc.refs.Add(1)
	return &TensorBuffer{alloc: b.alloc}, nil
}

// Release drops this handle's reference and frees the memory when it was the
// last one. Releasing the same handle twice fails with InvalidArgument.
func (b *TensorBuffer) Release() error {
	if b == nil || b.alloc == nil {
		return status.New(status.InvalidArgument, "buffer.Release", "empty buffer")
	}
	if !b.released.CompareAndSwap(false, true) {
		return status.New(status.InvalidArgument, "buffer.Release", "buffer already released")
	}
	if b.alloc.refs.Add(-1) > 0 {
		return nil
	}
	if b.alloc.onFree != nil {
		b.alloc.onFree()
	}
	return b.alloc.mem.Free()
}
