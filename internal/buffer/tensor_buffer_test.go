package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelrt/internal/status"
)

func TestDuplicateSharesAllocation(t *testing.T) {
	alloc := &fakeAllocator{typ: BufferTypeGLBuffer}
	mem, _ := alloc.Allocate(16)
	buf, err := Wrap(BufferTypeGLBuffer, 16, mem)
	require.NoError(t, err)

	dup, err := buf.Duplicate()
	require.NoError(t, err)
	assert.True(t, dup.SameAllocation(buf))
	assert.Equal(t, int64(2), buf.RefCount())

	require.NoError(t, buf.Release())
	assert.Equal(t, 0, alloc.freed, "memory survives while a duplicate is live")
	assert.Equal(t, BufferTypeGLBuffer, dup.Type())

	require.NoError(t, dup.Release())
	assert.Equal(t, 1, alloc.freed)
}

func TestDoubleReleaseRejected(t *testing.T) {
	alloc := &fakeAllocator{typ: BufferTypeGLBuffer}
	mem, _ := alloc.Allocate(1)
	buf, _ := Wrap(BufferTypeGLBuffer, 1, mem)
	dup, _ := buf.Duplicate()

	require.NoError(t, buf.Release())
	err := buf.Release()
	assert.True(t, status.IsInvalidArgument(err), "got %v", err)
	assert.Equal(t, int64(1), dup.RefCount(), "second release must not drop another reference")

	_, err = buf.Duplicate()
	assert.True(t, status.IsInvalidArgument(err))
	assert.Nil(t, buf.Bytes())
	assert.True(t, buf.Released())
	require.NoError(t, dup.Release())
}

func TestEmptyBuffer(t *testing.T) {
	var nilBuf *TensorBuffer
	assert.Equal(t, BufferTypeUnknown, nilBuf.Type())
	assert.Zero(t, nilBuf.Size())
	assert.True(t, status.IsInvalidArgument(nilBuf.Release()))
	assert.True(t, status.IsInvalidArgument((&TensorBuffer{}).Release()))
	assert.False(t, nilBuf.SameAllocation(nilBuf))
}

func TestWrapValidation(t *testing.T) {
	_, err := Wrap(BufferTypeHostMemory, 4, nil)
	assert.True(t, status.IsInvalidArgument(err))
	_, err = Wrap(BufferTypeUnknown, 4, &heapMemory{})
	assert.True(t, status.IsInvalidArgument(err))
}

func TestConcurrentDuplicateRelease(t *testing.T) {
	alloc := &fakeAllocator{typ: BufferTypeWebGPU}
	mem, _ := alloc.Allocate(1)
	buf, _ := Wrap(BufferTypeWebGPU, 1, mem)

	const n = 64
	dups := make([]*TensorBuffer, n)
	for i := range dups {
		d, err := buf.Duplicate()
		require.NoError(t, err)
		dups[i] = d
	}
	var wg sync.WaitGroup
	for _, d := range dups {
		wg.Add(1)
		go func(d *TensorBuffer) {
			defer wg.Done()
			_ = d.Release()
		}(d)
	}
	wg.Wait()
	assert.Equal(t, int64(1), buf.RefCount())
	assert.Equal(t, 0, alloc.freed)
	require.NoError(t, buf.Release())
	assert.Equal(t, 1, alloc.freed)
}

func TestBufferTypeString(t *testing.T) {
	assert.Equal(t, "HostMemory", BufferTypeHostMemory.String())
	assert.Equal(t, "BufferType(99)", BufferType(99).String())
	assert.True(t, BufferTypeMappedHost.HostAccessible())
	assert.False(t, BufferTypeOpenCL.HostAccessible())
}

func TestParseBufferType(t *testing.T) {
	bt, err := ParseBufferType("hostmemory")
	require.NoError(t, err)
	assert.Equal(t, BufferTypeHostMemory, bt)

	bt, err = ParseBufferType("MappedHost")
	require.NoError(t, err)
	assert.Equal(t, BufferTypeMappedHost, bt)

	_, err = ParseBufferType("Unknown")
	assert.True(t, status.IsInvalidArgument(err))
	_, err = ParseBufferType("vram")
	assert.True(t, status.IsInvalidArgument(err))
}
