package buffer

import (
	"errors"

	"github.com/rs/zerolog"

	"accelrt/internal/metrics"
	"accelrt/internal/status"
)

// Context is shared by the runtime and every delegate during one graph
// execution. See the package documentation for ownership rules.
type Context struct {
	requirements requirementRegistry
	buffers      bufferRegistry
	allocators   map[BufferType]Allocator

	defaultSize uint64
	async       bool
	closed      bool

	log     zerolog.Logger
	metrics *metrics.Buffers
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for replacement and teardown diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithAllocator registers an additional allocator at construction.
func WithAllocator(a Allocator) Option {
	return func(c *Context) {
		if a != nil {
			c.allocators[a.Type()] = a
		}
	}
}

// WithDefaultBufferSize sets the size of buffers created for tensors that
// have no registered requirement. The default is 0.
func WithDefaultBufferSize(n uint64) Option {
	return func(c *Context) { c.defaultSize = n }
}

// WithMetrics records allocations on m.
func WithMetrics(m *metrics.Buffers) Option {
	return func(c *Context) { c.metrics = m }
}

// NewContext returns an empty Context with a host allocator and, where the
// platform supports it, a mapped host allocator.
func NewContext(opts ...Option) *Context {
	c := &Context{
		requirements: newRequirementRegistry(),
		buffers:      newBufferRegistry(),
		allocators:   map[BufferType]Allocator{BufferTypeHostMemory: HostAllocator{}},
		log:          zerolog.Nop(),
	}
	if a, err := NewMappedAllocator(); err == nil {
		c.allocators[a.Type()] = a
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RegisterAllocator makes a memory type available to CreateBufferForTensor.
// A later registration for the same type replaces the earlier one.
func (c *Context) RegisterAllocator(a Allocator) error {
	if c.closed {
		return status.New(status.Closed, "buffer.RegisterAllocator", "context closed")
	}
	if a == nil || !a.Type().known() {
		return status.New(status.InvalidArgument, "buffer.RegisterAllocator", "allocator has no usable buffer type")
	}
	c.allocators[a.Type()] = a
	return nil
}

// RegisterBufferRequirement stores a copy of req for id, replacing any prior
// entry. A buffer already bound to id is left as is.
func (c *Context) RegisterBufferRequirement(id TensorID, req Requirements) error {
	if c.closed {
		return status.New(status.Closed, "buffer.RegisterBufferRequirement", "context closed")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	c.requirements.put(id, req)
	return nil
}

// GetBufferRequirement returns the requirement registered for id. The
// pointer is owned by the Context and must not be used after Close.
func (c *Context) GetBufferRequirement(id TensorID) (*Requirements, error) {
	if c.closed {
		return nil, status.New(status.Closed, "buffer.GetBufferRequirement", "context closed")
	}
	req, ok := c.requirements.get(id)
	if !ok {
		return nil, status.New(status.NotFound, "buffer.GetBufferRequirement", "no requirement for tensor %d", id)
	}
	return req, nil
}

// RegisterTensorBuffer transfers ownership of buf to the Context. On success
// the caller must not use or release buf again. On failure ownership stays
// with the caller. A buffer previously registered for id is released.
func (c *Context) RegisterTensorBuffer(id TensorID, buf *TensorBuffer) error {
	if c.closed {
		return status.New(status.Closed, "buffer.RegisterTensorBuffer", "context closed")
	}
	if !buf.live() {
		return status.New(status.InvalidArgument, "buffer.RegisterTensorBuffer", "empty or released buffer for tensor %d", id)
	}
	prev := c.buffers.put(id, buf)
	if prev != nil && prev != buf {
		if err := prev.Release(); err != nil {
			c.log.Warn().Err(err).Uint32("tensor", uint32(id)).Msg("release of replaced tensor buffer failed")
		}
	}
	return nil
}

// GetTensorBuffer returns a duplicate of the buffer registered for id. The
// caller owns the duplicate; the Context keeps its own reference.
func (c *Context) GetTensorBuffer(id TensorID) (*TensorBuffer, error) {
	if c.closed {
		return nil, status.New(status.Closed, "buffer.GetTensorBuffer", "context closed")
	}
	buf, ok := c.buffers.get(id)
	if !ok {
		return nil, status.New(status.NotFound, "buffer.GetTensorBuffer", "no buffer for tensor %d", id)
	}
	return buf.Duplicate()
}

// CreateBufferForTensor allocates a buffer following the requirement
// registered for id: the first supported type with an allocator that
// succeeds wins. Without a requirement it allocates default host memory.
// The caller owns the result; the Context does not track it.
func (c *Context) CreateBufferForTensor(id TensorID) (*TensorBuffer, error) {
	const op = "buffer.CreateBufferForTensor"
	if c.closed {
		return nil, status.New(status.Closed, op, "context closed")
	}
	req, ok := c.requirements.get(id)
	if !ok {
		a, ok := c.allocators[BufferTypeHostMemory]
		if !ok {
			return nil, status.New(status.AllocationError, op, "no host allocator for tensor %d", id)
		}
		buf, err := c.allocate(a, c.defaultSize)
		if err != nil {
			return nil, status.Wrap(status.AllocationError, op, err, "default buffer for tensor %d", id)
		}
		return buf, nil
	}

	var errs []error
	for _, t := range req.SupportedTypes {
		a, ok := c.allocators[t]
		if !ok {
			continue
		}
		buf, err := c.allocate(a, req.BufferSize)
		if err != nil {
			c.log.Debug().Err(err).Uint32("tensor", uint32(id)).Stringer("type", t).Msg("allocation attempt failed")
			errs = append(errs, err)
			continue
		}
		return buf, nil
	}
	if len(errs) == 0 {
		return nil, status.New(status.AllocationError, op, "no allocator for any of %v (tensor %d)", req.SupportedTypes, id)
	}
	return nil, status.Wrap(status.AllocationError, op, errors.Join(errs...), "tensor %d", id)
}

func (c *Context) allocate(a Allocator, size uint64) (*TensorBuffer, error) {
	t := a.Type()
	mem, err := a.Allocate(size)
	c.metrics.Allocated(t.String(), err)
	if err != nil {
		return nil, err
	}
	return newTensorBuffer(t, size, mem, c.metrics.Freed), nil
}

// SetAsyncExecutionMode sets the flag the execution engine reads to choose
// pipelined dispatch.
func (c *Context) SetAsyncExecutionMode(enabled bool) { c.async = enabled }

// IsAsyncExecutionMode reports the flag; false until set.
func (c *Context) IsAsyncExecutionMode() bool { return c.async }

// Len returns the number of registered requirements and buffers.
func (c *Context) Len() (requirements, buffers int) {
	return c.requirements.len(), c.buffers.len()
}

// Close releases every registered buffer and drops every requirement.
// Afterwards all registry operations fail with status.Closed. Closing twice
// is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.requirements.clear()
	var errs []error
	for id, buf := range c.buffers.drain() {
		if err := buf.Release(); err != nil {
			c.log.Warn().Err(err).Uint32("tensor", uint32(id)).Msg("release on context close failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
