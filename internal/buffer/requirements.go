package buffer

import (
	"slices"

	"accelrt/internal/status"
)

// Requirements are the constraints an accelerator states for one tensor.
type Requirements struct {
	// SupportedTypes lists acceptable memory types in preference order.
	SupportedTypes []BufferType
	// BufferSize is the number of bytes the accelerator needs.
	BufferSize uint64
	// Strides describes the layout; empty means packed.
	Strides []uint32
}

// Validate reports an InvalidArgument error if r cannot describe a buffer.
func (r Requirements) Validate() error {
	if len(r.SupportedTypes) == 0 {
		return status.New(status.InvalidArgument, "buffer.Requirements", "no supported buffer types")
	}
	for _, t := range r.SupportedTypes {
		if !t.known() {
			return status.New(status.InvalidArgument, "buffer.Requirements", "unsupported buffer type %s", t)
		}
	}
	if r.BufferSize == 0 && len(r.Strides) > 0 {
		return status.New(status.InvalidArgument, "buffer.Requirements", "zero size with %d strides", len(r.Strides))
	}
	return nil
}

// Supports reports whether t is one of the accepted types.
func (r Requirements) Supports(t BufferType) bool {
	return slices.Contains(r.SupportedTypes, t)
}

// Clone returns a deep copy.
func (r Requirements) Clone() Requirements {
	return Requirements{
		SupportedTypes: slices.Clone(r.SupportedTypes),
		BufferSize:     r.BufferSize,
		Strides:        slices.Clone(r.Strides),
	}
}

// Equal compares by value. Nil and empty slices are equal.
func (r Requirements) Equal(o Requirements) bool {
	return r.BufferSize == o.BufferSize &&
		slices.Equal(r.SupportedTypes, o.SupportedTypes) &&
		slices.Equal(r.Strides, o.Strides)
}
