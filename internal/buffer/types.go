package buffer

import (
	"fmt"
	"strings"

	"accelrt/internal/status"
)

// TensorID identifies one tensor slot within one execution. It is handed out
// by the hosting graph and only ever used here as a map key.
type TensorID uint32

// BufferType is the kind of memory backing a tensor buffer.
type BufferType int

const (
	BufferTypeUnknown BufferType = iota
	BufferTypeHostMemory
	BufferTypeAhwb
	BufferTypeIon
	BufferTypeDmaBuf
	BufferTypeFastRpc
	BufferTypeOpenCL
	BufferTypeGLBuffer
	BufferTypeGLTexture
	BufferTypeWebGPU
	// BufferTypeMappedHost is page-aligned anonymous host memory.
	BufferTypeMappedHost
)

var bufferTypeNames = map[BufferType]string{
	BufferTypeUnknown:    "Unknown",
	BufferTypeHostMemory: "HostMemory",
	BufferTypeAhwb:       "Ahwb",
	BufferTypeIon:        "Ion",
	BufferTypeDmaBuf:     "DmaBuf",
	BufferTypeFastRpc:    "FastRpc",
	BufferTypeOpenCL:     "OpenCL",
	BufferTypeGLBuffer:   "GLBuffer",
	BufferTypeGLTexture:  "GLTexture",
	BufferTypeWebGPU:     "WebGPU",
	BufferTypeMappedHost: "MappedHost",
}

func (t BufferType) String() string {
	if s, ok := bufferTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("BufferType(%d)", int(t))
}

// HostAccessible reports whether memory of this type can be exposed as a
// Go byte slice.
func (t BufferType) HostAccessible() bool {
	return t == BufferTypeHostMemory || t == BufferTypeMappedHost
}

func (t BufferType) known() bool {
	_, ok := bufferTypeNames[t]
	return ok && t != BufferTypeUnknown
}

// ParseBufferType returns the type whose String form equals s, ignoring case.
func ParseBufferType(s string) (BufferType, error) {
	for t, name := range bufferTypeNames {
		if t != BufferTypeUnknown && strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return BufferTypeUnknown, status.New(status.InvalidArgument, "buffer.ParseBufferType", "unknown buffer type %q", s)
}
