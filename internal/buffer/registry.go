package buffer

// requirementRegistry stores at most one Requirements per tensor.
type requirementRegistry struct {
	m map[TensorID]*Requirements
}

func newRequirementRegistry() requirementRegistry {
	return requirementRegistry{m: make(map[TensorID]*Requirements)}
}

// put stores r, replacing any prior entry.
func (r *requirementRegistry) put(id TensorID, req Requirements) {
	c := req.Clone()
	r.m[id] = &c
}

func (r *requirementRegistry) get(id TensorID) (*Requirements, bool) {
	req, ok := r.m[id]
	return req, ok
}

func (r *requirementRegistry) len() int { return len(r.m) }

func (r *requirementRegistry) clear() { clear(r.m) }

// bufferRegistry stores at most one owned TensorBuffer per tensor.
type bufferRegistry struct {
	m map[TensorID]*TensorBuffer
}

func newBufferRegistry() bufferRegistry {
	return bufferRegistry{m: make(map[TensorID]*TensorBuffer)}
}

// put stores b and returns the entry it replaced, if any.
func (r *bufferRegistry) put(id TensorID, b *TensorBuffer) *TensorBuffer {
	prev := r.m[id]
	r.m[id] = b
	return prev
}

func (r *bufferRegistry) get(id TensorID) (*TensorBuffer, bool) {
	b, ok := r.m[id]
	return b, ok
}

func (r *bufferRegistry) len() int { return len(r.m) }

// drain empties the registry and returns what it held.
func (r *bufferRegistry) drain() map[TensorID]*TensorBuffer {
	out := r.m
	r.m = make(map[TensorID]*TensorBuffer)
	return out
}
