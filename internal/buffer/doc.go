// Package buffer is the negotiation point between the runtime's tensor model
// and accelerator delegates for one graph execution.
//
// A Context holds, per tensor slot:
//
//   - the Requirements a delegate stated for it (accepted memory types, size,
//     strides), and
//   - at most one registered TensorBuffer, owned by the Context.
//
// Delegates register requirements during preparation. During execution the
// runtime or a delegate asks the Context for a registered buffer (it gets a
// reference-counted duplicate) or for a fresh buffer built to the registered
// requirements (it gets sole ownership; the Context does not track it).
//
// Tensor slots are keyed by TensorID, a surrogate integer the hosting graph
// hands out for the lifetime of one execution. Close invalidates every key.
//
// A Context is not safe for concurrent use. Use one Context per running
// execution, or serialize calls externally. Only TensorBuffer reference
// counts are atomic.
package buffer
