package batch

import "kayad/internal/sidecar"

// Fixed per-item tensor shapes of the sidecar contract. Inputs are always
// featurized on a 19x19 grid regardless of the actual board edge length.
const (
	SpatialChannels  = 22
	SpatialEdge      = 19
	GlobalFeatures   = 19
	ValueOutputs     = 3
	MiscValueOutputs = 10
)

// SpatialSize is the flattened per-item spatial tensor length.
const SpatialSize = SpatialChannels * SpatialEdge * SpatialEdge

// Shape holds the per-item element count of each output tensor, derived
// once per batched response. Keeping the layout in one value (instead of
// constants scattered through the slicing loop) means a contract change
// shows up here, not as silent misalignment.
type Shape struct {
	Policy    int
	Value     int
	MiscValue int
	// Ownership is 0 when the response carries no ownership tensor.
	Ownership int
}

// shapeFor computes per-item element counts from response metadata.
// Policy uses the declared dims from index 1 onward when present, else an
// even split. MiscValue assumes the conventional 10 scalars only when the
// buffer is large enough for that, else falls back to an even split.
func shapeFor(res sidecar.RawResult, batchSize, boardSize int) Shape {
	s := Shape{Value: ValueOutputs}
	if len(res.PolicyDims) >= 2 {
		s.Policy = 1
		for _, d := range res.PolicyDims[1:] {
			s.Policy *= d
		}
	} else {
		s.Policy = len(res.Policy) / batchSize
	}
	if len(res.MiscValue) >= batchSize*MiscValueOutputs {
		s.MiscValue = MiscValueOutputs
	} else {
		s.MiscValue = len(res.MiscValue) / batchSize
	}
	if res.Ownership != nil {
		s.Ownership = boardSize * boardSize
	}
	return s
}

// itemPolicyDims rebuilds a single-item policy dims descriptor: the
// declared dims with the batch dimension forced to 1, or [1, n] when the
// response declared none.
func itemPolicyDims(dims []int, perItem int) []int {
	if len(dims) >= 2 {
		out := make([]int, len(dims))
		copy(out, dims)
		out[0] = 1
		return out
	}
	return []int{1, perItem}
}
