// Package batch flattens independent position-analysis requests into one
// batched sidecar inference call and slices the combined response back into
// per-item results. Featurization and result assembly stay with the host
// application; this package only owns the batching arithmetic.
package batch

import (
	"fmt"

	"kayad/internal/sidecar"
	"kayad/pkg/types"
)

// Featurizer converts board positions into the fixed-shape tensors the
// network consumes: a 22x19x19 spatial tensor and a 19-element global
// vector per position, both flattened row-major.
type Featurizer interface {
	// NextPlayer determines the side to move for a position.
	NextPlayer(signMap types.SignMap, opts types.AnalysisOptions) types.Player
	// Featurize encodes one position for the given side to move.
	Featurize(signMap types.SignMap, pla types.Player, opts types.AnalysisOptions) (spatial, global []float32, err error)
}

// Assembler turns one item's sliced tensors into a structured analysis
// result (move ordering, win rate, territory).
type Assembler interface {
	Assemble(item ItemTensors, pla types.Player, boardSize int) (types.AnalysisResult, error)
}

// Inferencer is the single batched call the orchestrator issues.
// *sidecar.Engine satisfies it.
type Inferencer interface {
	Infer(binInput, globalInput []float32, batchSize int) (sidecar.RawResult, error)
}

// Input pairs one position with its analysis options.
type Input struct {
	SignMap types.SignMap
	Options types.AnalysisOptions
}

// ItemTensors carries one item's slice of each batched output tensor.
// Slices may be shorter than their nominal shape when the response was
// undersized; they are never out of bounds.
type ItemTensors struct {
	Policy     []float32
	PolicyDims []int
	Value      []float32
	MiscValue  []float32
	// Ownership is nil when the response carried no ownership tensor.
	Ownership []float32
}

// Orchestrator runs batched analysis against one engine.
type Orchestrator struct {
	engine     Inferencer
	featurizer Featurizer
	assembler  Assembler
}

// NewOrchestrator wires an engine with the host's featurization and
// assembly collaborators.
func NewOrchestrator(engine Inferencer, f Featurizer, a Assembler) *Orchestrator {
	return &Orchestrator{engine: engine, featurizer: f, assembler: a}
}

// AnalyzeBatch analyzes all inputs, which must share one board edge length,
// in a single sidecar round trip. Order is preserved end-to-end: result i
// corresponds to inputs[i]. An empty input list returns an empty result
// list without touching the sidecar. Any featurization or inference failure
// aborts the whole batch; no partial results are returned.
func (o *Orchestrator) AnalyzeBatch(inputs []Input) ([]types.AnalysisResult, error) {
	if len(inputs) == 0 {
		return []types.AnalysisResult{}, nil
	}
	batchSize := len(inputs)
	boardSize := len(inputs[0].SignMap)

	allBin := make([]float32, 0, batchSize*SpatialSize)
	allGlobal := make([]float32, 0, batchSize*GlobalFeatures)
	plas := make([]types.Player, batchSize)
	for i, in := range inputs {
		pla := o.featurizer.NextPlayer(in.SignMap, in.Options)
		plas[i] = pla
		spatial, global, err := o.featurizer.Featurize(in.SignMap, pla, in.Options)
		if err != nil {
			return nil, fmt.Errorf("featurize item %d: %w", i, err)
		}
		allBin = append(allBin, spatial...)
		allGlobal = append(allGlobal, global...)
	}

	res, err := o.engine.Infer(allBin, allGlobal, batchSize)
	if err != nil {
		return nil, err
	}

	shape := shapeFor(res, batchSize, boardSize)
	results := make([]types.AnalysisResult, 0, batchSize)
	for b := 0; b < batchSize; b++ {
		item := ItemTensors{
			Policy:     clampSlice(res.Policy, b*shape.Policy, shape.Policy),
			PolicyDims: itemPolicyDims(res.PolicyDims, shape.Policy),
			Value:      clampSlice(res.Value, b*shape.Value, shape.Value),
			MiscValue:  clampSlice(res.MiscValue, b*shape.MiscValue, shape.MiscValue),
		}
		if res.Ownership != nil {
			item.Ownership = clampSlice(res.Ownership, b*shape.Ownership, shape.Ownership)
		}
		r, err := o.assembler.Assemble(item, plas[b], boardSize)
		if err != nil {
			return nil, fmt.Errorf("assemble item %d: %w", b, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// clampSlice returns buf[start:start+n] with both bounds clamped to
// len(buf). An undersized or malformed response yields a short slice,
// never an index fault.
func clampSlice(buf []float32, start, n int) []float32 {
	if start > len(buf) {
		start = len(buf)
	}
	end := start + n
	if end > len(buf) {
		end = len(buf)
	}
	return buf[start:end]
}
