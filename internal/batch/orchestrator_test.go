package batch

import (
	"errors"
	"strings"
	"testing"

	"kayad/internal/sidecar"
	"kayad/pkg/types"
)

// stubEngine returns a canned RawResult and records how it was called.
type stubEngine struct {
	res       sidecar.RawResult
	err       error
	calls     int
	batchSize int
	binLen    int
	globalLen int
}

func (s *stubEngine) Infer(bin, global []float32, batchSize int) (sidecar.RawResult, error) {
	s.calls++
	s.batchSize = batchSize
	s.binLen = len(bin)
	s.globalLen = len(global)
	return s.res, s.err
}

// stubFeaturizer emits tiny fixed-size tensors so concatenation is easy to
// check without the real 22x19x19 layout.
type stubFeaturizer struct {
	spatialLen int
	globalLen  int
	err        error
}

func (s stubFeaturizer) NextPlayer(_ types.SignMap, opts types.AnalysisOptions) types.Player {
	if opts.NextPlayer != 0 {
		return opts.NextPlayer
	}
	return types.PlayerBlack
}

func (s stubFeaturizer) Featurize(_ types.SignMap, _ types.Player, _ types.AnalysisOptions) ([]float32, []float32, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return make([]float32, s.spatialLen), make([]float32, s.globalLen), nil
}

// stubAssembler records every item it sees and tags results so ordering is
// observable.
type stubAssembler struct {
	items []ItemTensors
	plas  []types.Player
	err   error
}

func (s *stubAssembler) Assemble(item ItemTensors, pla types.Player, _ int) (types.AnalysisResult, error) {
	if s.err != nil {
		return types.AnalysisResult{}, s.err
	}
	s.items = append(s.items, item)
	s.plas = append(s.plas, pla)
	var win float64
	if len(item.Value) > 0 {
		win = float64(item.Value[0])
	}
	return types.AnalysisResult{WinRate: win, Ownership: item.Ownership}, nil
}

func emptyBoard(edge int) types.SignMap {
	sm := make(types.SignMap, edge)
	for i := range sm {
		sm[i] = make([]int8, edge)
	}
	return sm
}

func inputsOf(n, edge int) []Input {
	ins := make([]Input, n)
	for i := range ins {
		ins[i] = Input{SignMap: emptyBoard(edge)}
	}
	return ins
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	eng := &stubEngine{}
	o := NewOrchestrator(eng, stubFeaturizer{}, &stubAssembler{})
	results, err := o.AnalyzeBatch(nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty result list, got %v", results)
	}
	if eng.calls != 0 {
		t.Fatalf("expected zero round trips, got %d", eng.calls)
	}
}

func TestAnalyzeBatchSlices(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(722),
		PolicyDims: []int{2, 361},
		Value:      seq(6),
		MiscValue:  seq(20),
		Ownership:  seq(722),
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 4, globalLen: 2}, asm)

	results, err := o.AnalyzeBatch(inputsOf(2, 19))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if eng.calls != 1 || eng.batchSize != 2 {
		t.Fatalf("expected one batched call of size 2, got calls=%d size=%d", eng.calls, eng.batchSize)
	}
	if eng.binLen != 8 || eng.globalLen != 4 {
		t.Fatalf("concatenation wrong: bin=%d global=%d", eng.binLen, eng.globalLen)
	}
	for b, item := range asm.items {
		if len(item.Policy) != 361 {
			t.Fatalf("item %d policy len = %d, want 361", b, len(item.Policy))
		}
		if item.Policy[0] != float32(b*361) {
			t.Fatalf("item %d policy offset wrong: %v", b, item.Policy[0])
		}
		if len(item.PolicyDims) != 2 || item.PolicyDims[0] != 1 || item.PolicyDims[1] != 361 {
			t.Fatalf("item %d policy dims = %v, want [1 361]", b, item.PolicyDims)
		}
		if len(item.Value) != 3 || item.Value[0] != float32(b*3) {
			t.Fatalf("item %d value slice wrong: %v", b, item.Value)
		}
		if len(item.MiscValue) != 10 || item.MiscValue[0] != float32(b*10) {
			t.Fatalf("item %d miscvalue slice wrong: %v", b, item.MiscValue)
		}
		if len(item.Ownership) != 361 || item.Ownership[0] != float32(b*361) {
			t.Fatalf("item %d ownership slice wrong", b)
		}
	}
}

func TestAnalyzeBatchOrderPreserved(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(4),
		PolicyDims: []int{2, 2},
		Value:      seq(6),
		MiscValue:  seq(20),
	}}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, &stubAssembler{})
	results, err := o.AnalyzeBatch(inputsOf(2, 19))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// Value per item is 3; the stub assembler surfaces value[0] as WinRate.
	if results[0].WinRate != 0 || results[1].WinRate != 3 {
		t.Fatalf("order not preserved: %v %v", results[0].WinRate, results[1].WinRate)
	}
}

func TestPolicyDimsAbsent(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:    seq(10),
		Value:     seq(6),
		MiscValue: seq(20),
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	if _, err := o.AnalyzeBatch(inputsOf(2, 19)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for b, item := range asm.items {
		if len(item.Policy) != 5 {
			t.Fatalf("item %d policy len = %d, want 5", b, len(item.Policy))
		}
		if len(item.PolicyDims) != 2 || item.PolicyDims[0] != 1 || item.PolicyDims[1] != 5 {
			t.Fatalf("item %d policy dims = %v, want [1 5]", b, item.PolicyDims)
		}
	}
}

func TestUndersizedBufferClamps(t *testing.T) {
	// Declared 2x361 but only 500 floats arrive: the second item gets the
	// short remainder instead of an index fault.
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(500),
		PolicyDims: []int{2, 361},
		Value:      seq(3), // undersized for batch 2 as well
		MiscValue:  seq(20),
		Ownership:  seq(100),
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	if _, err := o.AnalyzeBatch(inputsOf(2, 19)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(asm.items[0].Policy) != 361 || len(asm.items[1].Policy) != 139 {
		t.Fatalf("policy clamp wrong: %d, %d", len(asm.items[0].Policy), len(asm.items[1].Policy))
	}
	if len(asm.items[1].Value) != 0 {
		t.Fatalf("value clamp wrong: %d", len(asm.items[1].Value))
	}
	if len(asm.items[0].Ownership) != 100 || len(asm.items[1].Ownership) != 0 {
		t.Fatalf("ownership clamp wrong: %d, %d",
			len(asm.items[0].Ownership), len(asm.items[1].Ownership))
	}
}

func TestMiscValueFallback(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(4),
		PolicyDims: []int{2, 2},
		Value:      seq(6),
		MiscValue:  seq(12), // < 2*10, falls back to even split
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	if _, err := o.AnalyzeBatch(inputsOf(2, 19)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for b, item := range asm.items {
		if len(item.MiscValue) != 6 || item.MiscValue[0] != float32(b*6) {
			t.Fatalf("item %d miscvalue fallback wrong: %v", b, item.MiscValue)
		}
	}
}

func TestOwnershipAbsent(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(4),
		PolicyDims: []int{2, 2},
		Value:      seq(6),
		MiscValue:  seq(20),
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	if _, err := o.AnalyzeBatch(inputsOf(2, 9)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for b, item := range asm.items {
		if item.Ownership != nil {
			t.Fatalf("item %d expected nil ownership", b)
		}
	}
}

func TestOwnershipUsesBoardEdge(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(4),
		PolicyDims: []int{2, 2},
		Value:      seq(6),
		MiscValue:  seq(20),
		Ownership:  seq(162), // 2 items on a 9x9 board
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	if _, err := o.AnalyzeBatch(inputsOf(2, 9)); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for b, item := range asm.items {
		if len(item.Ownership) != 81 {
			t.Fatalf("item %d ownership len = %d, want 81", b, len(item.Ownership))
		}
	}
}

func TestFeaturizeErrorAbortsBatch(t *testing.T) {
	eng := &stubEngine{}
	o := NewOrchestrator(eng, stubFeaturizer{err: errors.New("bad position")}, &stubAssembler{})
	results, err := o.AnalyzeBatch(inputsOf(2, 19))
	if err == nil || !strings.Contains(err.Error(), "featurize item") {
		t.Fatalf("expected featurize error, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected no partial results, got %v", results)
	}
	if eng.calls != 0 {
		t.Fatalf("engine must not be called after featurize failure")
	}
}

func TestInferErrorAbortsBatch(t *testing.T) {
	eng := &stubEngine{err: errors.New("sidecar gone")}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	results, err := o.AnalyzeBatch(inputsOf(3, 19))
	if err == nil {
		t.Fatalf("expected error")
	}
	if results != nil || len(asm.items) != 0 {
		t.Fatalf("expected no partial results")
	}
}

func TestNextPlayerPassedThrough(t *testing.T) {
	eng := &stubEngine{res: sidecar.RawResult{
		Policy:     seq(4),
		PolicyDims: []int{2, 2},
		Value:      seq(6),
		MiscValue:  seq(20),
	}}
	asm := &stubAssembler{}
	o := NewOrchestrator(eng, stubFeaturizer{spatialLen: 1, globalLen: 1}, asm)
	inputs := inputsOf(2, 19)
	inputs[1].Options.NextPlayer = types.PlayerWhite
	if _, err := o.AnalyzeBatch(inputs); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if asm.plas[0] != types.PlayerBlack || asm.plas[1] != types.PlayerWhite {
		t.Fatalf("players not threaded through: %v", asm.plas)
	}
}
