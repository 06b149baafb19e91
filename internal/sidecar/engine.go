package sidecar

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"kayad/pkg/types"
)

// State is the engine lifecycle state. A disposed engine returns to
// StateUninitialized and may be initialized again.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
)

const defaultInterpreter = "python3"

// probeImports is the read-only availability check run through the
// interpreter: the required runtime must import and a GPU must be visible.
const probeImports = "import torch, onnx2torch; assert torch.cuda.is_available()"

// Config encapsulates engine tunables. Zero values mean defaults.
type Config struct {
	// Interpreter runs the sidecar script and the availability probe.
	Interpreter string
	// ScriptPath pins the sidecar script; empty means discover via the
	// packaged/development/source locations.
	ScriptPath string
	// ProbeArgs overrides the availability probe arguments. Tests use this
	// to substitute a cheap command.
	ProbeArgs []string
	// Logger receives spawn/ready/dispose events. Nil means no logging.
	Logger *zerolog.Logger
}

// Engine is the handle to one supervised sidecar process. The application
// context owns exactly one Engine; a single exclusive lock serializes every
// operation, so at most one protocol exchange is ever in flight.
type Engine struct {
	mu    sync.Mutex
	state State
	proc  *sidecarProcess
	info  *types.EngineInfo
	model string
	cfg   Config
	log   zerolog.Logger
}

// New constructs an uninitialized Engine from Config, applying defaults.
func New(cfg Config) *Engine {
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaultInterpreter
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Engine{state: StateUninitialized, cfg: cfg, log: log}
}

// Available reports whether the sidecar prerequisites are present on this
// system. It never mutates engine state, and false is not an error: it is
// the signal for callers to stay on the in-process compute path.
func (e *Engine) Available() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	args := e.cfg.ProbeArgs
	if len(args) == 0 {
		args = []string{"-c", probeImports}
	}
	return exec.Command(e.cfg.Interpreter, args...).Run() == nil
}

// Initialize spawns a fresh sidecar, sends the init command, and installs
// the new process handle. Any live handle is replaced unconditionally; the
// engine lock serializes replacement against in-flight operations.
func (e *Engine) Initialize(modelPath string) (types.EngineInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.disposeLocked()
	e.state = StateInitializing

	scriptPath := e.cfg.ScriptPath
	if scriptPath == "" {
		var err error
		if scriptPath, err = findScript(); err != nil {
			e.state = StateUninitialized
			return types.EngineInfo{}, err
		}
	}

	proc, err := spawnSidecar(e.cfg.Interpreter, scriptPath, e.log)
	if err != nil {
		e.state = StateUninitialized
		return types.EngineInfo{}, err
	}

	resp, err := proc.roundTrip(command{Cmd: "init", ModelPath: modelPath})
	if err != nil {
		proc.terminate()
		e.state = StateUninitialized
		return types.EngineInfo{}, fmt.Errorf("init %s: %w", modelPath, err)
	}

	info := types.EngineInfo{
		Provider: resp.Provider,
		Device:   resp.Device,
		FP16:     resp.FP16,
		Params:   resp.Params,
	}
	if info.Provider == "" {
		info.Provider = "pytorch"
	}
	if info.Device == "" {
		info.Device = "unknown"
	}

	e.proc = proc
	e.info = &info
	e.model = modelPath
	e.state = StateReady
	e.log.Info().
		Str("provider", info.Provider).
		Str("device", info.Device).
		Bool("fp16", info.FP16).
		Uint64("params", info.Params).
		Msg("sidecar engine ready")
	return info, nil
}

// RawResult holds the still-batched output tensors of one infer call.
// Ownership is nil when the model emits no ownership head.
type RawResult struct {
	Policy     []float32
	Value      []float32
	MiscValue  []float32
	Ownership  []float32
	PolicyDims []int
}

// Infer runs one batched inference round trip. binInput and globalInput are
// the concatenated per-item tensors, item-major.
func (e *Engine) Infer(binInput, globalInput []float32, batchSize int) (RawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady || e.proc == nil {
		return RawResult{}, ErrNotInitialized()
	}

	resp, err := e.proc.roundTrip(command{
		Cmd:         "infer",
		BinInput:    EncodeFloats(binInput),
		GlobalInput: EncodeFloats(globalInput),
		BatchSize:   batchSize,
	})
	if err != nil {
		return RawResult{}, fmt.Errorf("infer: %w", err)
	}

	out := RawResult{PolicyDims: resp.PolicyDims}
	if out.Policy, err = DecodeFloats(resp.Policy); err != nil {
		return RawResult{}, fmt.Errorf("policy: %w", err)
	}
	if out.Value, err = DecodeFloats(resp.Value); err != nil {
		return RawResult{}, fmt.Errorf("value: %w", err)
	}
	if out.MiscValue, err = DecodeFloats(resp.MiscValue); err != nil {
		return RawResult{}, fmt.Errorf("miscvalue: %w", err)
	}
	if resp.Ownership != nil {
		if out.Ownership, err = DecodeFloats(*resp.Ownership); err != nil {
			return RawResult{}, fmt.Errorf("ownership: %w", err)
		}
	}
	return out, nil
}

// Benchmark runs one diagnostic round trip. It causes no state transition.
func (e *Engine) Benchmark(iterations int) (types.BenchmarkStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady || e.proc == nil {
		return types.BenchmarkStats{}, ErrNotInitialized()
	}
	resp, err := e.proc.roundTrip(command{Cmd: "benchmark", Iterations: iterations})
	if err != nil {
		return types.BenchmarkStats{}, fmt.Errorf("benchmark: %w", err)
	}
	return types.BenchmarkStats{
		SingleMS:        resp.SingleMS,
		Batch8MS:        resp.Batch8MS,
		Batch8InfPerSec: resp.Batch8InfS,
	}, nil
}

// Dispose shuts the sidecar down and clears state to uninitialized. The
// dispose command is best-effort: a sidecar that is already gone must not
// block shutdown. Calling Dispose twice is a no-op.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposeLocked()
	e.state = StateUninitialized
}

// disposeLocked tears down the current process handle, if any. Caller holds
// the lock. The dispose command is written without waiting for a response
// so a hung sidecar cannot stall shutdown.
func (e *Engine) disposeLocked() {
	if e.proc == nil {
		e.info = nil
		e.model = ""
		return
	}
	if payload, err := json.Marshal(command{Cmd: "dispose"}); err == nil {
		_ = e.proc.writeLine(payload)
	}
	e.proc.terminate()
	e.proc = nil
	e.info = nil
	e.model = ""
	e.log.Info().Msg("sidecar engine disposed")
}

// Ready reports whether a live handle exists.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateReady && e.proc != nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status is a read-only projection of engine state for the control API.
func (e *Engine) Status() types.StatusResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := types.StatusResponse{State: string(e.state), Model: e.model}
	if e.info != nil {
		cp := *e.info
		st.Info = &cp
	}
	return st
}
