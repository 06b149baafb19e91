package types

// Model describes one model file found in the models directory.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// EngineInfo describes the capabilities reported by the sidecar after init.
type EngineInfo struct {
	Provider string `json:"provider"`
	Device   string `json:"device"`
	FP16     bool   `json:"fp16"`
	Params   uint64 `json:"params"`
}

// BenchmarkStats is the result of one sidecar benchmark round trip.
type BenchmarkStats struct {
	SingleMS        float64 `json:"single_ms"`
	Batch8MS        float64 `json:"batch8_ms"`
	Batch8InfPerSec float64 `json:"batch8_inf_s"`
}
