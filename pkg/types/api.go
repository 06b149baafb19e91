package types

// StatusResponse is the control-API view of engine state.
type StatusResponse struct {
	State string      `json:"state"`
	Model string      `json:"model,omitempty"`
	Info  *EngineInfo `json:"info,omitempty"`
}

// InitializeRequest asks the daemon to start the sidecar with a model.
// Model may be a registry id or a filesystem path.
type InitializeRequest struct {
	Model string `json:"model"`
}

// BenchmarkRequest asks for a diagnostic benchmark run.
type BenchmarkRequest struct {
	Iterations int `json:"iterations,omitempty"`
}
