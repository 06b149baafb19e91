package sidecar

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// command is one request line of the wire protocol. Exactly one response
// line follows each command line.
type command struct {
	Cmd         string `json:"cmd"`
	ModelPath   string `json:"model_path,omitempty"`
	BinInput    string `json:"bin_input,omitempty"`
	GlobalInput string `json:"global_input,omitempty"`
	BatchSize   int    `json:"batch_size,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
}

// response is the union of all sidecar response payloads. OK=false means
// Error carries the sidecar's own message.
type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// init
	Provider string `json:"provider,omitempty"`
	Device   string `json:"device,omitempty"`
	FP16     bool   `json:"fp16,omitempty"`
	Params   uint64 `json:"params,omitempty"`

	// infer. Ownership is a pointer so an absent field is distinguishable
	// from an empty tensor.
	Policy     string  `json:"policy,omitempty"`
	Value      string  `json:"value,omitempty"`
	MiscValue  string  `json:"miscvalue,omitempty"`
	Ownership  *string `json:"ownership,omitempty"`
	PolicyDims []int   `json:"policy_dims,omitempty"`

	// benchmark
	SingleMS   float64 `json:"single_ms,omitempty"`
	Batch8MS   float64 `json:"batch8_ms,omitempty"`
	Batch8InfS float64 `json:"batch8_inf_s,omitempty"`
}

// EncodeFloats encodes a float32 slice as base64 of its little-endian
// bytes. Tensors cross the pipe this way because numeric JSON arrays are an
// order of magnitude slower to (de)serialize at batch sizes.
func EncodeFloats(data []float32) string {
	buf := make([]byte, 4*len(data))
	for i, f := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeFloats decodes a base64 string into little-endian float32 values.
// A byte length that is not a multiple of 4 is a decode error.
func DecodeFloats(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrDecode("base64: " + err.Error())
	}
	if len(raw)%4 != 0 {
		return nil, ErrDecode(fmt.Sprintf("float buffer length %d is not a multiple of 4", len(raw)))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
