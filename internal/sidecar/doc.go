// Package sidecar runs neural-network inference in an external, GPU-capable
// Python process and speaks to it over pipes. It is structured into small
// files by concern:
//
//   - engine.go: Engine lifecycle (probe, initialize, infer, benchmark,
//     dispose) behind a single exclusive lock.
//   - process.go: script discovery, process spawn, and the blocking
//     line-oriented pipe primitives.
//   - codec.go: wire command/response types and the base64 float32 codec.
//   - errors.go: error taxonomy and predicates.
//   - metrics.go: prometheus instrumentation.
//
// The wire protocol is strict lockstep: every command line is answered by
// exactly one response line, with no pipelining and no unsolicited output.
// All I/O is blocking and no timeout is applied at this layer; a hung
// sidecar blocks the caller until the process dies or is disposed. Callers
// must run these operations off any responsiveness-critical goroutine.
package sidecar
