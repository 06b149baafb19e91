package sidecar

import "errors"

// spawnFailureError signals that the interpreter or script could not be started.
type spawnFailureError struct{ msg string }

func (e spawnFailureError) Error() string { return "spawn sidecar: " + e.msg }

// ErrSpawnFailure constructs a spawnFailureError.
func ErrSpawnFailure(msg string) error { return spawnFailureError{msg: msg} }

// IsSpawnFailure reports whether err indicates a failed process start.
func IsSpawnFailure(err error) bool {
	var e spawnFailureError
	return errors.As(err, &e)
}

// scriptNotFoundError signals that no sidecar script exists at any known location.
type scriptNotFoundError struct{}

func (scriptNotFoundError) Error() string { return "inference sidecar script not found" }

// ErrScriptNotFound constructs a scriptNotFoundError.
func ErrScriptNotFound() error { return scriptNotFoundError{} }

// IsScriptNotFound reports whether err indicates a missing sidecar script.
func IsScriptNotFound(err error) bool {
	var e scriptNotFoundError
	return errors.As(err, &e)
}

// protocolError signals malformed or unexpected data on the wire.
type protocolError struct{ msg string }

func (e protocolError) Error() string { return "sidecar protocol: " + e.msg }

// ErrProtocol constructs a protocolError.
func ErrProtocol(msg string) error { return protocolError{msg: msg} }

// IsProtocol reports whether err indicates a malformed protocol exchange.
func IsProtocol(err error) bool {
	var e protocolError
	return errors.As(err, &e)
}

// processDiedError signals a closed pipe or unexpected sidecar exit.
type processDiedError struct{ msg string }

func (e processDiedError) Error() string { return "sidecar process died: " + e.msg }

// ErrProcessDied constructs a processDiedError.
func ErrProcessDied(msg string) error { return processDiedError{msg: msg} }

// IsProcessDied reports whether err indicates the sidecar process is gone.
func IsProcessDied(err error) bool {
	var e processDiedError
	return errors.As(err, &e)
}

// notInitializedError signals an operation on an engine without a live handle.
type notInitializedError struct{}

func (notInitializedError) Error() string { return "sidecar engine not initialized" }

// ErrNotInitialized constructs a notInitializedError.
func ErrNotInitialized() error { return notInitializedError{} }

// IsNotInitialized reports whether err indicates a missing engine handle.
func IsNotInitialized(err error) bool {
	var e notInitializedError
	return errors.As(err, &e)
}

// remoteError carries an error string reported by the sidecar itself
// (an ok:false response). The message is surfaced verbatim.
type remoteError struct{ msg string }

func (e remoteError) Error() string { return "sidecar: " + e.msg }

// ErrRemote constructs a remoteError.
func ErrRemote(msg string) error { return remoteError{msg: msg} }

// IsRemote reports whether err was reported by the sidecar process.
func IsRemote(err error) bool {
	var e remoteError
	return errors.As(err, &e)
}

// decodeError signals a malformed base64 or float buffer.
type decodeError struct{ msg string }

func (e decodeError) Error() string { return "decode tensor: " + e.msg }

// ErrDecode constructs a decodeError.
func ErrDecode(msg string) error { return decodeError{msg: msg} }

// IsDecode reports whether err indicates a malformed tensor payload.
func IsDecode(err error) bool {
	var e decodeError
	return errors.As(err, &e)
}
