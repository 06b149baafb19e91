package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSpawnFailure(t *testing.T) {
	_, err := spawnSidecar("/nonexistent-interpreter", "script.py", zerolog.Nop())
	if !IsSpawnFailure(err) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
}

func TestFindScriptMissing(t *testing.T) {
	if _, err := findScript(); !IsScriptNotFound(err) {
		t.Fatalf("expected script not found, got %v", err)
	}
}

func TestFindScriptSourcePath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pytorch_inference.py")
	if err := os.WriteFile(p, []byte("# stub\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := sourceScriptPath
	sourceScriptPath = p
	defer func() { sourceScriptPath = old }()

	got, err := findScript()
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != p {
		t.Fatalf("got %q, want %q", got, p)
	}
}

func TestRoundTripLockstep(t *testing.T) {
	script := writeStubSidecar(t, `{"ok":true,"provider":"one"}`, `{"ok":true,"provider":"two"}`)
	proc, err := spawnSidecar("/bin/sh", script, zerolog.Nop())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer proc.terminate()

	// One response line per command line, in order.
	first, err := proc.roundTrip(command{Cmd: "init", ModelPath: "a"})
	if err != nil {
		t.Fatalf("first round trip: %v", err)
	}
	second, err := proc.roundTrip(command{Cmd: "init", ModelPath: "b"})
	if err != nil {
		t.Fatalf("second round trip: %v", err)
	}
	if first.Provider != "one" || second.Provider != "two" {
		t.Fatalf("responses out of order: %q then %q", first.Provider, second.Provider)
	}
}

func TestRoundTripRemoteErrorDefaultsMessage(t *testing.T) {
	script := writeStubSidecar(t, `{"ok":false}`)
	proc, err := spawnSidecar("/bin/sh", script, zerolog.Nop())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer proc.terminate()

	_, err = proc.roundTrip(command{Cmd: "init"})
	if !IsRemote(err) {
		t.Fatalf("expected remote error, got %v", err)
	}
}
