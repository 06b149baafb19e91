package sidecar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// scriptName is the sidecar entry point looked up by findScript.
const scriptName = "pytorch_inference.py"

// sourceScriptPath is the build-time-known location of the sidecar script
// in the source tree, the last resort of script discovery. Override with
// -ldflags "-X kayad/internal/sidecar.sourceScriptPath=...".
var sourceScriptPath = "scripts/" + scriptName

// findScript locates the sidecar script: a scripts/ directory next to the
// running executable (packaged layout), then the development tree resolved
// from the executable location, then the build-time source path. First
// existing match wins.
func findScript() (string, error) {
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		packaged := filepath.Join(exeDir, "scripts", scriptName)
		if _, err := os.Stat(packaged); err == nil {
			return packaged, nil
		}
		dev := filepath.Join(exeDir, "..", "..", "scripts", scriptName)
		if _, err := os.Stat(dev); err == nil {
			return filepath.Abs(dev)
		}
	}
	if _, err := os.Stat(sourceScriptPath); err == nil {
		return sourceScriptPath, nil
	}
	return "", ErrScriptNotFound()
}

// sidecarProcess exclusively owns one spawned interpreter and its two pipe
// endpoints. It lives from a successful spawn until terminate.
type sidecarProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	log    zerolog.Logger
}

// spawnSidecar launches the interpreter with piped stdin/stdout. Stderr is
// inherited so sidecar logs stay visible to the operator.
func spawnSidecar(interpreter, scriptPath string, log zerolog.Logger) (*sidecarProcess, error) {
	cmd := exec.Command(interpreter, scriptPath)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, ErrSpawnFailure("stdin pipe: " + err.Error())
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ErrSpawnFailure("stdout pipe: " + err.Error())
	}
	if err := cmd.Start(); err != nil {
		spawnsTotal.WithLabelValues("error").Inc()
		return nil, ErrSpawnFailure(err.Error())
	}
	spawnsTotal.WithLabelValues("ok").Inc()
	log.Info().Int("pid", cmd.Process.Pid).Str("script", scriptPath).Msg("sidecar started")
	return &sidecarProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		log:    log,
	}, nil
}

func (p *sidecarProcess) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// writeLine writes one command line, newline-terminated.
func (p *sidecarProcess) writeLine(line []byte) error {
	if _, err := p.stdin.Write(append(line, '\n')); err != nil {
		return ErrProcessDied("write: " + err.Error())
	}
	return nil
}

// readLine blocks until one full response line arrives. An empty read means
// the sidecar closed its output stream; that is never a valid response.
func (p *sidecarProcess) readLine() ([]byte, error) {
	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		if len(bytes.TrimSpace(line)) == 0 {
			return nil, ErrProcessDied("output stream closed")
		}
		return nil, ErrProcessDied("read: " + err.Error())
	}
	return bytes.TrimSpace(line), nil
}

// roundTrip sends one command and reads exactly one response line. The
// caller must hold the engine lock; once the command is written we are
// committed to reading its response.
func (p *sidecarProcess) roundTrip(c command) (response, error) {
	start := time.Now()
	payload, err := json.Marshal(c)
	if err != nil {
		return response{}, ErrProtocol("marshal command: " + err.Error())
	}
	if err := p.writeLine(payload); err != nil {
		roundTripsTotal.WithLabelValues(c.Cmd, "error").Inc()
		return response{}, err
	}
	line, err := p.readLine()
	if err != nil {
		roundTripsTotal.WithLabelValues(c.Cmd, "error").Inc()
		return response{}, err
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		roundTripsTotal.WithLabelValues(c.Cmd, "error").Inc()
		return response{}, ErrProtocol("unmarshal response: " + err.Error() + " (raw: " + string(line) + ")")
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		roundTripsTotal.WithLabelValues(c.Cmd, "remote_error").Inc()
		return response{}, ErrRemote(msg)
	}
	roundTripsTotal.WithLabelValues(c.Cmd, "ok").Inc()
	commandDuration.WithLabelValues(c.Cmd).Observe(time.Since(start).Seconds())
	return resp, nil
}

// terminate force-kills the sidecar and reaps it. Idempotent enough for the
// dispose path: errors are ignored because the process may already be gone.
func (p *sidecarProcess) terminate() {
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	p.log.Info().Int("pid", p.pid()).Msg("sidecar terminated")
}
