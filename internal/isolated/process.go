package isolated

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// process wraps one spawned worker process: a descriptor encoder onto its
// stdin and a resultTuple decoder off its stdout, JSON-line framed. There
// is no generated-stub wire format here (no protobuf/gRPC in this pack —
// see DESIGN.md) — encoding/json over a plain pipe is the idiomatic
// substitute.
type process struct {
	name string
	cmd  *exec.Cmd

	encMu sync.Mutex
	enc   *json.Encoder
	dec   *json.Decoder
}

func spawnProcess(name, binaryPath string, args []string) (*process, error) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("isolated: stdin pipe for %s: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("isolated: stdout pipe for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("isolated: start %s: %w", name, err)
	}

	return &process{
		name: name,
		cmd:  cmd,
		enc:  json.NewEncoder(stdin),
		dec:  json.NewDecoder(stdout),
	}, nil
}

func (p *process) sendDescriptor(d descriptor) error {
	p.encMu.Lock()
	defer p.encMu.Unlock()
	return p.enc.Encode(d)
}

// readResult blocks until a result tuple arrives or the process's stdout
// closes (ok == false, e.g. after terminate).
func (p *process) readResult() (resultTuple, bool) {
	var t resultTuple
	if err := p.dec.Decode(&t); err != nil {
		if err != io.EOF {
			// Process died or wrote garbage; treat as a closed pipe.
		}
		return resultTuple{}, false
	}
	return t, true
}

// terminate kills the process. A worker process would also exit on its own
// once its stdin closes, but terminate-then-join (§4.4) is implemented as a
// hard kill rather than by closing stdin and waiting for it to drain.
func (p *process) terminate() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *process) join() {
	_ = p.cmd.Wait()
}
