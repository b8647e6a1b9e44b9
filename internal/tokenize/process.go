package tokenize

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// Process delegates tokenization to one long-lived external process
// speaking newline-delimited JSON over stdin/stdout: one request line
// {"text": ...} in, one response line {"tokens": [...]} out. The pipe
// carries a single conversation, so calls are serialized under a mutex
// and Concurrent reports false; the batch dispatcher turns that into a
// fail-fast error for multi-worker batches instead of racing the pipe.
type Process struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
	logger *slog.Logger
	closed bool
}

type processRequest struct {
	Text string `json:"text"`
}

type processResponse struct {
	Tokens []string `json:"tokens"`
	Error  string   `json:"error,omitempty"`
}

// NewProcess starts the external tokenizer and waits for it to accept
// the pipe. The process stays up for the lifetime of the Process value;
// call Close to terminate it.
func NewProcess(command string, args ...string) (*Process, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tokenizer process stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tokenizer process stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting tokenizer process %q: %w", command, err)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(stdout),
		logger: slog.Default().With("component", "tokenizer-process"),
	}
	p.logger.Info("tokenizer process started", "command", command, "pid", cmd.Process.Pid)
	return p, nil
}

func (p *Process) Tokenize(text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("tokenizer process is closed")
	}
	if err := p.enc.Encode(processRequest{Text: text}); err != nil {
		return nil, fmt.Errorf("writing to tokenizer process: %w", err)
	}
	var resp processResponse
	if err := p.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading from tokenizer process: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("tokenizer process: %s", resp.Error)
	}
	return resp.Tokens, nil
}

// Concurrent reports false: the process holds one stdin/stdout
// conversation and cannot serve interleaved callers.
func (p *Process) Concurrent() bool { return false }

// Close shuts the pipe and reaps the child process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("tokenizer process exit: %w", err)
	}
	return nil
}
