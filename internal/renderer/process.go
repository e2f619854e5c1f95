package renderer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/zimalabs/genflow/internal/pricing"
)

// Process manages one renderer subprocess invocation. The prompt is written
// to the subprocess's standard input rather than passed as an argument, so
// long prompts are not subject to argv length limits or shell escaping.
type Process struct {
	binary     string
	translator *Translator

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	ctx       context.Context
	cancel    context.CancelFunc
	eventCh   chan Event
	stderrBuf []byte
	once      sync.Once
	mu        sync.Mutex
	started   bool
	done      chan struct{}
}

// NewProcess creates a Process for the given renderer binary. The context
// bounds the invocation; cancelling it kills the subprocess.
func NewProcess(ctx context.Context, binary string, prices *pricing.Table) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		binary:     binary,
		translator: NewTranslator(prices),
		ctx:        ctx,
		cancel:     cancel,
		eventCh:    make(chan Event, 100),
		done:       make(chan struct{}),
	}
}

// Start launches the renderer subprocess with the given prompt.
func (p *Process) Start(prompt string, opts StartOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("process already started")
	}

	args := []string{
		"--output-format", "stream-json",
		"--print",
		"--verbose",
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}

	p.cmd = exec.CommandContext(p.ctx, p.binary, args...)
	if opts.WorkDir != "" {
		p.cmd.Dir = opts.WorkDir
	}

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	p.started = true

	go func() {
		defer stdin.Close()
		_, _ = io.WriteString(stdin, prompt)
	}()

	go p.readOutput()
	go p.readStderr()

	return nil
}

// readOutput translates stdout lines into normalized events.
func (p *Process) readOutput() {
	defer close(p.eventCh)
	defer close(p.done)

	scanner := bufio.NewScanner(p.stdout)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		for _, event := range p.translator.TranslateLine(scanner.Bytes()) {
			select {
			case p.eventCh <- event:
			case <-p.ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && p.ctx.Err() == nil {
		p.eventCh <- Event{Type: EventError, Err: fmt.Sprintf("read error: %v", err)}
	}
}

// readStderr captures stderr for error reporting.
func (p *Process) readStderr() {
	scanner := bufio.NewScanner(p.stderr)
	buf := make([]byte, 16*1024)
	scanner.Buffer(buf, 256*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		p.mu.Lock()
		p.stderrBuf = append(p.stderrBuf, line...)
		p.stderrBuf = append(p.stderrBuf, '\n')
		p.mu.Unlock()
	}
}

// Events returns the normalized event channel. It is closed when the
// process exits or is killed.
func (p *Process) Events() <-chan Event {
	return p.eventCh
}

// Wait waits for the process to exit and returns any error, including
// captured stderr when the exit was unclean.
func (p *Process) Wait() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("process not started")
	}
	p.mu.Unlock()

	<-p.done

	err := p.cmd.Wait()
	if err == nil {
		return nil
	}

	p.mu.Lock()
	stderr := string(p.stderrBuf)
	p.mu.Unlock()

	msg := fmt.Sprintf("process exited with error: %v", err)
	if p.ctx.Err() != nil {
		msg += fmt.Sprintf(" (context: %v)", p.ctx.Err())
	}
	if stderr != "" {
		msg += fmt.Sprintf("; stderr: %s", stderr)
	}
	return fmt.Errorf("%s", msg)
}

// Kill terminates the process immediately.
func (p *Process) Kill() error {
	p.once.Do(func() {
		p.cancel()
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Stderr returns any captured stderr output.
func (p *Process) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.stderrBuf)
}

// Verify Process implements Renderer at compile time.
var _ Renderer = (*Process)(nil)
