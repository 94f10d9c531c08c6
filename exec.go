package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// terminateGrace is how long a terminated process gets before it is killed
const terminateGrace = 5 * time.Second

// CmdResult holds the result of a command execution
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunOpts holds optional parameters for command execution
type RunOpts struct {
	Dir string            // working directory (optional)
	Env map[string]string // extra environment variables (overlay)
}

// CommandRunner runs an external command to completion.
// A process that exits non-zero is a result, not an error; errors are
// reserved for commands that could not run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// RealRunner is the os/exec implementation of CommandRunner
type RealRunner struct{}

// NewRealRunner creates a new RealRunner
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and captures stdout/stderr
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	cmd := newCommand(ctx, name, args, opts)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, err
	}
	return result, nil
}

func newCommand(ctx context.Context, name string, args []string, opts RunOpts) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	// stdin stays unset so the tool cannot block on an interactive prompt
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminateGrace

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// Process is a started command whose exit can be awaited with a deadline
type Process struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   chan struct{}
	err    error

	mu         sync.Mutex
	terminated bool
}

// StartProcess launches a command without waiting for it
func StartProcess(ctx context.Context, name string, args []string, opts RunOpts) (*Process, error) {
	p := &Process{done: make(chan struct{})}
	p.cmd = newCommand(ctx, name, args, opts)
	p.cmd.Stdout = &p.stdout
	p.cmd.Stderr = &p.stderr

	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Wait blocks until the process exits or ctx ends
func (p *Process) Wait(ctx context.Context) (CmdResult, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return CmdResult{}, ctx.Err()
	}

	result := CmdResult{
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
	}
	if p.err != nil {
		var exitErr *exec.ExitError
		if !errors.As(p.err, &exitErr) {
			return result, p.err
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// Terminate sends SIGTERM; it is a no-op once the process has exited
func (p *Process) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return nil
	}
	p.terminated = true

	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
