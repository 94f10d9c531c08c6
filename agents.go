package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/aktagon/llmkit/anthropic/agents"
	"go.uber.org/zap"
)

// Agent drivers
const (
	DriverCLI = "cli"
	DriverAPI = "api"
)

// ErrExitTimeout is returned when an agent process outlives its exit deadline
var ErrExitTimeout = errors.New("timed out waiting for agent exit")

// AgentError records which agent failed, in which loop, doing what
type AgentError struct {
	Agent string
	Loop  int
	Op    string
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s %s in loop %d: %v", e.Op, e.Agent, e.Loop, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// AgentSpec is one side of a loop's exchange
type AgentSpec struct {
	Name   string
	Peer   string
	Token  string
	Outbox string // mailbox this agent writes
	Inbox  string // mailbox this agent reads
	Loop   int
}

// AgentExit is what was observed when an agent finished
type AgentExit struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// AgentProcess is a launched agent
type AgentProcess interface {
	Wait(ctx context.Context) (AgentExit, error)
	Terminate() error
}

// AgentDriver launches agents for the coordinator
type AgentDriver interface {
	Launch(ctx context.Context, spec AgentSpec, instructions string) (AgentProcess, error)
}

// PromptData is the data available to instruction templates
type PromptData struct {
	Loop    int
	Loops   int
	Agent   string
	Peer    string
	Token   string
	Outbox  string
	Inbox   string
	ChatLog string
}

// renderPrompt executes a text/template prompt
func renderPrompt(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing %s prompt: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

// CLIDriver spawns `<command> --agent <name> --message <instructions>`.
// The agent's name, peer, loop and outbox are also exported as AGENT_* variables.
type CLIDriver struct {
	Command string
	Dir     string
	logger  *zap.Logger
}

// NewCLIDriver creates a CLIDriver running command inside dir
func NewCLIDriver(command, dir string, logger *zap.Logger) *CLIDriver {
	return &CLIDriver{Command: command, Dir: dir, logger: logger}
}

// Launch starts the agent process and returns immediately
func (d *CLIDriver) Launch(ctx context.Context, spec AgentSpec, instructions string) (AgentProcess, error) {
	args := []string{"--agent", spec.Name, "--message", instructions}
	d.logger.Debug("Launching agent process",
		zap.String("agent", spec.Name),
		zap.String("command", d.Command),
		zap.Int("loop", spec.Loop))

	env := map[string]string{
		"AGENT_NAME":   spec.Name,
		"AGENT_PEER":   spec.Peer,
		"AGENT_LOOP":   strconv.Itoa(spec.Loop),
		"AGENT_OUTBOX": spec.Outbox,
	}
	proc, err := StartProcess(ctx, d.Command, args, RunOpts{Dir: d.Dir, Env: env})
	if err != nil {
		return nil, err
	}
	return &cliAgent{proc: proc}, nil
}

type cliAgent struct {
	proc *Process
}

func (a *cliAgent) Wait(ctx context.Context) (AgentExit, error) {
	res, err := a.proc.Wait(ctx)
	if err != nil {
		return AgentExit{}, err
	}
	return AgentExit{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

func (a *cliAgent) Terminate() error {
	return a.proc.Terminate()
}

// chatFunc sends one message and returns the reply text
type chatFunc func(message string, opts *agents.ChatOptions) (string, error)

// APIDriver plays an agent through the Anthropic API.
// The model cannot touch files, so the driver performs the file protocol
// with whatever the model replied; the coordinator's token check then
// decides whether the reply was right.
type APIDriver struct {
	chat         chatFunc
	settings     APISettings
	systemPrompt string
	chatLog      *ChatLog
	logger       *zap.Logger
}

// NewAPIDriver creates an APIDriver backed by an llmkit chat agent
func NewAPIDriver(apiKey string, settings APISettings, systemPrompt string, chatLog *ChatLog, logger *zap.Logger) (*APIDriver, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required for the api driver")
	}
	agent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating chat agent: %w", err)
	}

	chat := func(message string, opts *agents.ChatOptions) (string, error) {
		response, err := agent.Chat(message, opts)
		if err != nil {
			return "", err
		}
		return response.Text, nil
	}

	return &APIDriver{
		chat:         chat,
		settings:     settings,
		systemPrompt: systemPrompt,
		chatLog:      chatLog,
		logger:       logger,
	}, nil
}

// Launch sends the instructions in the background and returns immediately
func (d *APIDriver) Launch(ctx context.Context, spec AgentSpec, instructions string) (AgentProcess, error) {
	systemPrompt, err := renderPrompt("api-system", d.systemPrompt, PromptData{
		Loop:  spec.Loop,
		Agent: spec.Name,
		Peer:  spec.Peer,
		Token: spec.Token,
	})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	a := &apiAgent{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer cancel()
		defer close(a.done)
		d.logger.Debug("→ Prompting agent", zap.String("agent", spec.Name), zap.Int("loop", spec.Loop))

		reply, err := d.chat(instructions, &agents.ChatOptions{
			SystemPrompt: systemPrompt,
			MaxTokens:    d.settings.MaxTokens,
			Temperature:  d.settings.Temperature,
		})
		if err != nil {
			a.exit = AgentExit{ExitCode: 1, Stderr: err.Error()}
			return
		}
		reply = strings.TrimSpace(reply)
		a.exit.Stdout = reply

		// Terminated agents must not write late replies into the next loop's files
		if runCtx.Err() != nil {
			a.exit.ExitCode = 1
			a.exit.Stderr = runCtx.Err().Error()
			return
		}
		if err := NewMailbox(spec.Outbox, 0).Write(reply); err != nil {
			a.exit = AgentExit{ExitCode: 1, Stdout: reply, Stderr: err.Error()}
			return
		}
		if err := d.chatLog.Line(fmt.Sprintf("%s: %s", spec.Name, reply)); err != nil {
			a.exit = AgentExit{ExitCode: 1, Stdout: reply, Stderr: err.Error()}
			return
		}
		d.logger.Debug("✓ Agent replied", zap.String("agent", spec.Name), zap.String("reply", reply))
	}()

	return a, nil
}

type apiAgent struct {
	done   chan struct{}
	cancel context.CancelFunc
	exit   AgentExit
}

func (a *apiAgent) Wait(ctx context.Context) (AgentExit, error) {
	select {
	case <-a.done:
		return a.exit, nil
	case <-ctx.Done():
		return AgentExit{}, ctx.Err()
	}
}

func (a *apiAgent) Terminate() error {
	a.cancel()
	return nil
}
