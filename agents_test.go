package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aktagon/llmkit/anthropic/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderPrompt(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"fields", "loop {{.Loop}}/{{.Loops}}: {{.Agent}} -> {{.Peer}} says {{.Token}}", "loop 2/5: python-pro -> fullstack-developer says hello", false},
		{"paths", "{{.Outbox}} {{.Inbox}} {{.ChatLog}}", "out.txt in.txt chat.log", false},
		{"unknown field", "{{.Nope}}", "", true},
		{"parse error", "{{.Loop", "", true},
	}

	data := PromptData{
		Loop: 2, Loops: 5,
		Agent: "python-pro", Peer: "fullstack-developer", Token: "hello",
		Outbox: "out.txt", Inbox: "in.txt", ChatLog: "chat.log",
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderPrompt("test", tt.text, data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("renderPrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("renderPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultPromptsRender(t *testing.T) {
	data := PromptData{Loop: 1, Loops: 1, Agent: "a", Peer: "b", Token: "t", Outbox: "o", Inbox: "i", ChatLog: "c"}
	for name, text := range map[string]string{
		"sender":     defaultSenderPrompt,
		"receiver":   defaultReceiverPrompt,
		"api-system": defaultAPISystemPrompt,
	} {
		if _, err := renderPrompt(name, text, data); err != nil {
			t.Errorf("default %s prompt does not render: %v", name, err)
		}
	}
}

func TestAgentErrorUnwrap(t *testing.T) {
	cause := errors.New("exec: not found")
	err := &AgentError{Agent: "python-pro", Loop: 3, Op: "launch", Err: cause}

	assert.Equal(t, "launch python-pro in loop 3: exec: not found", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestCLIDriverLaunch(t *testing.T) {
	dir := t.TempDir()
	// records its arguments one per line and its environment, then writes the token to the outbox
	script := writeScript(t, dir, "agent-cli", `for a in "$@"; do echo "$a"; done > args.txt
echo "$AGENT_NAME $AGENT_PEER $AGENT_LOOP $AGENT_OUTBOX" > env.txt
echo hello > outbox.txt`)

	driver := NewCLIDriver(script, dir, zap.NewNop())
	spec := AgentSpec{Name: "python-pro", Peer: "fullstack-developer", Token: "hello", Outbox: "outbox.txt", Loop: 3}

	proc, err := driver.Launch(context.Background(), spec, "write hello\nto the outbox")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exit, err := proc.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, exit.ExitCode)

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "--agent\npython-pro\n--message\nwrite hello\nto the outbox\n", string(args))

	env, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "python-pro fullstack-developer 3 outbox.txt\n", string(env))

	out, err := os.ReadFile(filepath.Join(dir, "outbox.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(string(out)))
}

func TestCLIDriverLaunchMissingCommand(t *testing.T) {
	driver := NewCLIDriver(filepath.Join(t.TempDir(), "missing"), "", zap.NewNop())
	_, err := driver.Launch(context.Background(), AgentSpec{Name: "python-pro"}, "hi")
	assert.Error(t, err)
}

func TestNewAPIDriverRequiresKey(t *testing.T) {
	_, err := NewAPIDriver("", APISettings{}, defaultAPISystemPrompt, NewChatLog(filepath.Join(t.TempDir(), "chat.log")), zap.NewNop())
	assert.Error(t, err)
}

func newTestAPIDriver(t *testing.T, chat chatFunc) (*APIDriver, *ChatLog, string) {
	t.Helper()
	dir := t.TempDir()
	chatLog := NewChatLog(filepath.Join(dir, "chat.log"))
	return &APIDriver{
		chat:         chat,
		settings:     APISettings{MaxTokens: 200},
		systemPrompt: defaultAPISystemPrompt,
		chatLog:      chatLog,
		logger:       zap.NewNop(),
	}, chatLog, dir
}

func awaitAgent(t *testing.T, proc AgentProcess) AgentExit {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exit, err := proc.Wait(ctx)
	require.NoError(t, err)
	return exit
}

func TestAPIDriverPerformsFileProtocol(t *testing.T) {
	var gotMessage string
	var gotOpts *agents.ChatOptions
	driver, chatLog, dir := newTestAPIDriver(t, func(message string, opts *agents.ChatOptions) (string, error) {
		gotMessage, gotOpts = message, opts
		return "  hello \n", nil
	})

	outbox := filepath.Join(dir, "message_to_fullstack.txt")
	spec := AgentSpec{Name: "python-pro", Peer: "fullstack-developer", Token: "hello", Outbox: outbox, Loop: 1}
	proc, err := driver.Launch(context.Background(), spec, "say hello")
	require.NoError(t, err)

	exit := awaitAgent(t, proc)
	assert.Equal(t, 0, exit.ExitCode)
	assert.Equal(t, "hello", exit.Stdout)
	assert.Equal(t, "say hello", gotMessage)
	require.NotNil(t, gotOpts)
	assert.Contains(t, gotOpts.SystemPrompt, "python-pro")
	assert.Equal(t, 200, gotOpts.MaxTokens)

	content, err := os.ReadFile(outbox)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	logged, err := os.ReadFile(chatLog.Path())
	require.NoError(t, err)
	assert.Equal(t, "python-pro: hello\n", string(logged))
}

func TestAPIDriverChatError(t *testing.T) {
	driver, _, dir := newTestAPIDriver(t, func(string, *agents.ChatOptions) (string, error) {
		return "", errors.New("rate limited")
	})

	outbox := filepath.Join(dir, "outbox.txt")
	proc, err := driver.Launch(context.Background(), AgentSpec{Name: "python-pro", Outbox: outbox}, "say hello")
	require.NoError(t, err)

	exit := awaitAgent(t, proc)
	assert.Equal(t, 1, exit.ExitCode)
	assert.Contains(t, exit.Stderr, "rate limited")
	assert.NoFileExists(t, outbox)
}

func TestAPIDriverTerminatedDoesNotWrite(t *testing.T) {
	release := make(chan struct{})
	driver, chatLog, dir := newTestAPIDriver(t, func(string, *agents.ChatOptions) (string, error) {
		<-release
		return "world", nil
	})

	outbox := filepath.Join(dir, "outbox.txt")
	proc, err := driver.Launch(context.Background(), AgentSpec{Name: "fullstack-developer", Outbox: outbox}, "say world")
	require.NoError(t, err)

	require.NoError(t, proc.Terminate())
	close(release)

	exit := awaitAgent(t, proc)
	assert.Equal(t, 1, exit.ExitCode)
	assert.NoFileExists(t, outbox)
	assert.NoFileExists(t, chatLog.Path())
}

func TestAPIAgentWaitDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	driver, _, dir := newTestAPIDriver(t, func(string, *agents.ChatOptions) (string, error) {
		<-release
		return "late", nil
	})

	proc, err := driver.Launch(context.Background(), AgentSpec{Name: "python-pro", Outbox: filepath.Join(dir, "o.txt")}, "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = proc.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
