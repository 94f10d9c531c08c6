package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".agent-reliability"

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath       *string
	SenderPromptPath   *string
	ReceiverPromptPath *string
	RunnerPromptPath   *string
}

// Embedded configuration files
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/prompts/sender.md
var defaultSenderPrompt string

//go:embed config/prompts/receiver.md
var defaultReceiverPrompt string

//go:embed config/prompts/runner.md
var defaultRunnerPrompt string

//go:embed config/prompts/api-system.md
var defaultAPISystemPrompt string

// AgentSettings names one side of the exchange and the token it must deliver
type AgentSettings struct {
	Name  string `yaml:"name" toml:"name"`
	Token string `yaml:"token" toml:"token"`
}

// APISettings configures the API-backed agent driver
type APISettings struct {
	Model       string  `yaml:"model" toml:"model"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	TestDir   string `yaml:"test_dir" toml:"test_dir"`
	ChatLog   string `yaml:"chat_log" toml:"chat_log"`
	HistoryDB string `yaml:"history_db" toml:"history_db"`
	Loops     int    `yaml:"loops" toml:"loops"`
	Mailbox   struct {
		ToReceiver   string        `yaml:"to_receiver" toml:"to_receiver"`
		ToSender     string        `yaml:"to_sender" toml:"to_sender"`
		PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	} `yaml:"mailbox" toml:"mailbox"`
	Agents struct {
		Driver   string        `yaml:"driver" toml:"driver"`
		Command  string        `yaml:"command" toml:"command"`
		Sender   AgentSettings `yaml:"sender" toml:"sender"`
		Receiver AgentSettings `yaml:"receiver" toml:"receiver"`
		API      APISettings   `yaml:"api" toml:"api"`
	} `yaml:"agents" toml:"agents"`
	Timeouts struct {
		Message   time.Duration `yaml:"message" toml:"message"`
		Exit      time.Duration `yaml:"exit" toml:"exit"`
		LoopPause time.Duration `yaml:"loop_pause" toml:"loop_pause"`
	} `yaml:"timeouts" toml:"timeouts"`
	Runner struct {
		Command   string        `yaml:"command" toml:"command"`
		Args      []string      `yaml:"args" toml:"args"`
		Pause     time.Duration `yaml:"pause" toml:"pause"`
		BatchSize int           `yaml:"batch_size" toml:"batch_size"`
	} `yaml:"runner" toml:"runner"`
	Simulate struct {
		StepDelay time.Duration `yaml:"step_delay" toml:"step_delay"`
		LoopPause time.Duration `yaml:"loop_pause" toml:"loop_pause"`
	} `yaml:"simulate" toml:"simulate"`
}

// ChatLogPath returns the chat log location inside the test directory
func (s *Settings) ChatLogPath() string {
	return s.resolve(s.ChatLog)
}

// ToReceiverPath returns the mailbox the sender writes to
func (s *Settings) ToReceiverPath() string {
	return s.resolve(s.Mailbox.ToReceiver)
}

// ToSenderPath returns the mailbox the receiver writes to
func (s *Settings) ToSenderPath() string {
	return s.resolve(s.Mailbox.ToSender)
}

func (s *Settings) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.TestDir, name)
}

// Validate checks the settings a run depends on
func (s *Settings) Validate() error {
	if s.Loops <= 0 {
		return fmt.Errorf("loops must be positive, got %d", s.Loops)
	}
	if s.Mailbox.PollInterval <= 0 {
		return fmt.Errorf("mailbox.poll_interval must be positive")
	}
	if s.Timeouts.Message <= 0 {
		return fmt.Errorf("timeouts.message must be positive")
	}
	if s.Timeouts.Exit <= 0 {
		return fmt.Errorf("timeouts.exit must be positive")
	}
	if strings.TrimSpace(s.Mailbox.ToReceiver) == "" || strings.TrimSpace(s.Mailbox.ToSender) == "" {
		return fmt.Errorf("mailbox file names are required")
	}
	if s.Mailbox.ToReceiver == s.Mailbox.ToSender {
		return fmt.Errorf("mailbox.to_receiver and mailbox.to_sender must differ (both %q)", s.Mailbox.ToSender)
	}
	sides := []struct {
		field string
		agent AgentSettings
	}{
		{"sender", s.Agents.Sender},
		{"receiver", s.Agents.Receiver},
	}
	for _, side := range sides {
		if strings.TrimSpace(side.agent.Name) == "" {
			return fmt.Errorf("agents.%s.name is required", side.field)
		}
		if strings.TrimSpace(side.agent.Token) == "" {
			return fmt.Errorf("agents.%s.token is required", side.field)
		}
	}
	switch s.Agents.Driver {
	case DriverCLI, DriverAPI:
	default:
		return fmt.Errorf("agents.driver must be %q or %q, got %q", DriverCLI, DriverAPI, s.Agents.Driver)
	}
	return nil
}

// Config holds configuration and overrides
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
}

// NewConfig loads settings, honoring an explicit settings path if given
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	var (
		settings *Settings
		err      error
	)
	if overrides != nil && overrides.SettingsPath != nil {
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
	} else {
		if err := ensureConfigExists(); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
		settings, err = loadSettings(getConfigPath("settings.yaml"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &Config{
		Settings:  settings,
		Overrides: overrides,
	}, nil
}

// GetSenderPrompt returns the sender instructions template (from override file or embedded)
func (c *Config) GetSenderPrompt() (string, error) {
	return c.overridable(c.senderPath(), defaultSenderPrompt)
}

// GetReceiverPrompt returns the receiver instructions template (from override file or embedded)
func (c *Config) GetReceiverPrompt() (string, error) {
	return c.overridable(c.receiverPath(), defaultReceiverPrompt)
}

// GetRunnerPrompt returns the runner prompt template (from override file or embedded)
func (c *Config) GetRunnerPrompt() (string, error) {
	return c.overridable(c.runnerPath(), defaultRunnerPrompt)
}

// GetAPISystemPrompt returns the system prompt for API-backed agents (embedded only for now)
func (c *Config) GetAPISystemPrompt() string {
	return defaultAPISystemPrompt
}

func (c *Config) senderPath() *string {
	if c.Overrides == nil {
		return nil
	}
	return c.Overrides.SenderPromptPath
}

func (c *Config) receiverPath() *string {
	if c.Overrides == nil {
		return nil
	}
	return c.Overrides.ReceiverPromptPath
}

func (c *Config) runnerPath() *string {
	if c.Overrides == nil {
		return nil
	}
	return c.Overrides.RunnerPromptPath
}

// overridable reads path when set; an explicit override that cannot be read is an error
func (c *Config) overridable(path *string, fallback string) (string, error) {
	if path == nil || *path == "" {
		return fallback, nil
	}
	content, err := os.ReadFile(*path)
	if err != nil {
		return "", fmt.Errorf("reading prompt override %s: %w", *path, err)
	}
	return string(content), nil
}

// loadSettings loads settings from path, falling back to the embedded defaults if it doesn't exist
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if os.IsNotExist(err) {
		return parseSettings(settingsPath, []byte(defaultSettings))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", settingsPath, err)
	}
	return parseSettings(settingsPath, data)
}

// loadSettingsRequired loads settings from path, failing if the file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", settingsPath, err)
	}
	return parseSettings(settingsPath, data)
}

// parseSettings decodes data on top of the embedded defaults so partial files keep the rest
func parseSettings(path string, data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse embedded settings: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
		}
	}

	if settings.TestDir == "" {
		settings.TestDir = "."
	}
	return &settings, nil
}

// getConfigPath returns the path to a config file in .agent-reliability directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and default files if they don't exist
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	return nil
}
