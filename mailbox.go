package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrMessageTimeout is returned when a mailbox never receives the expected content
var ErrMessageTimeout = errors.New("timed out waiting for message")

const defaultPollInterval = 100 * time.Millisecond

// Mailbox is a scratch file one agent overwrites and the other polls
type Mailbox struct {
	Path         string
	PollInterval time.Duration
}

// NewMailbox creates a Mailbox for path
func NewMailbox(path string, pollInterval time.Duration) *Mailbox {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Mailbox{Path: path, PollInterval: pollInterval}
}

// Clear truncates the mailbox, creating it if needed
func (m *Mailbox) Clear() error {
	return m.Write("")
}

// Write replaces the mailbox contents
func (m *Mailbox) Write(content string) error {
	if err := os.WriteFile(m.Path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.Path, err)
	}
	return nil
}

// Read returns the mailbox contents; a missing file reads as empty
func (m *Mailbox) Read() (string, error) {
	data, err := os.ReadFile(m.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WaitResult is what a mailbox wait observed
type WaitResult struct {
	Content string
	// ReadErrors holds each distinct read failure seen while waiting
	ReadErrors []string
}

// WaitFor blocks until the trimmed contents are non-empty and contain expected.
// An empty expected accepts any content. The file is re-read on every change
// event for its directory and on every poll tick.
func (m *Mailbox) WaitFor(ctx context.Context, expected string, timeout time.Duration) (WaitResult, error) {
	var result WaitResult
	seen := make(map[string]bool)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		// Watch the directory: agents may replace the file instead of writing in place
		if err := watcher.Add(filepath.Dir(m.Path)); err == nil {
			events = watcher.Events
			errs = watcher.Errors
		}
	}

	ticker := time.NewTicker(m.PollInterval)
	defer ticker.Stop()

	check := func() bool {
		content, err := m.Read()
		if err != nil {
			msg := err.Error()
			if !seen[msg] {
				seen[msg] = true
				result.ReadErrors = append(result.ReadErrors, msg)
			}
			return false
		}
		content = strings.TrimSpace(content)
		if content == "" || !strings.Contains(content, expected) {
			return false
		}
		result.Content = content
		return true
	}

	for {
		if check() {
			return result, nil
		}

	wait:
		for {
			select {
			case <-waitCtx.Done():
				if err := ctx.Err(); err != nil {
					return result, err
				}
				return result, ErrMessageTimeout
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(event.Name) == filepath.Clean(m.Path) {
					break wait
				}
			case _, ok := <-errs:
				if !ok {
					errs = nil
				}
			case <-ticker.C:
				break wait
			}
		}
	}
}
