package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	eventTimeFormat  = "2006-01-02 15:04:05.000"
	reportTimeFormat = "2006-01-02 15:04:05"
)

// ChatLog is the append-only transcript shared by the coordinator and the agents
type ChatLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewChatLog creates a ChatLog writing to path
func NewChatLog(path string) *ChatLog {
	return &ChatLog{path: path, now: time.Now}
}

// Path returns the file the log appends to
func (l *ChatLog) Path() string {
	return l.path
}

// Event appends a millisecond-timestamped line
func (l *ChatLog) Event(msg string) error {
	return l.Append(fmt.Sprintf("[%s] %s\n", l.Timestamp(), msg))
}

// Line appends msg followed by a newline
func (l *ChatLog) Line(msg string) error {
	return l.Append(msg + "\n")
}

// Append writes content as-is; each call lands in the file as one unit
func (l *ChatLog) Append(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening chat log: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("appending to chat log: %w", err)
	}
	return nil
}

// Timestamp formats the current time the way event lines do
func (l *ChatLog) Timestamp() string {
	return l.now().Format(eventTimeFormat)
}

// LineCount counts lines, including a final line without a trailing newline
func (l *ChatLog) LineCount() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return countLines(file)
}

func countLines(r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	buf := make([]byte, 32*1024)
	count := 0
	last := byte('\n')
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}
