package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const entryTimeFormat = "2006-01-02 15:04:05 UTC"

var (
	headerRegex        = regexp.MustCompile(`^=== Loop (\d+)/\d+ - (.+) ===`)
	promptRegex        = regexp.MustCompile(`^Prompt: (.+)`)
	responseStartRegex = regexp.MustCompile(`^Response:`)
	errorStartRegex    = regexp.MustCompile(`^Errors:`)
	executionTimeRegex = regexp.MustCompile(`^Execution time: (.+)`)
	separatorRegex     = regexp.MustCompile(`^---`)
)

// ParseLogFile reads the entries of a runner log
func ParseLogFile(filename string) ([]LogEntry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	return ParseLog(file)
}

type section int

const (
	sectionNone section = iota
	sectionResponse
	sectionErrors
)

// ParseLog splits r into entries and extracts both agents' responses.
// An unparsable header timestamp leaves the entry's Timestamp zero.
func ParseLog(r io.Reader) ([]LogEntry, error) {
	var (
		entries  []LogEntry
		current  LogEntry
		open     bool
		in       section
		response strings.Builder
		errs     strings.Builder
	)

	flush := func() {
		if !open {
			return
		}
		current.RawResponse = strings.TrimSpace(response.String())
		current.Errors = strings.TrimSpace(errs.String())
		current.MainAgentResponse, current.SubAgentResponse = extractBothAgentResponses(current.RawResponse)
		entries = append(entries, current)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if matches := headerRegex.FindStringSubmatch(line); matches != nil {
			flush()

			loop, _ := strconv.Atoi(matches[1])
			timestamp, err := time.Parse(entryTimeFormat, matches[2])
			if err != nil {
				timestamp = time.Time{}
			}
			current = LogEntry{Loop: loop, Timestamp: timestamp}
			open = true
			in = sectionNone
			response.Reset()
			errs.Reset()
			continue
		}
		if !open {
			continue
		}

		switch {
		case in != sectionResponse && promptRegex.MatchString(line):
			current.Prompt = promptRegex.FindStringSubmatch(line)[1]
		case responseStartRegex.MatchString(line):
			in = sectionResponse
			response.Reset()
		case errorStartRegex.MatchString(line):
			in = sectionErrors
		case executionTimeRegex.MatchString(line):
			duration, _ := time.ParseDuration(executionTimeRegex.FindStringSubmatch(line)[1])
			current.ExecutionTime = duration
			in = sectionNone
		case separatorRegex.MatchString(line):
			in = sectionNone
		case strings.TrimSpace(line) == "":
		case in == sectionResponse:
			appendLine(&response, line)
		case in == sectionErrors:
			appendLine(&errs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	flush()

	return entries, nil
}

func appendLine(b *strings.Builder, line string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(line)
}
