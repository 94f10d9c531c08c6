package main

import (
	"regexp"
	"strings"
)

// ResponseExtractor pulls one agent's part out of a raw response
type ResponseExtractor interface {
	Extract(raw string) (string, bool)
}

// QuotedExtractor takes the first capture group of a pattern
type QuotedExtractor struct {
	Pattern *regexp.Regexp
}

func (e *QuotedExtractor) Extract(raw string) (string, bool) {
	matches := e.Pattern.FindStringSubmatch(raw)
	if matches == nil {
		return "", false
	}
	text := strings.TrimSpace(matches[1])
	return text, text != ""
}

// MultilineExtractor takes everything after a bold label up to a blank
// line, dropping surrounding quotes
type MultilineExtractor struct {
	Pattern *regexp.Regexp
}

func (e *MultilineExtractor) Extract(raw string) (string, bool) {
	matches := e.Pattern.FindStringSubmatch(raw)
	if matches == nil {
		return "", false
	}
	text := strings.TrimSpace(matches[1])
	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.TrimSpace(strings.Trim(text, `"`))
	}
	return text, text != ""
}

// LineScanExtractor collects lines after the first line that starts the
// section, until a line that ends it
type LineScanExtractor struct {
	Starts func(line string) bool
	Label  *regexp.Regexp // text up to and including the label on the start line
	Stops  func(line string) bool
}

func (e *LineScanExtractor) Extract(raw string) (string, bool) {
	var (
		found bool
		parts []string
	)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !found {
			if !e.Starts(line) {
				continue
			}
			found = true
			if loc := e.Label.FindStringIndex(line); loc != nil {
				if rest := cleanFragment(line[loc[1]:]); rest != "" {
					parts = append(parts, rest)
				}
			}
			continue
		}
		if line == "" {
			continue
		}
		if e.Stops(line) {
			break
		}
		parts = append(parts, strings.Trim(line, `"`))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	return text, text != ""
}

// cleanFragment drops the bold markers and quotes left around a label's remainder
func cleanFragment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "**")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// Chain tries extractors in order and returns the first hit
type Chain []ResponseExtractor

func (c Chain) Extract(raw string) string {
	for _, e := range c {
		if text, ok := e.Extract(raw); ok {
			return text
		}
	}
	return ""
}

var mainAgentExtractors = Chain{
	&QuotedExtractor{Pattern: regexp.MustCompile(`\*\*What I told the agent:\*\*[ \t]*"([^"]+)"`)},
	&QuotedExtractor{Pattern: regexp.MustCompile(`(?s)\*\*What I told the agent:\*\*\s*\n\s*"([^"]+)"`)},
	&MultilineExtractor{Pattern: regexp.MustCompile(`(?s)\*\*What I told the agent:\*\*\s*(.+?)(?:\n\n|\n\*\*|$)`)},
	&LineScanExtractor{
		Starts: func(line string) bool { return strings.Contains(line, "What I told the agent") },
		Label:  regexp.MustCompile(`What I told the agent:?`),
		Stops: func(line string) bool {
			return strings.Contains(line, "Agent") && strings.Contains(line, "response")
		},
	},
}

var subAgentExtractors = Chain{
	&QuotedExtractor{Pattern: regexp.MustCompile(`\*\*Agent[^:\n]*response[^:\n]*:\*\*[ \t]*"([^"]+)"`)},
	&QuotedExtractor{Pattern: regexp.MustCompile(`(?s)\*\*Agent[^:\n]*response[^:\n]*:\*\*\s*\n\s*"([^"]+)"`)},
	&MultilineExtractor{Pattern: regexp.MustCompile(`(?s)\*\*Agent[^:\n]*response[^:\n]*:\*\*\s*(.+?)(?:\n\n|$)`)},
	&LineScanExtractor{
		Starts: func(line string) bool {
			lower := strings.ToLower(line)
			return strings.Contains(lower, "agent") && strings.Contains(lower, "response")
		},
		Label: regexp.MustCompile(`[Aa]gent[^:]*response[^:]*:`),
		Stops: func(line string) bool { return strings.HasPrefix(line, "**What I told") },
	},
}

// extractBothAgentResponses splits a raw response into what the main agent
// said it told the sub-agent and what the sub-agent answered. Unstructured
// responses count entirely as the sub-agent's answer.
func extractBothAgentResponses(raw string) (mainAgent, subAgent string) {
	mainAgent = mainAgentExtractors.Extract(raw)
	subAgent = subAgentExtractors.Extract(raw)

	if mainAgent == "" && subAgent == "" {
		subAgent = strings.TrimSpace(raw)
	}
	return mainAgent, subAgent
}
