// Package logview reads back the JSON log written by pkg/logger so a
// support engineer can pull the trail of one evaluation.
package logview

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sipeed/devguard/pkg/logger"
)

const (
	DefaultLines = 50
	MaxLines     = 500
)

type Filter struct {
	Lines         int
	CorrelationID string
	Keyword       string
	// MinLevel drops entries below this level name (DEBUG..ERROR).
	MinLevel string
}

// levelPriority returns a numeric priority for log level filtering.
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case "FATAL":
		return 5
	case "ERROR":
		return 4
	case "WARN":
		return 3
	case "INFO":
		return 2
	case "DEBUG":
		return 1
	default:
		return 0
	}
}

// Read returns the last f.Lines entries of the log at path that pass f.
// Without a correlation id or keyword only the tail of the file is
// scanned; with one, the whole file is streamed so older evaluations are
// still found. Non-JSON lines are skipped.
func Read(path string, f Filter) ([]logger.LogEntry, error) {
	n := f.Lines
	if n <= 0 {
		n = DefaultLines
	}
	if n > MaxLines {
		n = MaxLines
	}

	keyword := strings.ToLower(f.Keyword)
	minLevel := levelPriority(f.MinLevel)
	match := func(line string) (logger.LogEntry, bool) {
		var entry logger.LogEntry
		line = strings.TrimSpace(line)
		if line == "" {
			return entry, false
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return entry, false
		}
		if minLevel > 0 && levelPriority(entry.Level) < minLevel {
			return entry, false
		}
		if f.CorrelationID != "" {
			if cid, _ := entry.Fields["correlation_id"].(string); cid != f.CorrelationID {
				return entry, false
			}
		}
		if keyword != "" && !matchesKeyword(entry, keyword) {
			return entry, false
		}
		return entry, true
	}

	if f.CorrelationID != "" || keyword != "" {
		return scanMatches(path, n, match)
	}

	lines, err := readTail(path, n*4)
	if err != nil {
		return nil, err
	}
	var out []logger.LogEntry
	for _, line := range lines {
		if entry, ok := match(line); ok {
			out = append(out, entry)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// scanMatches streams the whole file and keeps the last n matching entries.
func scanMatches(path string, n int, match func(string) (logger.LogEntry, bool)) ([]logger.LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ring := make([]logger.LogEntry, 0, n)
	next := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		entry, ok := match(scanner.Text())
		if !ok {
			continue
		}
		if len(ring) < n {
			ring = append(ring, entry)
			continue
		}
		ring[next] = entry
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return append(ring[next:], ring[:next]...), nil
}

func matchesKeyword(entry logger.LogEntry, keyword string) bool {
	if strings.Contains(strings.ToLower(entry.Message), keyword) {
		return true
	}
	fieldsJSON, _ := json.Marshal(entry.Fields)
	return strings.Contains(strings.ToLower(string(fieldsJSON)), keyword)
}

// Format renders entries one per line.
func Format(entries []logger.LogEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("[%s] %s [%s] %s", e.Timestamp, e.Level, e.Component, e.Message))
		if len(e.Fields) > 0 {
			fieldsJSON, _ := json.Marshal(e.Fields)
			sb.WriteString(" ")
			sb.Write(fieldsJSON)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// readTail reads the last n lines from a file.
func readTail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
		if len(all) > 2*n {
			all = append(all[:0], all[len(all)-n:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(all) > n {
		return all[len(all)-n:], nil
	}
	return all, nil
}
