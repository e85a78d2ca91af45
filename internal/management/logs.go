package management

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LogEntry is one parsed line from the proxy's log endpoint.
type LogEntry struct {
	Timestamp string
	Level     string
	Message   string
}

// Logs fetches and parses the last n lines of the proxy's log. n falls back
// to 500.
func (c *Client) Logs(ctx context.Context, n int) ([]LogEntry, error) {
	if n <= 0 {
		n = 500
	}
	resp, err := c.get(ctx, "logs?lines="+strconv.Itoa(n))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var body struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("could not parse logs response: %w", err)
	}
	entries := make([]LogEntry, 0, len(body.Lines))
	for _, line := range body.Lines {
		if line == "" {
			continue
		}
		entries = append(entries, ParseLogLine(line))
	}
	return entries, nil
}

// ClearLogs truncates the proxy's log buffer.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.delete(ctx, "logs")
}

// ParseLogLine turns one proxy log line into a LogEntry. The proxy mixes
// formats:
//
//	[2025-12-02 22:12:52] [info] [gin_logger.go:58] message
//	[2025-12-02 22:12:52] [info] message
//	2024-01-15T10:30:45.123Z [INFO] message
//	ERROR: message
func ParseLogLine(line string) LogEntry {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "[") {
		if e, ok := parseBracketed(line); ok {
			return e
		}
	}

	if e, ok := parseISOPrefixed(line); ok {
		return e
	}

	for _, level := range []string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"} {
		if !strings.HasPrefix(strings.ToUpper(line), level) {
			continue
		}
		rest := line[len(level):]
		if strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, " ") {
			return LogEntry{
				Level:   level,
				Message: strings.TrimLeft(rest, ": "),
			}
		}
	}

	return LogEntry{Level: "INFO", Message: line}
}

func parseBracketed(line string) (LogEntry, bool) {
	var parts []string
	rest := line
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}
		parts = append(parts, rest[1:end])
		rest = strings.TrimLeft(rest[end+1:], " ")
	}
	if len(parts) < 2 {
		return LogEntry{}, false
	}
	return LogEntry{
		Timestamp: parts[0],
		Level:     normalizeLevel(parts[1]),
		Message:   rest,
	}, true
}

func parseISOPrefixed(line string) (LogEntry, bool) {
	if len(line) <= 20 {
		return LogEntry{}, false
	}
	if line[4] != '-' && line[10] != 'T' {
		return LogEntry{}, false
	}
	start := strings.Index(line, "[")
	if start < 0 {
		return LogEntry{}, false
	}
	end := strings.Index(line[start:], "]")
	if end < 0 {
		return LogEntry{}, false
	}
	return LogEntry{
		Timestamp: strings.TrimSpace(line[:start]),
		Level:     normalizeLevel(line[start+1 : start+end]),
		Message:   strings.TrimSpace(line[start+end+1:]),
	}, true
}

func normalizeLevel(level string) string {
	switch strings.ToUpper(level) {
	case "ERROR", "ERR", "E":
		return "ERROR"
	case "WARN", "WARNING", "W":
		return "WARN"
	case "INFO", "I":
		return "INFO"
	case "DEBUG", "DBG", "D":
		return "DEBUG"
	case "TRACE", "T":
		return "TRACE"
	default:
		return strings.ToUpper(level)
	}
}
