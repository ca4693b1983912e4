package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const maxLineSize = 4 * 1024 * 1024

// Line is one non-empty input line and its 1-based line number.
type Line struct {
	Number int
	Text   string
}

// ReadDescriptionsFile reads descriptions from path, or from stdin when path
// is "-". Files ending in .jsonl are read as JSON Lines.
func ReadDescriptionsFile(path string) ([]Line, error) {
	if path == "-" {
		return ReadDescriptions(os.Stdin, false)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return ReadDescriptions(file, strings.EqualFold(filepath.Ext(path), ".jsonl"))
}

// ReadDescriptions reads one description per non-empty line. In JSON Lines
// mode each line is an object and the description is taken from its
// "description", "text" or "content" field, in that order; objects with none
// of them are used verbatim.
func ReadDescriptions(r io.Reader, jsonl bool) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if jsonl {
			var data map[string]any
			if err := json.Unmarshal([]byte(line), &data); err != nil {
				return nil, fmt.Errorf("failed to parse JSON line %d: %w", n, err)
			}
			line = descriptionField(data, line)
		}
		lines = append(lines, Line{Number: n, Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return lines, nil
}

func descriptionField(data map[string]any, fallback string) string {
	for _, key := range []string{"description", "text", "content"} {
		if text, ok := data[key].(string); ok {
			return text
		}
	}
	return fallback
}
