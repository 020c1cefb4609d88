package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Config holds the annotation tool configuration: the display height
// cap and the digit-key to class-label mapping.
type Config struct {
	MaxHeight int
	Labels    map[int]string
}

// ParseError describes a malformed configuration file. It is fatal to
// startup; the tool never guesses around a bad config.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("config %s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Msg)
}

// Load reads a configuration file with one "key : value" pair per
// line. The max_height entry must be present; every other key is a
// digit 1-9 naming a class label. Whitespace around the colon is
// ignored, blank lines and lines starting with '#' are skipped.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := &Config{Labels: make(map[int]string)}
	seenHeight := false

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "expected 'key : value'"}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "max_height" {
			if seenHeight {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "duplicate max_height"}
			}
			h, err := strconv.Atoi(value)
			if err != nil {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("max_height is not an integer: %q", value)}
			}
			if h <= 0 {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("max_height must be positive, got %d", h)}
			}
			cfg.MaxHeight = h
			seenHeight = true
			continue
		}

		digit, err := strconv.Atoi(key)
		if err != nil || digit < 1 || digit > 9 {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("label key must be a digit 1-9, got %q", key)}
		}
		if _, dup := cfg.Labels[digit]; dup {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("duplicate label key %d", digit)}
		}
		if value == "" {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("empty label name for key %d", digit)}
		}
		cfg.Labels[digit] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if !seenHeight {
		return nil, &ParseError{Path: path, Msg: "missing max_height"}
	}
	if len(cfg.Labels) == 0 {
		return nil, &ParseError{Path: path, Msg: "no label keys defined"}
	}
	return cfg, nil
}

// Keys returns the configured digit keys in ascending order.
func (c *Config) Keys() []int {
	keys := make([]int, 0, len(c.Labels))
	for k := range c.Labels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Names returns the label names in ascending digit-key order. The
// position of a name in this slice is its zero-based class index.
func (c *Config) Names() []string {
	keys := c.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = c.Labels[k]
	}
	return names
}

// LabelIndex maps a digit key to its zero-based class index, the
// position of that key in ascending order. Returns -1 for digits that
// are not configured.
func (c *Config) LabelIndex(digit int) int {
	for i, k := range c.Keys() {
		if k == digit {
			return i
		}
	}
	return -1
}

// Name returns the label name for a zero-based class index.
func (c *Config) Name(index int) string {
	names := c.Names()
	if index < 0 || index >= len(names) {
		return ""
	}
	return names[index]
}
