// Package notify announces terminal routing outcomes and watches for
// out-of-band cancel signals. Notification delivery failures never affect
// routing correctness: the CLI caller notifies after the router returns.
package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Notifier announces one terminal routing outcome.
type Notifier interface {
	Notify(title, message string, metadata map[string]interface{}) error
}

// FileNotifier appends notifications to a log file. It is the default
// channel for non-interactive deployments; richer channels (desktop, SMS,
// webhook) plug in behind the same interface.
type FileNotifier struct {
	path string
}

// NewFileNotifier creates a notifier appending to the given path.
func NewFileNotifier(path string) (*FileNotifier, error) {
	if path == "" {
		return nil, fmt.Errorf("file notifier requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create notification directory: %w", err)
	}
	return &FileNotifier{path: path}, nil
}

// Notify implements Notifier. Each notification is one timestamped header
// line followed by the metadata as indented YAML.
func (n *FileNotifier) Notify(title, message string, metadata map[string]interface{}) error {
	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	defer f.Close()

	timestamp := time.Now().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "%s %s: %s\n", timestamp, title, message); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	if len(metadata) > 0 {
		data, err := yaml.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal notification metadata: %w", err)
		}
		for _, line := range splitLines(data) {
			if _, err := fmt.Fprintf(f, "  %s\n", line); err != nil {
				return fmt.Errorf("write notification metadata: %w", err)
			}
		}
	}
	return nil
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

// Nop is a Notifier that drops every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(string, string, map[string]interface{}) error { return nil }
