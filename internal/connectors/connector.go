// Package connectors defines the command execution boundary used by the
// deployment terminal.
package connectors

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"
)

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Connector defines the interface for executing commands.
type Connector interface {
	// Name returns the connector identifier.
	Name() string

	// Execute runs a command and returns the result.
	Execute(ctx context.Context, cmd string, args []string) (*ExecResult, error)

	// IsAllowed checks if a command is allowed to execute.
	IsAllowed(cmd string, args []string) bool
}

// SplitCommand breaks a command line into fields with POSIX shell quoting
// rules. Quotes are removed and backslash escapes applied.
func SplitCommand(line string) ([]string, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", line, err)
	}
	return fields, nil
}
