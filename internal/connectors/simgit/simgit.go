// Package simgit provides a connector that pretends to run git commands.
// Nothing touches the filesystem or the network; every allowed command
// returns canned output shaped like the real tool's.
package simgit

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/dagsmith/internal/connectors"
	"github.com/fentz26/dagsmith/internal/naming"
)

// allowedCommands defines the strict allowlist of simulated commands. A nil
// list accepts any arguments.
var allowedCommands = map[string][]string{
	"cd":  nil,
	"git": {"init", "remote", "checkout", "add", "commit", "push", "pull", "tag"},
}

// SimGit implements the Connector interface with canned output.
type SimGit struct{}

// New creates a new SimGit connector.
func New() *SimGit {
	return &SimGit{}
}

// Name returns the connector identifier.
func (s *SimGit) Name() string {
	return "simgit"
}

// IsAllowed checks if a command is in the allowlist.
func (s *SimGit) IsAllowed(cmd string, args []string) bool {
	allowedSubcmds, ok := allowedCommands[cmd]
	if !ok {
		return false
	}
	if allowedSubcmds == nil {
		return true
	}
	if len(args) == 0 {
		return false
	}
	for _, allowed := range allowedSubcmds {
		if args[0] == allowed {
			return true
		}
	}
	return false
}

// Execute returns the simulated output of an allowed command.
func (s *SimGit) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	if !s.IsAllowed(cmd, args) {
		return nil, fmt.Errorf("command not allowed: %s %s", cmd, strings.Join(args, " "))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &connectors.ExecResult{
		Command: cmd,
		Args:    args,
		Stdout:  output(cmd, args),
	}, nil
}

func output(cmd string, args []string) string {
	if cmd != "git" {
		return ""
	}
	switch args[0] {
	case "push":
		return "Enumerating objects: 15, done.\n" +
			"Writing objects: 100% (15/15), 2.45 KiB | 2.45 MiB/s, done.\n" +
			"Total 15 (delta 2), reused 0 (delta 0)\n" +
			"To github.com:org/repo.git"
	case "commit":
		if msg := flagValue(args, "-m"); strings.HasPrefix(msg, "fix:") {
			return "[fix/update 7b1c2d] " + msg + "\n 2 files changed, 20 insertions(+)"
		} else if msg != "" {
			return "[feature/init 8a2b3c] " + msg + "\n 4 files changed, 125 insertions(+)"
		}
		return "nothing to commit, working tree clean"
	case "tag":
		if len(args) > 2 && args[1] == "-a" {
			return "Created tag " + args[2]
		}
		return ""
	case "checkout":
		return fmt.Sprintf("Switched to branch '%s'", args[len(args)-1])
	case "init":
		return "Initialized empty Git repository in " + naming.WorkspaceRoot + "/.git/"
	case "pull":
		return "Already up to date."
	}
	return ""
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
