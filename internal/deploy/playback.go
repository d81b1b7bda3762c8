package deploy

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/fentz26/dagsmith/internal/connectors"
)

// Default bounds of the pause before each simulated command output.
const (
	DefaultMinDelay = 600 * time.Millisecond
	DefaultMaxDelay = 1400 * time.Millisecond
)

// Line is one line of terminal output.
type Line struct {
	Text    string `json:"text"`
	Command bool   `json:"command,omitempty"`
}

// Player runs a command list through a connector, one command at a time.
type Player struct {
	conn     connectors.Connector
	minDelay time.Duration
	maxDelay time.Duration
}

// NewPlayer creates a player. A zero maxDelay disables the pause.
func NewPlayer(conn connectors.Connector, minDelay, maxDelay time.Duration) *Player {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Player{conn: conn, minDelay: minDelay, maxDelay: maxDelay}
}

func (p *Player) delay() time.Duration {
	if p.maxDelay <= p.minDelay {
		return p.minDelay
	}
	return p.minDelay + time.Duration(rand.Int63n(int64(p.maxDelay-p.minDelay)))
}

// Play echoes each command as "$ cmd", waits, then emits its output lines.
// Cancelling ctx abandons the rest of the sequence and returns ctx.Err().
func (p *Player) Play(ctx context.Context, commands []string, emit func(Line)) error {
	for _, line := range commands {
		emit(Line{Text: "$ " + line, Command: true})

		if d := p.delay(); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		fields, err := connectors.SplitCommand(line)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			continue
		}
		res, err := p.conn.Execute(ctx, fields[0], fields[1:])
		if err != nil {
			return fmt.Errorf("play %q: %w", line, err)
		}
		if res.Stdout == "" {
			continue
		}
		for _, out := range strings.Split(res.Stdout, "\n") {
			emit(Line{Text: out})
		}
	}
	return nil
}

// PlayStep runs the active phase's commands and marks the step complete when
// the whole sequence finished.
func (p *Player) PlayStep(ctx context.Context, m *Machine, emit func(Line)) error {
	if err := p.Play(ctx, m.Step().Commands, emit); err != nil {
		return err
	}
	m.MarkStepComplete()
	return nil
}
