package models

import (
	"fmt"
	"strings"

	"github.com/fentz26/dagsmith/internal/naming"
	"github.com/fentz26/dagsmith/internal/schedule"
)

// MaxOwnerCodeLen is the length an owner code is truncated to.
const MaxOwnerCodeLen = 4

// Valid reports whether s is a known deployment stage.
func (s DeploymentStage) Valid() bool {
	return s == StageLIL || s == StageSXB
}

// Valid reports whether p is a known priority tier.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMid, PriorityHigh:
		return true
	}
	return false
}

// Weight maps a priority to the operator priority weight. Unknown tiers weigh 1.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMid:
		return 2
	default:
		return 1
	}
}

// Valid reports whether k is a declared task kind.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindPython, TaskKindBash, TaskKindDummy:
		return true
	}
	return false
}

// Validate checks the project invariants. Every error wraps ErrInvalidConfig.
func (c *ProjectConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("project name is required")
	}
	if !naming.ValidProject(c.Name) {
		return invalid("project name %q may only contain letters, digits, '_' and '-'", c.Name)
	}
	if n := len(c.OwnerCode); n == 0 || n > MaxOwnerCodeLen {
		return invalid("owner code %q must be 1-%d characters", c.OwnerCode, MaxOwnerCodeLen)
	}
	if !c.Stage.Valid() {
		return invalid("unknown stage %q", c.Stage)
	}
	if err := schedule.Validate(c.Schedule); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.UseManagedEnv && strings.TrimSpace(c.EnvName) == "" {
		return invalid("managed environment enabled without a name")
	}

	pools := make(map[string]bool, len(c.Pools))
	for _, p := range c.Pools {
		if strings.TrimSpace(p) == "" {
			return invalid("empty pool name")
		}
		pools[p] = true
	}

	seen := make(map[string]string)
	for i, stage := range c.Pipeline {
		for _, t := range stage.Tasks {
			where := fmt.Sprintf("stage %d task %q", i+1, t.Name)
			if strings.TrimSpace(t.Name) == "" {
				return invalid("stage %d: task %q has no name", i+1, t.ID)
			}
			if t.Slots <= 0 {
				return invalid("%s: pool slots must be positive, got %d", where, t.Slots)
			}
			if !t.Priority.Valid() {
				return invalid("%s: unknown priority %q", where, t.Priority)
			}
			if !t.Kind.Valid() {
				return invalid("%s: unknown type %q", where, t.Kind)
			}
			if t.Pool != "" && !pools[t.Pool] {
				return invalid("%s: pool %q is not configured", where, t.Pool)
			}
			id := naming.Identifier(t.Name)
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: %w: %q and %q both become %s", ErrInvalidConfig, ErrNameCollision, prev, t.Name, id)
			}
			seen[id] = t.Name
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Normalize applies the canonical forms for identity fields: the owner code is
// lower-cased and cut to MaxOwnerCodeLen, the project name is lower-cased with
// spaces replaced by underscores.
func (c *ProjectConfig) Normalize() {
	c.OwnerCode = strings.ToLower(strings.TrimSpace(c.OwnerCode))
	if len(c.OwnerCode) > MaxOwnerCodeLen {
		c.OwnerCode = c.OwnerCode[:MaxOwnerCodeLen]
	}
	c.Name = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(c.Name), " ", "_"))
	c.Schedule = strings.Join(strings.Fields(c.Schedule), " ")
	for i := range c.Pipeline {
		for j := range c.Pipeline[i].Tasks {
			t := &c.Pipeline[i].Tasks[j]
			if t.Priority == "" {
				t.Priority = PriorityMid
			}
			if t.Kind == "" {
				t.Kind = TaskKindPython
			}
			if t.Slots == 0 {
				t.Slots = 1
			}
		}
	}
}

// Clone returns a deep copy of c.
func (c ProjectConfig) Clone() ProjectConfig {
	out := c
	if c.Pools != nil {
		out.Pools = append([]string(nil), c.Pools...)
	}
	if c.Pipeline != nil {
		out.Pipeline = make([]Stage, len(c.Pipeline))
		for i, s := range c.Pipeline {
			out.Pipeline[i] = Stage{ID: s.ID}
			if s.Tasks != nil {
				out.Pipeline[i].Tasks = append([]Task(nil), s.Tasks...)
			}
		}
	}
	return out
}

// ResolvePool returns the pool a task draws from: its own assignment, else
// the first configured pool, else DefaultPool.
func (c *ProjectConfig) ResolvePool(t Task) string {
	if t.Pool != "" {
		return t.Pool
	}
	if len(c.Pools) > 0 {
		return c.Pools[0]
	}
	return DefaultPool
}

// Tasks returns every task in pipeline order.
func (c *ProjectConfig) Tasks() []Task {
	var out []Task
	for _, s := range c.Pipeline {
		out = append(out, s.Tasks...)
	}
	return out
}

// Summary builds the list view of c.
func (c *ProjectConfig) Summary() ProjectSummary {
	return ProjectSummary{
		Name:     c.Name,
		Stages:   len(c.Pipeline),
		Tasks:    len(c.Tasks()),
		Schedule: c.Schedule,
	}
}
