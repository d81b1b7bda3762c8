// Package models defines the core domain types for dagsmith.
package models

import "time"

// DeploymentStage is the target platform of a project.
type DeploymentStage string

const (
	StageLIL DeploymentStage = "LIL"
	StageSXB DeploymentStage = "SXB"
)

// Priority is the qualitative scheduling tier of a task.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMid  Priority = "mid"
	PriorityHigh Priority = "high"
)

// TaskKind selects the operator a task compiles to. Only python is compiled today.
type TaskKind string

const (
	TaskKindPython TaskKind = "python"
	TaskKindBash   TaskKind = "bash"
	TaskKindDummy  TaskKind = "dummy"
)

// DefaultPool is used when neither the task nor the project names a pool.
const DefaultPool = "default_pool"

// Task is one unit of business logic inside a stage.
type Task struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Imports  string   `json:"imports" yaml:"imports"`
	Code     string   `json:"code" yaml:"code"`
	Priority Priority `json:"priority" yaml:"priority"`
	Slots    int      `json:"pool_slots" yaml:"pool_slots"`
	Kind     TaskKind `json:"type" yaml:"type"`
	Pool     string   `json:"selected_pool,omitempty" yaml:"selected_pool,omitempty"` // optional, must name a configured pool
}

// Stage groups tasks that run in parallel. Stages run strictly in order.
type Stage struct {
	ID    string `json:"id" yaml:"id"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// ProjectConfig is the full editable description of a pipeline project.
type ProjectConfig struct {
	// Identity
	Name      string `json:"nomprojet" yaml:"nomprojet"`
	OwnerCode string `json:"coderobin" yaml:"coderobin"`
	GitRemote string `json:"git_remote" yaml:"git_remote"`
	OwnerID   string `json:"persoid" yaml:"persoid"`
	Namespace string `json:"lddata" yaml:"lddata"`

	// Environment
	UseManagedEnv bool            `json:"use_conda" yaml:"use_conda"`
	EnvName       string          `json:"condaenv" yaml:"condaenv"`
	Stage         DeploymentStage `json:"stage" yaml:"stage"`

	// Database connector
	UseDatabase bool   `json:"use_vertica" yaml:"use_vertica"`
	ContextTag  string `json:"silot" yaml:"silot"`

	// I/O
	UseInput   bool   `json:"use_input" yaml:"use_input"`
	InputPath  string `json:"datalab_in" yaml:"datalab_in"`
	UseOutput  bool   `json:"use_output" yaml:"use_output"`
	OutputPath string `json:"datalab_out" yaml:"datalab_out"`

	// Resources
	UseSharedStorage bool `json:"use_nas" yaml:"use_nas"`
	UseAccelerator   bool `json:"use_gpu" yaml:"use_gpu"`

	// Schedule is empty (manual trigger) or a 5-field recurrence expression.
	Schedule string `json:"cron" yaml:"cron"`

	BundleBase   string `json:"bundle_base,omitempty" yaml:"bundle_base,omitempty"`
	PrepareTests bool   `json:"prepare_tests,omitempty" yaml:"prepare_tests,omitempty"`

	Pipeline []Stage  `json:"pipeline" yaml:"pipeline"`
	Pools    []string `json:"pools" yaml:"pools"`
}

// ProjectRecord is a stored project with its bookkeeping fields.
type ProjectRecord struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Config    ProjectConfig `json:"config"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ProjectSummary is the list view of a stored project.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stages    int       `json:"stages"`
	Tasks     int       `json:"tasks"`
	Schedule  string    `json:"cron"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deployment tracks one release session of a project.
type Deployment struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Mode      string    `json:"mode"`
	Phase     string    `json:"phase"`
	StepDone  bool      `json:"step_done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run is the recorded transcript of one simulated command sequence.
type Run struct {
	ID           string     `json:"id"`
	DeploymentID string     `json:"deployment_id"`
	Phase        string     `json:"phase"`
	Commands     []string   `json:"commands"`
	Output       string     `json:"output"`
	Outcome      string     `json:"outcome"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Project    string    `json:"project,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
