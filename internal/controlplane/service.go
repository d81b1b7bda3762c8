// Package controlplane provides the HTTP API and service layer for dagsmith.
package controlplane

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/capacity"
	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/connectors"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/schedule"
	"github.com/fentz26/dagsmith/internal/store"
)

// Options tunes a Service.
type Options struct {
	PoolCapacity int
	MinDelay     time.Duration
	MaxDelay     time.Duration
	Logger       *slog.Logger
}

// Service provides the control plane business logic.
type Service struct {
	store        *store.Store
	pdr          *audit.PDRWriter
	player       *deploy.Player
	poolCapacity int
	log          *slog.Logger
}

// NewService creates a new control plane service.
func NewService(s *store.Store, pdr *audit.PDRWriter, conn connectors.Connector, opts Options) *Service {
	if opts.PoolCapacity <= 0 {
		opts.PoolCapacity = capacity.DefaultPoolCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:        s,
		pdr:          pdr,
		player:       deploy.NewPlayer(conn, opts.MinDelay, opts.MaxDelay),
		poolCapacity: opts.PoolCapacity,
		log:          opts.Logger,
	}
}

func (s *Service) record(action string, inputs interface{}, outcome, project, details string) {
	if _, err := s.pdr.Record(action, inputs, outcome, project, details); err != nil {
		s.log.Warn("audit record failed", "action", action, "project", project, "error", err)
	}
}

// --- Project Operations ---

// SaveProject normalizes, validates and stores a copy of cfg.
func (s *Service) SaveProject(ctx context.Context, cfg *models.ProjectConfig) (*models.ProjectRecord, error) {
	c := cfg.Clone()
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.store.SaveProject(ctx, &c)
	if err != nil {
		return nil, err
	}
	s.record(audit.ActionSave, c, "success", c.Name, "")
	s.log.Info("project saved", "project", c.Name, "id", rec.ID)
	return rec, nil
}

// GetProject retrieves a stored project.
func (s *Service) GetProject(ctx context.Context, name string) (*models.ProjectRecord, error) {
	return s.store.GetProject(ctx, name)
}

// ListProjects returns every stored project.
func (s *Service) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	return s.store.ListProjects(ctx)
}

// DeleteProject removes a stored project.
func (s *Service) DeleteProject(ctx context.Context, name string) error {
	if err := s.store.DeleteProject(ctx, name); err != nil {
		return err
	}
	s.record(audit.ActionDelete, map[string]string{"name": name}, "success", name, "")
	return nil
}

// History returns the audit trail of a project.
func (s *Service) History(ctx context.Context, project string, limit int) ([]models.PDREntry, error) {
	return s.store.ListPDR(ctx, project, limit)
}

// --- Compile Operations ---

// CompileResult is the output of a compile request.
type CompileResult struct {
	Project   string              `json:"project"`
	Artifacts compiler.Artifacts  `json:"artifacts"`
	Capacity  []capacity.Report   `json:"capacity"`
	Warnings  []string            `json:"warnings,omitempty"`
	Flow      []compiler.Edge     `json:"flow"`
	Schedule  schedule.Descriptor `json:"schedule"`
}

// Compile validates cfg and generates its artifacts. Over-capacity stages
// are reported as warnings; they never block compilation.
func (s *Service) Compile(cfg *models.ProjectConfig) (*CompileResult, error) {
	if err := cfg.Validate(); err != nil {
		s.record(audit.ActionCompile, cfg, "rejected", cfg.Name, err.Error())
		return nil, err
	}

	res := &CompileResult{
		Project:   cfg.Name,
		Artifacts: compiler.Compile(cfg),
		Capacity:  capacity.Check(cfg, s.poolCapacity),
		Flow:      compiler.FlowEdges(cfg.Pipeline),
		Schedule:  schedule.Decode(cfg.Schedule),
	}
	for _, r := range capacity.Over(res.Capacity) {
		res.Warnings = append(res.Warnings, r.String())
	}

	s.record(audit.ActionCompile, cfg, "success", cfg.Name, fmt.Sprintf("%d stages, %d warnings", len(cfg.Pipeline), len(res.Warnings)))
	s.log.Info("project compiled", "project", cfg.Name, "stages", len(cfg.Pipeline), "warnings", len(res.Warnings))
	return res, nil
}

// CompileProject compiles a stored project.
func (s *Service) CompileProject(ctx context.Context, name string) (*CompileResult, error) {
	cfg, err := s.store.LoadProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Compile(cfg)
}

// --- Schedule Operations ---

// ScheduleResult describes one recurrence expression.
type ScheduleResult struct {
	Expression string              `json:"expression"`
	Descriptor schedule.Descriptor `json:"descriptor"`
	Summary    string              `json:"summary"`
	Error      string              `json:"error,omitempty"`
}

// DescribeSchedule decodes expr. Invalid input still decodes (to Manual) and
// carries the validation error alongside.
func (s *Service) DescribeSchedule(expr string) ScheduleResult {
	d := schedule.Decode(expr)
	res := ScheduleResult{Expression: expr, Descriptor: d, Summary: d.String()}
	if err := schedule.Validate(expr); err != nil {
		res.Error = err.Error()
	}
	return res
}

// EncodeSchedule builds the expression for d.
func (s *Service) EncodeSchedule(d schedule.Descriptor) ScheduleResult {
	expr := schedule.Encode(d)
	return ScheduleResult{Expression: expr, Descriptor: schedule.Decode(expr), Summary: d.String()}
}

// SuggestSchedule maps free text to an expression.
func (s *Service) SuggestSchedule(text string) ScheduleResult {
	return s.DescribeSchedule(schedule.Suggest(text))
}

// --- Deployment Operations ---

// DeploymentView is a deployment with its current step.
type DeploymentView struct {
	models.Deployment
	Title    string      `json:"title"`
	Ready    bool        `json:"ready"`
	Branch   string      `json:"branch"`
	Tag      string      `json:"tag"`
	Step     deploy.Step `json:"step"`
	Progress int         `json:"progress"`
}

func view(d *models.Deployment, m *deploy.Machine) *DeploymentView {
	plan := m.Plan()
	return &DeploymentView{
		Deployment: *d,
		Title:      m.Current().Title(),
		Ready:      m.Ready(),
		Branch:     plan.Branch,
		Tag:        plan.Tag,
		Step:       m.Step(),
		Progress:   m.Current().Progress(),
	}
}

// machine rebuilds the phase machine of a stored deployment.
func (s *Service) machine(ctx context.Context, id string) (*models.Deployment, *deploy.Machine, error) {
	d, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.store.LoadProject(ctx, d.Project)
	if err != nil {
		return nil, nil, err
	}
	phase, err := deploy.ParsePhase(d.Phase)
	if err != nil {
		return nil, nil, fmt.Errorf("deployment %s: %w", id, err)
	}
	m, err := deploy.Resume(deploy.Mode(d.Mode), deploy.IdentityOf(cfg), phase, d.StepDone)
	if err != nil {
		return nil, nil, err
	}
	return d, m, nil
}

// persist stores the machine state, provided the deployment is still in the
// state d was read in.
func (s *Service) persist(ctx context.Context, d *models.Deployment, m *deploy.Machine) (*DeploymentView, error) {
	if err := s.store.TransitionDeployment(ctx, d.ID, d.Phase, d.StepDone, m.Current().String(), m.StepDone()); err != nil {
		return nil, err
	}
	d.Phase = m.Current().String()
	d.StepDone = m.StepDone()
	d.UpdatedAt = time.Now().UTC()
	return view(d, m), nil
}

// StartDeployment opens a release session for a stored project.
func (s *Service) StartDeployment(ctx context.Context, project, mode string) (*DeploymentView, error) {
	md, err := deploy.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	cfg, err := s.store.LoadProject(ctx, project)
	if err != nil {
		return nil, err
	}
	m := deploy.New(md, deploy.IdentityOf(cfg))
	d, err := s.store.CreateDeployment(ctx, project, string(md), m.Current().String())
	if err != nil {
		return nil, err
	}
	s.record(audit.ActionDeployCreate, map[string]string{"project": project, "mode": string(md)}, "success", project, d.ID)
	return view(d, m), nil
}

// GetDeployment returns the current state of a deployment.
func (s *Service) GetDeployment(ctx context.Context, id string) (*DeploymentView, error) {
	d, m, err := s.machine(ctx, id)
	if err != nil {
		return nil, err
	}
	return view(d, m), nil
}

// RunResult is the transcript of one simulated command sequence.
type RunResult struct {
	Deployment *DeploymentView `json:"deployment"`
	Run        *models.Run     `json:"run"`
	Lines      []deploy.Line   `json:"lines"`
}

// RunStep plays the current phase's command sequence and marks the step
// complete when it finishes.
func (s *Service) RunStep(ctx context.Context, id string) (*RunResult, error) {
	d, m, err := s.machine(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Current().IsTerminal() {
		return nil, deploy.ErrTerminal
	}

	commands := m.Step().Commands
	run, err := s.store.CreateRun(ctx, d.ID, m.Current().String(), commands)
	if err != nil {
		return nil, err
	}

	var lines []deploy.Line
	playErr := s.player.PlayStep(ctx, m, func(l deploy.Line) { lines = append(lines, l) })

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	outcome := "completed"
	if playErr != nil {
		outcome = "aborted"
	}
	// The transcript is stored even when the client went away.
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run.ID, strings.Join(texts, "\n"), outcome); err != nil {
		return nil, err
	}
	s.record(audit.ActionDeployRun, commands, outcome, d.Project, d.ID)
	if playErr != nil {
		return nil, playErr
	}

	v, err := s.persist(ctx, d, m)
	if err != nil {
		return nil, err
	}
	return &RunResult{Deployment: v, Run: run, Lines: lines}, nil
}

// ConfirmDeployment advances a deployment to its next phase.
func (s *Service) ConfirmDeployment(ctx context.Context, id string) (*DeploymentView, error) {
	d, m, err := s.machine(ctx, id)
	if err != nil {
		return nil, err
	}
	from := m.Current()
	if err := m.Confirm(); err != nil {
		return nil, err
	}
	v, err := s.persist(ctx, d, m)
	if err != nil {
		return nil, err
	}
	s.record(audit.ActionDeployConfirm, map[string]string{"id": id, "from": from.String()}, "success", d.Project, m.Current().String())
	s.log.Info("deployment advanced", "id", id, "project", d.Project, "phase", m.Current().String())
	return v, nil
}

// BackDeployment returns a deployment to its previous phase.
func (s *Service) BackDeployment(ctx context.Context, id string) (*DeploymentView, error) {
	d, m, err := s.machine(ctx, id)
	if err != nil {
		return nil, err
	}
	from := m.Current()
	if err := m.Back(); err != nil {
		return nil, err
	}
	v, err := s.persist(ctx, d, m)
	if err != nil {
		return nil, err
	}
	s.record(audit.ActionDeployBack, map[string]string{"id": id, "from": from.String()}, "success", d.Project, m.Current().String())
	return v, nil
}

// Runs returns the recorded command sequences of a deployment.
func (s *Service) Runs(ctx context.Context, id string) ([]models.Run, error) {
	if _, err := s.store.GetDeployment(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetRunsForDeployment(ctx, id)
}
