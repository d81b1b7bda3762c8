package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/models"
)

// Tracker persists deployment progress. *store.Store implements it.
type Tracker interface {
	CreateDeployment(ctx context.Context, project, mode, phase string) (*models.Deployment, error)
	UpdateDeploymentPhase(ctx context.Context, id, phase string, stepDone bool) error
}

// CockpitOptions wires the optional collaborators of a cockpit.
type CockpitOptions struct {
	Player  *deploy.Player
	Audit   *audit.PDRWriter // nil disables the audit trail
	Tracker Tracker          // nil keeps progress in memory only
	Logger  *slog.Logger
}

// Cockpit drives one release workflow: it shows the phase timeline, the
// active step and a terminal that replays the step's commands.
type Cockpit struct {
	ctx     context.Context
	opts    CockpitOptions
	machine *deploy.Machine
	project string
	depID   string

	terminal []string
	viewport viewport.Model
	spinner  spinner.Model

	running bool
	cancel  context.CancelFunc
	events  <-chan playEvent
	message string
	width   int
}

// NewCockpit opens a release session for cfg. The context bounds every
// playback; cancelling it abandons a running sequence.
func NewCockpit(ctx context.Context, cfg *models.ProjectConfig, mode deploy.Mode, opts CockpitOptions) (*Cockpit, error) {
	if opts.Player == nil {
		return nil, fmt.Errorf("new cockpit: player required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle

	c := &Cockpit{
		ctx:      ctx,
		opts:     opts,
		machine:  deploy.New(mode, deploy.IdentityOf(cfg)),
		project:  cfg.Name,
		viewport: viewport.New(80, 10),
		spinner:  sp,
		width:    80,
	}

	if opts.Tracker != nil {
		d, err := opts.Tracker.CreateDeployment(ctx, cfg.Name, string(mode), c.machine.Current().String())
		if err != nil {
			return nil, fmt.Errorf("create deployment: %w", err)
		}
		c.depID = d.ID
	}
	c.record(audit.ActionDeployCreate, map[string]string{"project": cfg.Name, "mode": string(mode)}, "success", c.depID)
	return c, nil
}

// Machine exposes the underlying phase machine.
func (c *Cockpit) Machine() *deploy.Machine { return c.machine }

// Running reports whether a command sequence is playing.
func (c *Cockpit) Running() bool { return c.running }

// Message is the last status line shown to the user.
func (c *Cockpit) Message() string { return c.message }

// Terminal returns the lines printed so far for the active phase.
func (c *Cockpit) Terminal() []string { return c.terminal }

// DeploymentID is the stored deployment id, empty without a tracker.
func (c *Cockpit) DeploymentID() string { return c.depID }

func (c *Cockpit) record(action string, inputs interface{}, outcome, details string) {
	if c.opts.Audit == nil {
		return
	}
	if _, err := c.opts.Audit.Record(action, inputs, outcome, c.project, details); err != nil {
		c.opts.Logger.Warn("audit record failed", "action", action, "error", err)
	}
}

func (c *Cockpit) persist() {
	if c.opts.Tracker == nil {
		return
	}
	m := c.machine
	if err := c.opts.Tracker.UpdateDeploymentPhase(c.ctx, c.depID, m.Current().String(), m.StepDone()); err != nil {
		c.message = "Error: " + err.Error()
	}
}

// SetSize fits the terminal viewport into the given area.
func (c *Cockpit) SetSize(w, h int) {
	c.width = w
	c.viewport.Width = w - 4
	// Timeline, step text and status bar take roughly half the screen.
	c.viewport.Height = max(5, h-18)
}

// Init implements tea.Model
func (c *Cockpit) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (c *Cockpit) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			c.Stop()
			return c, tea.Quit
		case "r":
			cmd := c.run()
			if cmd == nil {
				return c, nil
			}
			return c, tea.Batch(c.spinner.Tick, cmd)
		case "enter":
			c.confirm()
		case "b":
			c.back()
		case "up", "k":
			c.viewport.LineUp(1)
		case "down", "j":
			c.viewport.LineDown(1)
		}

	case tea.WindowSizeMsg:
		c.SetSize(msg.Width, msg.Height)

	case playEvent:
		return c, c.handleEvent(msg)

	case spinner.TickMsg:
		if !c.running {
			return c, nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	}
	return c, nil
}

// Stop abandons a running sequence.
func (c *Cockpit) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// --- Playback ---

// playEvent carries one terminal line, or the end of the sequence.
type playEvent struct {
	line deploy.Line
	done bool
	err  error
}

// run starts the active phase's command sequence in the background. It
// returns nil when there is nothing to run.
func (c *Cockpit) run() tea.Cmd {
	m := c.machine
	switch {
	case c.running:
		c.message = "Sequence already running"
		return nil
	case m.Current().IsTerminal():
		c.message = "Deployment complete"
		return nil
	case !m.Current().HasPlayback():
		c.message = "Nothing to run in this phase, press enter to continue"
		return nil
	case m.StepDone():
		c.message = "Sequence already completed, press enter to continue"
		return nil
	}

	ctx, cancel := context.WithCancel(c.ctx)
	ch := make(chan playEvent)
	commands := m.Step().Commands
	player := c.opts.Player

	go func() {
		defer close(ch)
		send := func(ev playEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		err := player.Play(ctx, commands, func(l deploy.Line) { send(playEvent{line: l}) })
		send(playEvent{done: true, err: err})
	}()

	c.running = true
	c.cancel = cancel
	c.events = ch
	c.terminal = nil
	c.message = "Running " + m.Current().Title() + "..."
	c.refreshTerminal()
	return c.waitForEvent()
}

// waitForEvent blocks on the next playback event.
func (c *Cockpit) waitForEvent() tea.Cmd {
	ch := c.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return playEvent{done: true, err: context.Canceled}
		}
		return ev
	}
}

func (c *Cockpit) handleEvent(ev playEvent) tea.Cmd {
	if !c.running {
		return nil
	}
	if !ev.done {
		c.terminal = append(c.terminal, ev.line.Text)
		c.refreshTerminal()
		return c.waitForEvent()
	}

	c.running = false
	c.cancel()
	c.cancel = nil
	phase := c.machine.Current()
	commands := c.machine.Step().Commands
	if ev.err != nil {
		c.message = "Error: sequence aborted: " + ev.err.Error()
		c.record(audit.ActionDeployRun, commands, "aborted", phase.String())
		return nil
	}

	c.machine.MarkStepComplete()
	c.persist()
	c.record(audit.ActionDeployRun, commands, "completed", phase.String())
	c.message = "✓ " + phase.Title() + " completed, press enter to confirm"
	return nil
}

func (c *Cockpit) refreshTerminal() {
	lines := make([]string, len(c.terminal))
	for i, l := range c.terminal {
		if strings.HasPrefix(l, "$ ") {
			l = commandStyle.Render(l)
		}
		lines[i] = l
	}
	c.viewport.SetContent(strings.Join(lines, "\n"))
	c.viewport.GotoBottom()
}

// --- Transitions ---

func (c *Cockpit) confirm() {
	if c.running {
		c.message = "Wait for the sequence to finish"
		return
	}
	from := c.machine.Current()
	if err := c.machine.Confirm(); err != nil {
		c.message = "Error: " + describe(err)
		return
	}
	c.afterTransition()
	c.record(audit.ActionDeployConfirm, map[string]string{"from": from.String()}, "success", c.machine.Current().String())
	c.opts.Logger.Debug("deployment advanced", "project", c.project, "phase", c.machine.Current().String())
}

func (c *Cockpit) back() {
	if c.running {
		c.message = "Wait for the sequence to finish"
		return
	}
	from := c.machine.Current()
	if err := c.machine.Back(); err != nil {
		c.message = "Error: " + describe(err)
		return
	}
	c.afterTransition()
	c.record(audit.ActionDeployBack, map[string]string{"from": from.String()}, "success", c.machine.Current().String())
}

func (c *Cockpit) afterTransition() {
	c.terminal = nil
	c.refreshTerminal()
	c.persist()
	p := c.machine.Current()
	switch {
	case p.IsTerminal():
		c.message = "🚀 Deployment complete"
	case p.HasPlayback():
		c.message = p.Title() + ": press r to run"
	default:
		c.message = p.Title() + ": press enter when done"
	}
}

func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, deploy.ErrStepIncomplete):
		return "run the sequence first (press r)"
	case errors.Is(err, deploy.ErrNoPrevious):
		return "already at the first phase"
	case errors.Is(err, deploy.ErrTerminal):
		return "deployment already complete"
	}
	return err.Error()
}

// --- View ---

// View implements tea.Model
func (c *Cockpit) View() string {
	var b strings.Builder
	m := c.machine
	plan := m.Plan()

	header := titleStyle.Render("DAGSMITH Deployment Cockpit")
	header += "  " + headingStyle.Render(c.project)
	header += "  " + pendingStyle.Render(fmt.Sprintf("[%s • %s]", plan.Mode, plan.Branch))
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", c.width) + "\n")

	b.WriteString(c.renderTimeline() + "\n\n")

	step := m.Step()
	title := headingStyle.Render(step.Heading)
	if c.running {
		title = c.spinner.View() + " " + title
	}
	b.WriteString(" " + title + "\n")
	if step.Description != "" {
		b.WriteString(" " + step.Description + "\n")
	}
	if step.Hint != "" {
		b.WriteString(" " + helpStyle.Render(step.Hint) + "\n")
	}
	for _, chk := range step.Checks {
		b.WriteString(fmt.Sprintf("   • %-22s %s\n", chk.Name, checkStatus(chk.Status)))
	}

	if m.Current().HasPlayback() {
		b.WriteString(terminalStyle.Render(c.viewport.View()) + "\n")
	}

	if c.message != "" {
		style := doneStyle
		if strings.HasPrefix(c.message, "Error") {
			style = errStyle
		}
		b.WriteString(style.Render(c.message) + "\n")
	} else {
		b.WriteString("\n")
	}

	status := fmt.Sprintf(" %d%% | r:run | enter:confirm | b:back | ↑↓:scroll | q:quit", m.Current().Progress())
	b.WriteString(statusBarStyle.Width(c.width).Render(status))
	return b.String()
}

func (c *Cockpit) renderTimeline() string {
	current := c.machine.Current()
	parts := make([]string, 0, len(deploy.Phases))
	for _, p := range deploy.Phases {
		switch {
		case p < current || (p == current && p.IsTerminal()):
			parts = append(parts, doneStyle.Render("● "+p.Title()))
		case p == current:
			parts = append(parts, activeStyle.Render("◉ "+p.Title()))
		default:
			parts = append(parts, pendingStyle.Render("○ "+p.Title()))
		}
	}
	return " " + strings.Join(parts, pendingStyle.Render(" ─ "))
}
