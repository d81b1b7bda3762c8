// Package tui provides the interactive deployment cockpit for dagsmith.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/dagsmith/internal/deploy"
)

// App is the main TUI application model. It starts on the project picker,
// or directly in a cockpit when opened with a project.
type App struct {
	ctx     context.Context
	backend Backend
	mode    deploy.Mode
	opts    CockpitOptions

	projects *ProjectListModel
	cockpit  *Cockpit
	width    int
	height   int
	message  string
}

// New creates a new TUI application.
func New(ctx context.Context, backend Backend, mode deploy.Mode, opts CockpitOptions) *App {
	return &App{
		ctx:      ctx,
		backend:  backend,
		mode:     mode,
		opts:     opts,
		projects: NewProjectListModel(backend),
	}
}

// Open starts a cockpit for the named project without showing the picker.
func (a *App) Open(name string) error {
	cfg, err := a.backend.LoadProject(a.ctx, name)
	if err != nil {
		return fmt.Errorf("load project %s: %w", name, err)
	}
	c, err := NewCockpit(a.ctx, cfg, a.mode, a.opts)
	if err != nil {
		return err
	}
	a.cockpit = c
	if a.width > 0 {
		c.SetSize(a.width, a.height)
	}
	return nil
}

// Cockpit returns the active cockpit, or nil on the picker.
func (a *App) Cockpit() *Cockpit { return a.cockpit }

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if a.cockpit != nil {
		a.cockpit.Stop()
	}
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.cockpit != nil {
		return a.cockpit.Init()
	}
	return a.projects.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.projects.SetSize(msg.Width, msg.Height-4)
		if a.cockpit != nil {
			a.cockpit.SetSize(msg.Width, msg.Height)
		}
		return a, nil

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	if a.cockpit != nil {
		return a.updateCockpit(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok && !a.projects.Filtering() {
		switch key.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter":
			if sel := a.projects.Selected(); sel != nil {
				if err := a.Open(sel.Name); err != nil {
					a.message = "Error: " + err.Error()
					return a, nil
				}
				a.message = ""
				return a, a.cockpit.Init()
			}
			return a, nil
		}
	}

	_, cmd := a.projects.Update(msg)
	return a, cmd
}

func (a *App) updateCockpit(msg tea.Msg) (tea.Model, tea.Cmd) {
	// esc returns to the picker once no sequence is playing.
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" && !a.cockpit.Running() {
		a.cockpit.Stop()
		a.cockpit = nil
		return a, a.projects.Refresh()
	}
	_, cmd := a.cockpit.Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	if a.cockpit != nil {
		return a.cockpit.View()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("DAGSMITH") + "  " + helpStyle.Render("select a project to deploy") + "\n")
	b.WriteString(a.projects.View() + "\n")
	if a.message != "" {
		b.WriteString(errStyle.Render(a.message) + "\n")
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(" ↑↓:nav | /:filter | enter:deploy | q:quit"))
	return b.String()
}
