package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/dagsmith/internal/models"
)

var listTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205"))

// ProjectItem implements list.Item for the project picker
type ProjectItem struct {
	models.ProjectSummary
}

func (i ProjectItem) FilterValue() string { return i.Name }
func (i ProjectItem) Title() string       { return i.Name }
func (i ProjectItem) Description() string {
	return fmt.Sprintf("%d stages • %d tasks • updated %s", i.Stages, i.Tasks, i.UpdatedAt.Format("2006-01-02 15:04"))
}

// ProjectListModel manages the project picker screen
type ProjectListModel struct {
	backend Backend
	list    list.Model
	loading bool
}

// NewProjectListModel creates a new project picker
func NewProjectListModel(backend Backend) *ProjectListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Projects"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &ProjectListModel{
		backend: backend,
		list:    l,
	}
}

// Init loads the projects
func (m *ProjectListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions
func (m *ProjectListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// Selected returns the highlighted project, or nil.
func (m *ProjectListModel) Selected() *ProjectItem {
	if item := m.list.SelectedItem(); item != nil {
		p := item.(ProjectItem)
		return &p
	}
	return nil
}

// Filtering reports whether the list is capturing keys for its filter.
func (m *ProjectListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Refresh fetches projects from the backend
func (m *ProjectListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		projects, err := m.backend.ListProjects(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return projectsLoadedMsg{projects}
	}
}

// Update handles messages
func (m *ProjectListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		m.loading = false
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = ProjectItem{p}
		}
		return m, m.list.SetItems(items)

	case errMsg:
		m.loading = false
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the project picker
func (m *ProjectListModel) View() string {
	if m.loading {
		return "Loading projects..."
	}
	return m.list.View()
}

type projectsLoadedMsg struct {
	projects []models.ProjectSummary
}

type errMsg struct {
	err error
}
