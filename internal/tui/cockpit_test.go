package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/connectors/simgit"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/models"
)

type memRecorder struct {
	entries []models.PDREntry
}

func (r *memRecorder) WritePDR(action, inputsHash, outcome, project, details string) (*models.PDREntry, error) {
	e := models.PDREntry{Action: action, InputsHash: inputsHash, Outcome: outcome, Project: project, Details: details}
	r.entries = append(r.entries, e)
	return &e, nil
}

func (r *memRecorder) actions() []string {
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type memTracker struct {
	phase    string
	stepDone bool
	updates  int
}

func (t *memTracker) CreateDeployment(ctx context.Context, project, mode, phase string) (*models.Deployment, error) {
	t.phase = phase
	return &models.Deployment{ID: "dep-1", Project: project, Mode: mode, Phase: phase}, nil
}

func (t *memTracker) UpdateDeploymentPhase(ctx context.Context, id, phase string, stepDone bool) error {
	t.phase, t.stepDone = phase, stepDone
	t.updates++
	return nil
}

func testProject() *models.ProjectConfig {
	return &models.ProjectConfig{
		Name:      "sales",
		OwnerCode: "wxyz",
		OwnerID:   "jdoe",
		GitRemote: "git@example.com:team/sales.git",
		Stage:     models.StageLIL,
		Pools:     []string{"p1"},
	}
}

func newTestCockpit(t *testing.T, mode deploy.Mode) (*Cockpit, *memRecorder, *memTracker) {
	t.Helper()
	rec := &memRecorder{}
	tr := &memTracker{}
	c, err := NewCockpit(context.Background(), testProject(), mode, CockpitOptions{
		Player:  deploy.NewPlayer(simgit.New(), 0, 0),
		Audit:   audit.NewPDRWriter(rec),
		Tracker: tr,
	})
	require.NoError(t, err)
	return c, rec, tr
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// playAll starts the active sequence and feeds every event back into the
// model until playback ends.
func playAll(t *testing.T, c *Cockpit) {
	t.Helper()
	c.Update(key("r"))
	require.True(t, c.Running())
	for i := 0; c.Running(); i++ {
		require.Less(t, i, 1000, "playback did not finish")
		msg := c.waitForEvent()()
		c.Update(msg)
	}
}

func TestCockpit_ConfirmNeedsRun(t *testing.T) {
	c, _, _ := newTestCockpit(t, deploy.ModeCreate)

	c.Update(key("enter"))
	assert.Equal(t, deploy.PhasePushBranch, c.Machine().Current())
	assert.Contains(t, c.Message(), "run the sequence first")

	c.Update(key("b"))
	assert.Contains(t, c.Message(), "already at the first phase")
}

func TestCockpit_FullWorkflow(t *testing.T) {
	c, rec, tr := newTestCockpit(t, deploy.ModeCreate)
	assert.Equal(t, "dep-1", c.DeploymentID())

	playAll(t, c)
	assert.True(t, c.Machine().StepDone())
	require.NotEmpty(t, c.Terminal())
	assert.Equal(t, "$ cd "+c.Machine().Plan().ProjectPath, c.Terminal()[0])
	assert.Contains(t, strings.Join(c.Terminal(), "\n"), "Initialized empty Git repository")
	assert.True(t, tr.stepDone)

	c.Update(key("enter"))
	assert.Equal(t, deploy.PhaseValidateReview, c.Machine().Current())
	assert.Empty(t, c.Terminal())

	// Review has no playback.
	c.Update(key("r"))
	assert.False(t, c.Running())
	c.Update(key("enter"))
	assert.Equal(t, deploy.PhaseTagRelease, c.Machine().Current())

	playAll(t, c)
	assert.Contains(t, strings.Join(c.Terminal(), "\n"), "Created tag v1.0.0")
	c.Update(key("enter"))
	c.Update(key("enter"))
	assert.Equal(t, deploy.PhaseSuccess, c.Machine().Current())
	assert.Equal(t, deploy.PhaseSuccess.String(), tr.phase)
	assert.Contains(t, c.Message(), "Deployment complete")

	c.Update(key("enter"))
	assert.Contains(t, c.Message(), "already complete")

	assert.Equal(t, []string{
		audit.ActionDeployCreate,
		audit.ActionDeployRun,
		audit.ActionDeployConfirm,
		audit.ActionDeployConfirm,
		audit.ActionDeployRun,
		audit.ActionDeployConfirm,
		audit.ActionDeployConfirm,
	}, rec.actions())
	for _, e := range rec.entries {
		assert.Equal(t, "sales", e.Project)
	}
}

func TestCockpit_BackResetsStep(t *testing.T) {
	c, rec, _ := newTestCockpit(t, deploy.ModeUpdate)

	playAll(t, c)
	c.Update(key("enter"))
	c.Update(key("b"))

	assert.Equal(t, deploy.PhasePushBranch, c.Machine().Current())
	assert.False(t, c.Machine().StepDone())
	assert.Contains(t, rec.actions(), audit.ActionDeployBack)

	c.Update(key("enter"))
	assert.Equal(t, deploy.PhasePushBranch, c.Machine().Current())
}

func TestCockpit_QuitCancelsPlayback(t *testing.T) {
	rec := &memRecorder{}
	c, err := NewCockpit(context.Background(), testProject(), deploy.ModeCreate, CockpitOptions{
		Player: deploy.NewPlayer(simgit.New(), time.Hour, time.Hour),
		Audit:  audit.NewPDRWriter(rec),
	})
	require.NoError(t, err)

	c.Update(key("r"))
	require.True(t, c.Running())

	// The first line is echoed before the delay.
	c.Update(c.waitForEvent()())
	require.Len(t, c.Terminal(), 1)

	c.Update(key("enter"))
	assert.Contains(t, c.Message(), "Wait for the sequence")

	_, cmd := c.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	for c.Running() {
		c.Update(c.waitForEvent()())
	}
	assert.False(t, c.Machine().StepDone())
	assert.Contains(t, c.Message(), "aborted")
	assert.Equal(t, "aborted", rec.entries[len(rec.entries)-1].Outcome)
}

func TestCockpit_View(t *testing.T) {
	c, _, _ := newTestCockpit(t, deploy.ModeCreate)
	c.SetSize(120, 40)

	view := c.View()
	assert.Contains(t, view, "sales")
	assert.Contains(t, view, "Push Branch")
	assert.Contains(t, view, "Success")
	assert.Contains(t, view, "r:run")
}

func TestCockpit_RequiresPlayer(t *testing.T) {
	_, err := NewCockpit(context.Background(), testProject(), deploy.ModeCreate, CockpitOptions{})
	assert.Error(t, err)
}
