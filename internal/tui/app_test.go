package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/connectors/simgit"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/store"
)

type fakeBackend struct {
	projects map[string]*models.ProjectConfig
}

func (b *fakeBackend) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	var out []models.ProjectSummary
	for _, p := range b.projects {
		out = append(out, p.Summary())
	}
	return out, nil
}

func (b *fakeBackend) LoadProject(ctx context.Context, name string) (*models.ProjectConfig, error) {
	p, ok := b.projects[name]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return p, nil
}

func newTestApp() *App {
	backend := &fakeBackend{projects: map[string]*models.ProjectConfig{"sales": testProject()}}
	return New(context.Background(), backend, deploy.ModeCreate, CockpitOptions{
		Player: deploy.NewPlayer(simgit.New(), 0, 0),
	})
}

func TestApp_PickProject(t *testing.T) {
	a := newTestApp()
	a.Update(a.projects.Refresh()())

	item := a.projects.Selected()
	require.NotNil(t, item)
	assert.Equal(t, "sales", item.Name)

	a.Update(key("enter"))
	require.NotNil(t, a.Cockpit())
	assert.Equal(t, deploy.PhasePushBranch, a.Cockpit().Machine().Current())

	a.Update(key("esc"))
	assert.Nil(t, a.Cockpit())
}

func TestApp_OpenMissing(t *testing.T) {
	a := newTestApp()
	err := a.Open("ghost")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	assert.Nil(t, a.Cockpit())
}

func TestClient_Backend(t *testing.T) {
	cfg := testProject()
	mux := http.NewServeMux()
	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.ProjectSummary{{ID: "p1", Name: cfg.Name, UpdatedAt: time.Now()}})
	})
	mux.HandleFunc("/projects/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/sales" {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(models.ProjectRecord{ID: "p1", Name: cfg.Name, Config: *cfg})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"db":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var c Backend = NewClient(srv.URL)
	ctx := context.Background()

	list, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sales", list[0].Name)

	got, err := c.LoadProject(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, cfg.GitRemote, got.GitRemote)

	_, err = c.LoadProject(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)

	ok, err := NewClient(srv.URL).CheckHealth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
