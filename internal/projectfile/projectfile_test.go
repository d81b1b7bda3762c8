package projectfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "project.yaml", `
nomprojet: Sales Daily
coderobin: WXYZ
persoid: u1
lddata: eidp_p630
stage: LIL
cron: "0 9 * * 1,5"
pools: [eidp_p630_std_pool]
pipeline:
  - id: s1
    tasks:
      - id: t1
        name: extract
        imports: import os
        code: print(os.getcwd())
        priority: high
        pool_slots: 2
        type: python
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sales_daily", cfg.Name)
	assert.Equal(t, "wxyz", cfg.OwnerCode)
	assert.Equal(t, "0 9 * * 1,5", cfg.Schedule)
	require.Len(t, cfg.Pipeline, 1)
	assert.Equal(t, models.Task{ID: "t1", Name: "extract", Imports: "import os", Code: "print(os.getcwd())", Priority: models.PriorityHigh, Slots: 2, Kind: models.TaskKindPython}, cfg.Pipeline[0].Tasks[0])
	assert.NoError(t, cfg.Validate())
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	path := writeFile(t, "project.json", `{"nomprojet":"abc","coderobin":"ab","stage":"SXB","pipeline":[{"id":"s1","tasks":[{"id":"t","name":"only"}]}]}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	task := cfg.Pipeline[0].Tasks[0]
	assert.Equal(t, models.PriorityMid, task.Priority)
	assert.Equal(t, models.TaskKindPython, task.Kind)
	assert.Equal(t, 1, task.Slots)
}

func TestLoadHCL(t *testing.T) {
	path := writeFile(t, "project.hcl", `
project "sales" {
  owner_code   = "wxyz"
  owner_id     = "u1"
  namespace    = "eidp_p630"
  deploy_stage = "SXB"
  schedule     = "0 0 1 * *"
  pools        = ["eidp_p630_std_pool", "eidp_p630_compute"]
  env_name     = "py311"
  input_path   = "data/in"

  stage "s1" {
    task "extract" {
      imports  = "import pandas as pd"
      code     = "pd.read_csv('x')"
      priority = "high"
      slots    = 2
    }
  }

  stage "s2" {
    task "join_a" {}
    task "join_b" {
      pool = "eidp_p630_compute"
    }
  }
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sales", cfg.Name)
	assert.Equal(t, models.StageSXB, cfg.Stage)
	assert.True(t, cfg.UseManagedEnv)
	assert.True(t, cfg.UseInput)
	assert.False(t, cfg.UseOutput)
	require.Len(t, cfg.Pipeline, 2)
	assert.Equal(t, "s2", cfg.Pipeline[1].ID)
	assert.Equal(t, "join_a", cfg.Pipeline[1].Tasks[0].ID)
	assert.Equal(t, "eidp_p630_compute", cfg.Pipeline[1].Tasks[1].Pool)
	assert.Equal(t, 2, cfg.Pipeline[0].Tasks[0].Slots)
	assert.Equal(t, 1, cfg.Pipeline[1].Tasks[0].Slots)
}

func TestLoadHCLWithoutProject(t *testing.T) {
	_, err := Load(writeFile(t, "empty.hcl", ""))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := &models.ProjectConfig{
		Name: "abc", OwnerCode: "wxyz", Stage: models.StageLIL, Pools: []string{"p"},
		Pipeline: []models.Stage{{ID: "s1", Tasks: []models.Task{{ID: "t", Name: "a", Priority: models.PriorityLow, Slots: 1, Kind: models.TaskKindPython}}}},
	}
	for _, name := range []string{"p.yaml", "p.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, cfg))
			got, err := Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(cfg, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnsupportedFormats(t *testing.T) {
	_, err := Load("project.toml")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	err = Save(filepath.Join(t.TempDir(), "p.hcl"), &models.ProjectConfig{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
