package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/models"
)

func task(name string) models.Task {
	return models.Task{ID: name, Name: name, Priority: models.PriorityMid, Slots: 1, Kind: models.TaskKindPython}
}

func flowConfig() *models.ProjectConfig {
	return &models.ProjectConfig{
		Name:      "sales-daily",
		OwnerCode: "wxyz",
		OwnerID:   "u123",
		Namespace: "eidp_p630",
		Stage:     models.StageLIL,
		Pipeline: []models.Stage{
			{ID: "s1", Tasks: []models.Task{task("extract")}},
			{ID: "s2", Tasks: []models.Task{task("join_a"), task("join_b")}},
			{ID: "s3", Tasks: []models.Task{task("load")}},
		},
	}
}

func TestFlowEdgesScenario(t *testing.T) {
	want := []Edge{
		{From: "start", To: "t_extract"},
		{From: "t_extract", To: "[t_join_a, t_join_b]"},
		{From: "[t_join_a, t_join_b]", To: "t_load"},
		{From: "t_load", To: "end"},
	}
	if diff := cmp.Diff(want, FlowEdges(flowConfig().Pipeline)); diff != "" {
		t.Errorf("FlowEdges mismatch (-want +got):\n%s", diff)
	}
}

func TestFlowEdgesSkipsEmptyStages(t *testing.T) {
	pipeline := []models.Stage{
		{ID: "s1"},
		{ID: "s2", Tasks: []models.Task{task("a")}},
		{ID: "s3"},
		{ID: "s4", Tasks: []models.Task{task("b")}},
	}
	got := FlowEdges(pipeline)
	want := []Edge{{"start", "t_a"}, {"t_a", "t_b"}, {"t_b", "end"}}
	assert.Equal(t, want, got)
}

func TestFlowEdgesEmptyPipeline(t *testing.T) {
	assert.Equal(t, []Edge{{"start", "end"}}, FlowEdges(nil))
	assert.Equal(t, []Edge{{"start", "end"}}, FlowEdges([]models.Stage{{ID: "empty"}}))
}

func TestDAGFlowSection(t *testing.T) {
	dag := DAG(flowConfig())
	idx := strings.Index(dag, "    # Pipeline Flow\n")
	require.NotEqual(t, -1, idx)
	flow := dag[idx:]
	assert.Equal(t, "    # Pipeline Flow\n"+
		"    start >> t_extract\n"+
		"    t_extract >> [t_join_a, t_join_b]\n"+
		"    [t_join_a, t_join_b] >> t_load\n"+
		"    t_load >> end\n", flow)
}

func TestMetaScenario(t *testing.T) {
	cfg := &models.ProjectConfig{Name: "abc", OwnerCode: "wxyz", Stage: "A", Namespace: "eidp_p630"}
	lines := strings.Split(Meta(cfg), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "folder: abc/r_wxyz_abc", lines[0])
	assert.Equal(t, "stage: A", lines[1])
	assert.Equal(t, "ld_data: EIDP_P630", lines[2])
}

func TestMetaOptionalKeys(t *testing.T) {
	cfg := &models.ProjectConfig{
		Name:             "abc",
		OwnerCode:        "wxyz",
		OwnerID:          "u1",
		Stage:            models.StageSXB,
		Namespace:        "ns",
		Pools:            []string{"ns_std_pool", "ns_compute"},
		UseDatabase:      true,
		ContextTag:       "silo1",
		UseManagedEnv:    true,
		EnvName:          "py311",
		UseInput:         true,
		InputPath:        "data/in",
		UseOutput:        true,
		OutputPath:       "/abs/out",
		UseSharedStorage: true,
		UseAccelerator:   true,
	}
	want := `folder: abc/r_wxyz_abc
stage: SXB
ld_data: NS
persoid: u1
pools:
  - ns_std_pool
  - ns_compute
silot: silo1
env_name: py311
input_folder: /home/jovyan/workspaces/data/in
output_folder: /abs/out
NAS: true
GPU: true
`
	assert.Equal(t, want, Meta(cfg))

	cfg.UseDatabase, cfg.UseInput, cfg.UseAccelerator = false, false, false
	cfg.EnvName = ""
	got := Meta(cfg)
	for _, key := range []string{"silot:", "input_folder:", "GPU:", "env_name:"} {
		assert.NotContains(t, got, key)
	}
	assert.Contains(t, got, "output_folder: /abs/out")
}

func TestNameSanitization(t *testing.T) {
	cfg := flowConfig()
	cfg.Pipeline = []models.Stage{{ID: "s1", Tasks: []models.Task{task("load data!")}}}

	art := Compile(cfg)
	assert.Contains(t, art.Logic, "def load_data_(**context):")
	assert.Contains(t, art.DAG, "from src.treatment import load_data_\n")
	assert.Contains(t, art.DAG, "    t_load_data_ = PythonOperator(\n        task_id='load_data_',\n        python_callable=load_data_,\n")
	assert.Contains(t, art.DAG, "start >> t_load_data_\n")
}

func TestLogicModule(t *testing.T) {
	pipeline := []models.Stage{
		{ID: "s1", Tasks: []models.Task{{
			Name:    "extract",
			Imports: "import pandas as pd\n\n  import os  \n",
			Code:    "df = pd.read_csv('x')\n\nreturn df",
		}}},
		{ID: "s2", Tasks: []models.Task{
			{Name: "noop", Imports: "import os\nimport json"},
		}},
	}
	want := "import pandas as pd\nimport os\nimport json\n\n" +
		"def extract(**context):\n" +
		"    df = pd.read_csv('x')\n" +
		"\n" +
		"    return df\n\n" +
		"def noop(**context):\n" +
		"    pass\n\n"
	assert.Equal(t, want, Logic(pipeline))
}

func TestLogicWithoutImports(t *testing.T) {
	got := Logic([]models.Stage{{Tasks: []models.Task{{Name: "a", Code: "  \n"}}}})
	assert.Equal(t, "def a(**context):\n    pass\n\n", got)
}

func TestDAGOperators(t *testing.T) {
	cfg := flowConfig()
	cfg.Pools = []string{"p_std", "p_high"}
	cfg.Pipeline[0].Tasks[0].Priority = models.PriorityHigh
	cfg.Pipeline[0].Tasks[0].Slots = 3
	cfg.Pipeline[2].Tasks[0].Pool = "p_high"
	cfg.Pipeline[2].Tasks[0].Priority = models.PriorityLow

	dag := DAG(cfg)
	assert.Contains(t, dag, "with DAG('dag_sales_daily',")
	assert.Contains(t, dag, "from src.treatment import extract, join_a, join_b, load\n")
	assert.Contains(t, dag, "        task_id='extract',\n        python_callable=extract,\n        priority_weight=3,\n        pool='p_std',\n        pool_slots=3,\n        dag=dag\n    )\n")
	assert.Contains(t, dag, "        task_id='load',\n        python_callable=load,\n        priority_weight=1,\n        pool='p_high',\n")
	assert.Contains(t, dag, "        task_id='join_a',\n        python_callable=join_a,\n        priority_weight=2,\n")
}

func TestDAGDefaultPool(t *testing.T) {
	dag := DAG(flowConfig())
	assert.Contains(t, dag, "pool='default_pool',")
}

func TestDAGSubstitutions(t *testing.T) {
	cfg := flowConfig()
	dag := DAG(cfg)
	assert.Contains(t, dag, "custom_env_name = \"airflow-env\"\nschedule_interval = None\n")
	assert.Contains(t, dag, "schedule_interval=schedule_interval,")

	cfg.UseManagedEnv = true
	cfg.EnvName = "py311"
	cfg.Schedule = "0 9 * * 1,5"
	dag = DAG(cfg)
	assert.Contains(t, dag, "custom_env_name = \"py311\"\nschedule_interval = \"0 9 * * 1,5\"\n")
	assert.Contains(t, dag, "schedule_interval=schedule_interval,")
}

func TestDAGEmptyPipeline(t *testing.T) {
	cfg := &models.ProjectConfig{Name: "empty"}
	dag := DAG(cfg)
	assert.NotContains(t, dag, "from src.treatment import")
	assert.NotContains(t, dag, "PythonOperator(\n")
	assert.True(t, strings.HasSuffix(dag, "    # Pipeline Flow\n    start >> end\n"))
}

func TestCompileIsIdempotent(t *testing.T) {
	cfg := flowConfig()
	cfg.Schedule = "30 2 1 * *"
	cfg.Pipeline[1].Tasks[0].Imports = "import os"
	cfg.Pipeline[1].Tasks[0].Code = "print('x')"

	first := Compile(cfg)
	second := Compile(cfg)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Compile not idempotent (-first +second):\n%s", diff)
	}
}

func TestCompileDoesNotMutateConfig(t *testing.T) {
	cfg := flowConfig()
	before := cfg.Clone()
	Compile(cfg)
	if diff := cmp.Diff(before, *cfg); diff != "" {
		t.Errorf("Compile mutated config (-before +after):\n%s", diff)
	}
}

func TestArtifactsReferToSameIdentifiers(t *testing.T) {
	cfg := flowConfig()
	cfg.Pipeline = append(cfg.Pipeline, models.Stage{ID: "s4", Tasks: []models.Task{task("send report!"), task("notify-team")}})
	art := Compile(cfg)

	defined := map[string]bool{}
	for _, line := range strings.Split(art.Logic, "\n") {
		if name, ok := strings.CutPrefix(line, "def "); ok {
			defined[strings.TrimSuffix(name, "(**context):")] = true
		}
	}

	var imported []string
	for _, line := range strings.Split(art.DAG, "\n") {
		if list, ok := strings.CutPrefix(line, "from src.treatment import "); ok {
			imported = strings.Split(list, ", ")
		}
	}
	require.NotEmpty(t, imported)
	require.Len(t, defined, len(imported))
	for _, name := range imported {
		assert.True(t, defined[name], "imported %s is not defined in the logic module", name)
		assert.Contains(t, art.DAG, "t_"+name+" = PythonOperator(")
		assert.Contains(t, art.DAG, "python_callable="+name+",")
	}
	for _, e := range FlowEdges(cfg.Pipeline) {
		for _, node := range strings.Split(strings.Trim(e.To, "[]"), ", ") {
			if node == EndNode {
				continue
			}
			assert.True(t, defined[strings.TrimPrefix(node, "t_")], "flow node %s has no function", node)
		}
	}
}

func TestArtifactFiles(t *testing.T) {
	art := Artifacts{DAG: "d", Logic: "l", Meta: "m"}
	assert.Equal(t, map[string]string{"dag.py": "d", "src/treatment.py": "l", "recipe/meta.yaml": "m"}, art.Files())
}
