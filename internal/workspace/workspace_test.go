package workspace

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/models"
)

func sampleConfig() *models.ProjectConfig {
	return &models.ProjectConfig{
		Name:             "sales",
		OwnerCode:        "wxyz",
		OwnerID:          "u1",
		Namespace:        "eidp_p630",
		Stage:            models.StageLIL,
		Schedule:         "0 9 * * 1,5",
		Pools:            []string{"eidp_p630_std_pool"},
		UseManagedEnv:    true,
		EnvName:          "py311",
		UseOutput:        true,
		OutputPath:       "/data/out",
		UseSharedStorage: true,
		PrepareTests:     true,
		Pipeline: []models.Stage{{ID: "s1", Tasks: []models.Task{
			{ID: "extract", Name: "extract", Imports: "import os\nimport json", Code: "x = os.getcwd()\n\nprint(x)", Priority: models.PriorityMid, Slots: 1, Kind: models.TaskKindPython},
			{ID: "load", Name: "load", Priority: models.PriorityMid, Slots: 1, Kind: models.TaskKindPython},
		}}},
	}
}

func TestTreeLayout(t *testing.T) {
	cfg := sampleConfig()
	var paths []string
	for _, f := range Tree(cfg, compiler.Compile(cfg)) {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{
		".cicd/pipeline.cicd.yaml",
		".gitignore",
		"README.md",
		"airflow-python-311.txt",
		"airflow.cfg",
		"r_wxyz_sales/dag.py",
		"r_wxyz_sales/recipe/meta.yaml",
		"r_wxyz_sales/src/__init__.py",
		"r_wxyz_sales/src/treatment.py",
	}, paths)
}

func TestTreeBundleBase(t *testing.T) {
	cfg := sampleConfig()
	cfg.UseManagedEnv = false
	cfg.BundleBase = "airflow-base-2.7"
	cfg.PrepareTests = false

	found := map[string]string{}
	for _, f := range Tree(cfg, compiler.Compile(cfg)) {
		found[f.Path] = f.Content
	}
	assert.Equal(t, "airflow-base-2.7\n", found["BUNDLE_AIRFLOW.txt"])
	assert.NotContains(t, found, "airflow-python-311.txt")
	assert.NotContains(t, found, "airflow.cfg")
	assert.Contains(t, found[".cicd/pipeline.cicd.yaml"], "component: sales\n")
}

func TestWriteAndImport(t *testing.T) {
	cfg := sampleConfig()
	art := compiler.Compile(cfg)

	dir, err := Write(t.TempDir(), cfg, art)
	require.NoError(t, err)

	dag, err := os.ReadFile(filepath.Join(dir, "r_wxyz_sales", "dag.py"))
	require.NoError(t, err)
	assert.Equal(t, art.DAG, string(dag))

	got, err := Import(filepath.Join(dir, "r_wxyz_sales"))
	require.NoError(t, err)
	assert.Equal(t, "sales", got.Name)
	assert.Equal(t, "wxyz", got.OwnerCode)
	assert.Equal(t, "eidp_p630", got.Namespace)
	assert.Equal(t, cfg.Schedule, got.Schedule)
	assert.Equal(t, cfg.Pools, got.Pools)
	assert.True(t, got.UseManagedEnv)
	assert.Equal(t, "py311", got.EnvName)
	assert.True(t, got.UseOutput)
	assert.False(t, got.UseInput)
	assert.True(t, got.UseSharedStorage)

	// Recompiling the imported tasks reproduces the logic module.
	assert.Equal(t, art.Logic, compiler.Logic(got.Pipeline))
	assert.Equal(t, art.Meta, compiler.Meta(got))
}

func TestImportMetaOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folder: my_proj/r_ab_my_proj\nstage: SXB\nld_data: NS1\npersoid: u2\nsilot: BANK\nGPU: true\n"), 0o644))

	cfg, err := ImportMeta(path)
	require.NoError(t, err)
	assert.Equal(t, "my_proj", cfg.Name)
	assert.Equal(t, "ab", cfg.OwnerCode)
	assert.Equal(t, models.StageSXB, cfg.Stage)
	assert.Equal(t, "ns1", cfg.Namespace)
	assert.True(t, cfg.UseDatabase)
	assert.Equal(t, "BANK", cfg.ContextTag)
	assert.True(t, cfg.UseAccelerator)
	assert.Empty(t, cfg.Pipeline)
}

func TestParseMetaRejectsBadFolder(t *testing.T) {
	_, err := ParseMeta([]byte("folder: nofolder\n"))
	assert.Error(t, err)
}

func TestBundle(t *testing.T) {
	cfg := sampleConfig()
	art := compiler.Compile(cfg)

	var buf bytes.Buffer
	require.NoError(t, Bundle(&buf, cfg, art))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	assert.Equal(t, art.Meta, contents["sales/r_wxyz_sales/recipe/meta.yaml"])
	assert.Equal(t, art.Logic, contents["sales/r_wxyz_sales/src/treatment.py"])
	assert.Len(t, contents, len(Tree(cfg, art)))
}

func TestWriteRequiresName(t *testing.T) {
	_, err := Write(t.TempDir(), &models.ProjectConfig{}, compiler.Artifacts{})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}
