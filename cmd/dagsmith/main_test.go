package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/fentz26/dagsmith/internal/config"
	"github.com/fentz26/dagsmith/internal/scheduler"
	"github.com/fentz26/dagsmith/internal/store"
)

const sampleYAML = `nomprojet: sales
coderobin: wxyz
persoid: u1
stage: LIL
cron: "0 9 * * 1"
pools: [p1]
pipeline:
  - id: s1
    tasks:
      - id: t1
        name: extract
        imports: import os
        code: print(os.getcwd())
        priority: high
        pool_slots: 1
        type: python
`

func withDefaults(t *testing.T) {
	t.Helper()
	appCfg = config.DefaultConfig()
	logger = newLogger("error", "text", io.Discard)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("warn", "json", &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cockpit.log")
	l, closer, err := fileLogger(path, "info", "text")
	require.NoError(t, err)
	l.Info("phase confirmed", "project", "sales")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "phase confirmed")
	assert.Contains(t, string(data), "project=sales")
}

func TestCockpitLogPath(t *testing.T) {
	withDefaults(t)
	appCfg.DBPath = filepath.Join("/data", "dagsmith", "dagsmith.db")
	assert.Equal(t, filepath.Join("/data", "dagsmith", "cockpit.log"), cockpitLogPath())
}

func TestParseDays(t *testing.T) {
	days, err := parseDays("1, 5,")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, days)

	_, err = parseDays("7")
	assert.Error(t, err)
	_, err = parseDays("mon")
	assert.Error(t, err)
}

func TestBuildJob(t *testing.T) {
	withDefaults(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	out := filepath.Join(dir, "out")
	job := buildJob(path, out)
	assert.Equal(t, "yaml", job.Kind)
	assert.Equal(t, "sales", job.Project)

	written, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "sales"), written)

	dag, err := os.ReadFile(filepath.Join(written, "r_wxyz_sales", "dag.py"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(dag), "t_extract = PythonOperator("))
}

func TestBuildJobInvalid(t *testing.T) {
	withDefaults(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(sampleYAML, "coderobin: wxyz", "coderobin: \"\"", 1)), 0o644))

	_, err := buildJob(path, filepath.Join(dir, "out")).Run(context.Background())
	assert.Error(t, err)
}

func TestBuildRecordsProject(t *testing.T) {
	withDefaults(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "sales.yaml")
	require.NoError(t, os.WriteFile(good, []byte(sampleYAML), 0o644))
	bad := filepath.Join(dir, "sales_bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(strings.Replace(sampleYAML, "coderobin: wxyz", "coderobin: \"\"", 1)), 0o644))

	st, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer st.Close()

	sch := scheduler.New(&appCfg.Build, audit.NewPDRWriter(st), logger)
	out := filepath.Join(dir, "out")
	results := sch.Run(context.Background(), []scheduler.Job{buildJob(good, out), buildJob(bad, out)})
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)

	entries, err := st.ListPDR(context.Background(), "sales", 10)
	require.NoError(t, err)
	outcomes := map[string]int{}
	for _, e := range entries {
		assert.Equal(t, audit.ActionBuild, e.Action)
		outcomes[e.Outcome]++
	}
	assert.Equal(t, map[string]int{"success": 1, "failure": 1}, outcomes)
}
