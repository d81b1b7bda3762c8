package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/models"
)

// metaFile mirrors the keys written by compiler.Meta.
type metaFile struct {
	Folder       string   `yaml:"folder"`
	Stage        string   `yaml:"stage"`
	Namespace    string   `yaml:"ld_data"`
	OwnerID      string   `yaml:"persoid"`
	Pools        []string `yaml:"pools"`
	ContextTag   *string  `yaml:"silot"`
	EnvName      *string  `yaml:"env_name"`
	InputFolder  *string  `yaml:"input_folder"`
	OutputFolder *string  `yaml:"output_folder"`
	NAS          bool     `yaml:"NAS"`
	GPU          bool     `yaml:"GPU"`
}

// ParseMeta rebuilds the identity and resource settings of a project from
// its metadata descriptor. The pipeline is left empty.
func ParseMeta(data []byte) (*models.ProjectConfig, error) {
	var m metaFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing meta.yaml: %w", err)
	}

	name, repo, ok := strings.Cut(m.Folder, "/")
	if !ok || name == "" {
		return nil, fmt.Errorf("parsing meta.yaml: folder %q is not <project>/r_<code>_<project>", m.Folder)
	}
	code := strings.TrimSuffix(strings.TrimPrefix(repo, "r_"), "_"+name)

	cfg := &models.ProjectConfig{
		Name:             name,
		OwnerCode:        code,
		OwnerID:          m.OwnerID,
		Namespace:        strings.ToLower(m.Namespace),
		Stage:            models.DeploymentStage(m.Stage),
		Pools:            m.Pools,
		UseSharedStorage: m.NAS,
		UseAccelerator:   m.GPU,
	}
	if m.ContextTag != nil {
		cfg.UseDatabase, cfg.ContextTag = true, *m.ContextTag
	}
	if m.EnvName != nil {
		cfg.UseManagedEnv, cfg.EnvName = true, *m.EnvName
	}
	if m.InputFolder != nil {
		cfg.UseInput, cfg.InputPath = true, *m.InputFolder
	}
	if m.OutputFolder != nil {
		cfg.UseOutput, cfg.OutputPath = true, *m.OutputFolder
	}
	return cfg, nil
}

// ImportMeta reads a metadata descriptor from disk.
func ImportMeta(path string) (*models.ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta.yaml: %w", err)
	}
	return ParseMeta(data)
}

var (
	defLine      = regexp.MustCompile(`^def ([A-Za-z0-9_]+)\(\*\*context\):$`)
	scheduleDecl = regexp.MustCompile(`(?m)^schedule_interval\s*=\s*"([^"]*)"`)
)

// Import reads a generated repository directory (r_<code>_<project>). The
// metadata descriptor is required. When the logic module is present its
// functions become the tasks of a single stage; when the graph definition is
// present its schedule is recovered.
func Import(repoDir string) (*models.ProjectConfig, error) {
	cfg, err := ImportMeta(filepath.Join(repoDir, filepath.FromSlash(compiler.MetaFile)))
	if err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(filepath.Join(repoDir, filepath.FromSlash(compiler.LogicFile))); err == nil {
		if tasks := parseLogic(string(data)); len(tasks) > 0 {
			cfg.Pipeline = []models.Stage{{ID: "s1", Tasks: tasks}}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading logic module: %w", err)
	}

	if data, err := os.ReadFile(filepath.Join(repoDir, compiler.DAGFile)); err == nil {
		if m := scheduleDecl.FindSubmatch(data); m != nil {
			cfg.Schedule = string(m[1])
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading dag: %w", err)
	}
	return cfg, nil
}

// parseLogic splits a logic module into tasks. The import header is kept on
// the first task so recompiling reproduces it.
func parseLogic(src string) []models.Task {
	var (
		tasks   []models.Task
		imports []string
		body    []string
		current *models.Task
	)
	flush := func() {
		if current == nil {
			return
		}
		for len(body) > 0 && body[len(body)-1] == "" {
			body = body[:len(body)-1]
		}
		code := strings.Join(body, "\n")
		if code == "pass" {
			code = ""
		}
		current.Code = code
		tasks = append(tasks, *current)
		body = nil
	}

	for _, line := range strings.Split(src, "\n") {
		if m := defLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.Task{
				ID:       m[1],
				Name:     m[1],
				Priority: models.PriorityMid,
				Slots:    1,
				Kind:     models.TaskKindPython,
			}
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) != "" {
				imports = append(imports, line)
			}
			continue
		}
		body = append(body, strings.TrimPrefix(line, "    "))
	}
	flush()

	if len(tasks) > 0 {
		tasks[0].Imports = strings.Join(imports, "\n")
	}
	return tasks
}
