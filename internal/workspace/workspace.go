// Package workspace lays out a generated project on disk or in a zip
// archive, and reads an existing layout back.
package workspace

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fentz26/dagsmith/internal/compiler"
	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

const gitignore = `
.DS_Store
__pycache__/
*.pyc
.env
.ipynb_checkpoints/
`

const pipelineTemplate = `
stages:
  - build
  - deploy

build:
  stage: build
  script: echo "Building..."

deploy:
  stage: deploy
  component: %s
  script: echo "Deploying..."
`

// File is one entry of a project tree, with a slash-separated path relative
// to the project root.
type File struct {
	Path    string
	Content string
}

// Tree returns the files of a project in a stable order.
func Tree(cfg *models.ProjectConfig, art compiler.Artifacts) []File {
	repo := naming.RepoDir(cfg.OwnerCode, cfg.Name)
	files := []File{
		{".gitignore", gitignore},
		{".cicd/pipeline.cicd.yaml", fmt.Sprintf(pipelineTemplate, cfg.Name)},
	}
	switch {
	case cfg.UseManagedEnv:
		files = append(files, File{"airflow-python-311.txt", "# Conda requirements\npandas\nnumpy\n"})
	case cfg.BundleBase != "":
		files = append(files, File{"BUNDLE_AIRFLOW.txt", cfg.BundleBase + "\n"})
	}
	if cfg.PrepareTests {
		files = append(files, File{"airflow.cfg", "load_examples = False\n"})
	}
	files = append(files,
		File{"README.md", readme(cfg)},
		File{path.Join(repo, compiler.DAGFile), art.DAG},
		File{path.Join(repo, "src/__init__.py"), ""},
		File{path.Join(repo, compiler.LogicFile), art.Logic},
		File{path.Join(repo, compiler.MetaFile), art.Meta},
	)
	return files
}

func readme(cfg *models.ProjectConfig) string {
	return fmt.Sprintf(`# %s

Generated by dagsmith

## Project Info
- Owner: %s
- Stage: %s
- LD Data: %s

## Deployment
Follow the release workflow in the deployment cockpit (dagsmith deploy %s).
`, cfg.Name, cfg.OwnerID, cfg.Stage, cfg.Namespace, cfg.Name)
}

// Write lays out the project under root/<project> and returns that directory.
func Write(root string, cfg *models.ProjectConfig, art compiler.Artifacts) (string, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return "", fmt.Errorf("write workspace: %w: project name is required", models.ErrInvalidConfig)
	}
	dir := filepath.Join(root, cfg.Name)
	for _, f := range Tree(cfg, art) {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create dir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return dir, nil
}

// Bundle writes the project tree as a zip archive rooted at <project>/.
func Bundle(w io.Writer, cfg *models.ProjectConfig, art compiler.Artifacts) error {
	zw := zip.NewWriter(w)
	for _, f := range Tree(cfg, art) {
		fw, err := zw.Create(path.Join(cfg.Name, f.Path))
		if err != nil {
			return fmt.Errorf("add %s: %w", f.Path, err)
		}
		if _, err := io.WriteString(fw, f.Content); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
