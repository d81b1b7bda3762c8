package projectfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/fentz26/dagsmith/internal/models"
)

// hclFile is the top-level structure of an HCL project definition:
//
//	project "sales" {
//	  owner_code   = "wxyz"
//	  deploy_stage = "LIL"
//	  stage "s1" {
//	    task "extract" {
//	      code = "print('hi')"
//	    }
//	  }
//	}
type hclFile struct {
	Project *hclProject `hcl:"project,block"`
}

type hclProject struct {
	Name          string   `hcl:"name,label"`
	OwnerCode     string   `hcl:"owner_code"`
	OwnerID       string   `hcl:"owner_id,optional"`
	GitRemote     string   `hcl:"git_remote,optional"`
	Namespace     string   `hcl:"namespace,optional"`
	DeployStage   string   `hcl:"deploy_stage,optional"`
	Schedule      string   `hcl:"schedule,optional"`
	Pools         []string `hcl:"pools,optional"`
	EnvName       string   `hcl:"env_name,optional"`
	BundleBase    string   `hcl:"bundle_base,optional"`
	PrepareTests  bool     `hcl:"prepare_tests,optional"`
	ContextTag    string   `hcl:"context_tag,optional"`
	InputPath     string   `hcl:"input_path,optional"`
	OutputPath    string   `hcl:"output_path,optional"`
	SharedStorage bool     `hcl:"shared_storage,optional"`
	Accelerator   bool     `hcl:"accelerator,optional"`

	Stages []*hclStage `hcl:"stage,block"`
}

type hclStage struct {
	ID    string     `hcl:"id,label"`
	Tasks []*hclTask `hcl:"task,block"`
}

type hclTask struct {
	Name     string `hcl:"name,label"`
	ID       string `hcl:"id,optional"`
	Imports  string `hcl:"imports,optional"`
	Code     string `hcl:"code,optional"`
	Priority string `hcl:"priority,optional"`
	Slots    int    `hcl:"slots,optional"`
	Type     string `hcl:"type,optional"`
	Pool     string `hcl:"pool,optional"`
}

// decodeHCL parses an HCL project file. Optional values switch their
// toggles on when set, so env_name enables the managed environment.
func decodeHCL(path string) (*models.ProjectConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	if parsed.Project == nil {
		return nil, fmt.Errorf("HCL file %s has no project block", path)
	}

	p := parsed.Project
	cfg := &models.ProjectConfig{
		Name:             p.Name,
		OwnerCode:        p.OwnerCode,
		OwnerID:          p.OwnerID,
		GitRemote:        p.GitRemote,
		Namespace:        p.Namespace,
		Stage:            models.DeploymentStage(p.DeployStage),
		Schedule:         p.Schedule,
		Pools:            p.Pools,
		UseManagedEnv:    p.EnvName != "",
		EnvName:          p.EnvName,
		BundleBase:       p.BundleBase,
		PrepareTests:     p.PrepareTests,
		UseDatabase:      p.ContextTag != "",
		ContextTag:       p.ContextTag,
		UseInput:         p.InputPath != "",
		InputPath:        p.InputPath,
		UseOutput:        p.OutputPath != "",
		OutputPath:       p.OutputPath,
		UseSharedStorage: p.SharedStorage,
		UseAccelerator:   p.Accelerator,
	}
	if cfg.Stage == "" {
		cfg.Stage = models.StageLIL
	}

	for _, s := range p.Stages {
		stage := models.Stage{ID: s.ID}
		for _, t := range s.Tasks {
			id := t.ID
			if id == "" {
				id = t.Name
			}
			stage.Tasks = append(stage.Tasks, models.Task{
				ID:       id,
				Name:     t.Name,
				Imports:  t.Imports,
				Code:     t.Code,
				Priority: models.Priority(t.Priority),
				Slots:    t.Slots,
				Kind:     models.TaskKind(t.Type),
				Pool:     t.Pool,
			})
		}
		cfg.Pipeline = append(cfg.Pipeline, stage)
	}
	return cfg, nil
}
