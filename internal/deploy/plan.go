package deploy

import (
	"fmt"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

// Identity is the part of a project the release workflow reads.
type Identity struct {
	Project   string `json:"project"`
	OwnerID   string `json:"owner_id"`
	GitRemote string `json:"git_remote"`
	Stage     string `json:"stage"`
}

// IdentityOf extracts the identity fields of cfg.
func IdentityOf(cfg *models.ProjectConfig) Identity {
	return Identity{
		Project:   cfg.Name,
		OwnerID:   cfg.OwnerID,
		GitRemote: cfg.GitRemote,
		Stage:     string(cfg.Stage),
	}
}

// Check is one CI job shown while waiting on a pipeline.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Step describes what the user sees and runs during one phase.
type Step struct {
	Heading     string   `json:"heading"`
	Description string   `json:"description"`
	Hint        string   `json:"hint,omitempty"`
	Commands    []string `json:"commands,omitempty"`
	Checks      []Check  `json:"checks,omitempty"`
}

// Plan holds the mode-dependent identifiers and per-phase steps.
type Plan struct {
	Mode          Mode           `json:"mode"`
	Branch        string         `json:"branch"`
	Tag           string         `json:"tag"`
	CommitMessage string         `json:"commit_message"`
	ProjectPath   string         `json:"project_path"`
	Steps         map[Phase]Step `json:"-"`
}

// Step returns the step for p. Unknown phases yield an empty step.
func (pl Plan) Step(p Phase) Step {
	return pl.Steps[p]
}

// PlanFor builds the release plan. Mode only changes the identifiers and the
// push sequence; the phases are the same.
func PlanFor(mode Mode, id Identity) Plan {
	pl := Plan{
		Mode:          mode,
		Branch:        fmt.Sprintf("feature/%s-%s-init", id.OwnerID, id.Project),
		Tag:           "v1.0.0",
		CommitMessage: "feat: init dag " + id.Project,
		ProjectPath:   naming.AbsWorkspacePath(id.Project),
	}
	kind := "feature"
	if mode == ModeUpdate {
		pl.Branch = fmt.Sprintf("fix/%s-%s-update", id.OwnerID, id.Project)
		pl.Tag = "v1.1.0"
		pl.CommitMessage = "fix: update dag " + id.Project
		kind = "fix"
	}

	push := []string{"cd " + pl.ProjectPath}
	if mode != ModeUpdate {
		push = append(push, "git init", "git remote add origin "+id.GitRemote)
	}
	push = append(push,
		"git checkout -b "+pl.Branch,
		"git add .",
		fmt.Sprintf("git commit -m %q", pl.CommitMessage),
		"git push -u origin "+pl.Branch,
	)

	pl.Steps = map[Phase]Step{
		PhasePushBranch: {
			Heading:     "1. Initialize & Push",
			Description: fmt.Sprintf("Create a dedicated %s branch, commit the changes and push them to remote.", kind),
			Hint:        "Ensure you have write permissions on the remote repository.",
			Commands:    push,
		},
		PhaseValidateReview: {
			Heading:     "2. CI Validation",
			Description: "The code is on the server. Open a merge request and wait for the syntax checks to pass.",
			Hint:        "Check the pipelines tab of your git provider.",
			Checks:      []Check{{"test_flake8", "passed"}, {"validate_meta_yaml", "passed"}},
		},
		PhaseTagRelease: {
			Heading:     "3. Release Versioning",
			Description: "The merge request is merged. Freeze this state with a git tag to trigger the deployment.",
			Hint:        fmt.Sprintf("Semantic versioning (%s) is required for the deploy job to trigger.", pl.Tag),
			Commands: []string{
				"git checkout main",
				"git pull origin main",
				fmt.Sprintf("git tag -a %s -m %q", pl.Tag, "release: "+string(mode)+" deployment"),
				"git push origin " + pl.Tag,
			},
		},
		PhaseDeployPipeline: {
			Heading:     "4. Deploy to Airflow",
			Description: "The tag triggered the deployment pipeline running add_config and deploy_dag.",
			Hint:        "Monitor the deploy_dag job logs for status.",
			Checks:      []Check{{"add_config", "success"}, {"deploy_dag", "running"}},
		},
		PhaseSuccess: {
			Heading:     "Deployed",
			Description: fmt.Sprintf("The DAG %s is now active on the %s environment.", naming.DagID(id.Project), id.Stage),
		},
	}
	return pl
}
