// Package compiler turns a project configuration into the three generated
// artifacts of a pipeline project: the orchestration graph (dag.py), the
// business-logic module (src/treatment.py) and the metadata descriptor
// (recipe/meta.yaml).
//
// Every function here is pure. The same configuration always produces
// byte-identical output, and every task is referred to by the same sanitized
// identifier in all three artifacts.
package compiler

import "github.com/fentz26/dagsmith/internal/models"

// Artifact file names relative to the repository directory.
const (
	DAGFile   = "dag.py"
	LogicFile = "src/treatment.py"
	MetaFile  = "recipe/meta.yaml"
)

// Artifacts holds the generated file contents.
type Artifacts struct {
	DAG   string `json:"dag"`
	Logic string `json:"logic"`
	Meta  string `json:"meta"`
}

// Files maps artifact paths to their contents.
func (a Artifacts) Files() map[string]string {
	return map[string]string{
		DAGFile:   a.DAG,
		LogicFile: a.Logic,
		MetaFile:  a.Meta,
	}
}

// Compile generates all three artifacts. It does not validate cfg; callers
// that need collision or pool checks run cfg.Validate first.
func Compile(cfg *models.ProjectConfig) Artifacts {
	return Artifacts{
		DAG:   DAG(cfg),
		Logic: Logic(cfg.Pipeline),
		Meta:  Meta(cfg),
	}
}
