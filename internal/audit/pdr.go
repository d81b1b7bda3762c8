// Package audit provides PDR (Process Decision Record) writing for dagsmith.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/dagsmith/internal/models"
)

// Recorder persists audit entries. *store.Store implements it.
type Recorder interface {
	WritePDR(action, inputsHash, outcome, project, details string) (*models.PDREntry, error)
}

// Actions recorded by the control plane and the cockpit.
const (
	ActionCompile       = "project.compile"
	ActionSave          = "project.save"
	ActionDelete        = "project.delete"
	ActionBuild         = "project.build"
	ActionDeployCreate  = "deploy.create"
	ActionDeployRun     = "deploy.run"
	ActionDeployConfirm = "deploy.confirm"
	ActionDeployBack    = "deploy.back"
)

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	rec Recorder
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(r Recorder) *PDRWriter {
	return &PDRWriter{rec: r}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, project, details string) (*models.PDREntry, error) {
	inputsHash := HashInputs(inputs)
	return w.rec.WritePDR(action, inputsHash, outcome, project, details)
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
