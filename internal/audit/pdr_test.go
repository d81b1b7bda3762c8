package audit

import (
	"testing"

	"github.com/fentz26/dagsmith/internal/models"
)

type memRecorder struct {
	entries []models.PDREntry
}

func (m *memRecorder) WritePDR(action, inputsHash, outcome, project, details string) (*models.PDREntry, error) {
	e := models.PDREntry{Action: action, InputsHash: inputsHash, Outcome: outcome, Project: project, Details: details}
	m.entries = append(m.entries, e)
	return &e, nil
}

func TestRecordHashesInputs(t *testing.T) {
	rec := &memRecorder{}
	w := NewPDRWriter(rec)

	if _, err := w.Record(ActionCompile, map[string]int{"tasks": 3}, "success", "sales", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := w.Record(ActionCompile, map[string]int{"tasks": 3}, "success", "sales", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(rec.entries))
	}
	if rec.entries[0].InputsHash != rec.entries[1].InputsHash {
		t.Error("Same inputs should hash identically")
	}
	if len(rec.entries[0].InputsHash) != 64 {
		t.Errorf("Expected hex sha256, got %q", rec.entries[0].InputsHash)
	}
}

func TestHashInputsDiffers(t *testing.T) {
	if HashInputs("a") == HashInputs("b") {
		t.Error("Different inputs should hash differently")
	}
	if HashInputs(make(chan int)) != "hash_error" {
		t.Error("Unmarshalable inputs should report hash_error")
	}
}
