// Package capacity checks per-stage pool slot usage.
package capacity

import (
	"fmt"

	"github.com/fentz26/dagsmith/internal/models"
)

// DefaultPoolCapacity is the slot limit used when none is configured.
const DefaultPoolCapacity = 5

// Usage is the slot accounting for one stage.
type Usage struct {
	UsedSlots    int  `json:"used_slots"`
	Capacity     int  `json:"capacity"`
	OverCapacity bool `json:"over_capacity"`
}

// Validate sums the slots of every task in the stage. A stage is over
// capacity only when it uses strictly more slots than poolCapacity.
func Validate(stage models.Stage, poolCapacity int) Usage {
	used := 0
	for _, t := range stage.Tasks {
		used += t.Slots
	}
	return Usage{UsedSlots: used, Capacity: poolCapacity, OverCapacity: used > poolCapacity}
}

// Report is the advisory for one stage of a pipeline.
type Report struct {
	Index   int    `json:"index"` // 1-based
	StageID string `json:"stage_id"`
	Usage
}

func (r Report) String() string {
	s := fmt.Sprintf("stage %d (%s): %d/%d slots", r.Index, r.StageID, r.UsedSlots, r.Capacity)
	if r.OverCapacity {
		s += ", over capacity"
	}
	return s
}

// Check validates every stage of cfg.
func Check(cfg *models.ProjectConfig, poolCapacity int) []Report {
	reports := make([]Report, 0, len(cfg.Pipeline))
	for i, stage := range cfg.Pipeline {
		reports = append(reports, Report{Index: i + 1, StageID: stage.ID, Usage: Validate(stage, poolCapacity)})
	}
	return reports
}

// Over filters reports down to the stages that exceed capacity.
func Over(reports []Report) []Report {
	var out []Report
	for _, r := range reports {
		if r.OverCapacity {
			out = append(out, r)
		}
	}
	return out
}
