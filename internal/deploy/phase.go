// Package deploy models the linear, user-gated release workflow of a
// generated project and the simulated terminal sessions that go with it.
package deploy

import (
	"fmt"
	"strings"
)

// Phase is a step of the release workflow.
type Phase int

const (
	PhasePushBranch Phase = iota
	PhaseValidateReview
	PhaseTagRelease
	PhaseDeployPipeline
	PhaseSuccess
)

// Phases lists every phase in workflow order.
var Phases = []Phase{PhasePushBranch, PhaseValidateReview, PhaseTagRelease, PhaseDeployPipeline, PhaseSuccess}

// String returns the stable key used in storage and over the API.
func (p Phase) String() string {
	switch p {
	case PhasePushBranch:
		return "push_branch"
	case PhaseValidateReview:
		return "validate_review"
	case PhaseTagRelease:
		return "tag_release"
	case PhaseDeployPipeline:
		return "deploy_pipeline"
	case PhaseSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Title returns a short label for timeline display.
func (p Phase) Title() string {
	switch p {
	case PhasePushBranch:
		return "Push Branch"
	case PhaseValidateReview:
		return "Validate MR"
	case PhaseTagRelease:
		return "Tag Version"
	case PhaseDeployPipeline:
		return "Deploy"
	case PhaseSuccess:
		return "Success"
	default:
		return p.String()
	}
}

// Next returns the following phase. Success is its own successor.
func (p Phase) Next() Phase {
	if p >= PhaseSuccess {
		return PhaseSuccess
	}
	return p + 1
}

// Prev returns the preceding phase and whether a Back transition exists.
// Only the phases between the first and the terminal one can go back.
func (p Phase) Prev() (Phase, bool) {
	if p <= PhasePushBranch || p >= PhaseSuccess {
		return p, false
	}
	return p - 1, true
}

// IsTerminal reports whether the workflow is finished.
func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess
}

// HasPlayback reports whether the phase runs a simulated command sequence
// that must finish before it can be confirmed.
func (p Phase) HasPlayback() bool {
	return p == PhasePushBranch || p == PhaseTagRelease
}

// Progress is the share of the workflow completed on entering p, in percent.
func (p Phase) Progress() int {
	return int(p) * 100 / int(PhaseSuccess)
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == strings.TrimSpace(s) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Mode selects the wording of branch, tag and commit identifiers.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// ParseMode accepts "create" or "update"; empty means create.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCreate, "":
		return ModeCreate, nil
	case ModeUpdate:
		return ModeUpdate, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
