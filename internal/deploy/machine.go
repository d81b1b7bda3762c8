package deploy

import "fmt"

// Machine tracks one release session. It never advances on its own: every
// forward move is a Confirm and every backward move is a Back.
type Machine struct {
	mode     Mode
	identity Identity
	plan     Plan
	phase    Phase
	stepDone bool
}

// New starts a session at PhasePushBranch.
func New(mode Mode, id Identity) *Machine {
	return &Machine{mode: mode, identity: id, plan: PlanFor(mode, id), phase: PhasePushBranch}
}

// Resume rebuilds a session from persisted state.
func Resume(mode Mode, id Identity, phase Phase, stepDone bool) (*Machine, error) {
	if phase < PhasePushBranch || phase > PhaseSuccess {
		return nil, fmt.Errorf("resume deployment: invalid phase %d", phase)
	}
	m := New(mode, id)
	m.phase = phase
	m.stepDone = stepDone
	return m, nil
}

// Current returns the active phase.
func (m *Machine) Current() Phase { return m.phase }

// Mode returns the session mode.
func (m *Machine) Mode() Mode { return m.mode }

// Identity returns the project identity the session was created with.
func (m *Machine) Identity() Identity { return m.identity }

// Plan returns the release plan.
func (m *Machine) Plan() Plan { return m.plan }

// Step returns the step for the active phase.
func (m *Machine) Step() Step { return m.plan.Step(m.phase) }

// StepDone reports whether the active phase's command sequence finished.
func (m *Machine) StepDone() bool { return m.stepDone }

// Ready reports whether Confirm would succeed.
func (m *Machine) Ready() bool {
	if m.phase.IsTerminal() {
		return false
	}
	return !m.phase.HasPlayback() || m.stepDone
}

// MarkStepComplete records that the active phase's command sequence ran to
// the end.
func (m *Machine) MarkStepComplete() {
	m.stepDone = true
}

// Confirm advances to the next phase.
func (m *Machine) Confirm() error {
	if m.phase.IsTerminal() {
		return ErrTerminal
	}
	if !m.Ready() {
		return fmt.Errorf("confirm %s: %w", m.phase, ErrStepIncomplete)
	}
	m.phase = m.phase.Next()
	m.stepDone = false
	return nil
}

// Back returns to the previous phase. The command sequence of the phase
// returned to must be run again before it can be confirmed.
func (m *Machine) Back() error {
	if m.phase.IsTerminal() {
		return ErrTerminal
	}
	prev, ok := m.phase.Prev()
	if !ok {
		return ErrNoPrevious
	}
	m.phase = prev
	m.stepDone = false
	return nil
}
