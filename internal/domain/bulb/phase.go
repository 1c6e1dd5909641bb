package bulb

import "fmt"

// Outcome is the result of the gentle wake phase.
type Outcome int

const (
	// OutcomeCompleted means the ramp finished without any acknowledgment.
	// It is the signal to escalate.
	OutcomeCompleted Outcome = iota
	// OutcomeDisarmed means the user switched the bulb to colour mode.
	OutcomeDisarmed
	// OutcomeInterrupted means the bulb was powered off under the terminate policy.
	OutcomeInterrupted
	// OutcomeTimedOut means the escalation deadline passed without a disarm.
	OutcomeTimedOut
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeDisarmed:
		return "disarmed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Escalates reports whether the outcome requires the escalation phase.
func (o Outcome) Escalates() bool {
	return o == OutcomeCompleted
}

// Phase is a state of the alarm state machine.
type Phase int

const (
	// PhaseRamping is the gentle wake ramp.
	PhaseRamping Phase = iota
	// PhaseDisarmed is reached when the user disarms the alarm.
	PhaseDisarmed
	// PhaseInterrupted is reached when a power-off ends the alarm under the terminate policy.
	PhaseInterrupted
	// PhaseEscalating is the red/blue strobe.
	PhaseEscalating
	// PhaseResolved is the terminal state after a safe state was applied.
	PhaseResolved
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRamping:
		return "ramping"
	case PhaseDisarmed:
		return "disarmed"
	case PhaseInterrupted:
		return "interrupted"
	case PhaseEscalating:
		return "escalating"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the state machine allows moving from p to next.
func (p Phase) CanTransition(next Phase) bool {
	switch p {
	case PhaseRamping:
		return next == PhaseDisarmed || next == PhaseInterrupted || next == PhaseEscalating
	case PhaseEscalating:
		return next == PhaseDisarmed || next == PhaseInterrupted || next == PhaseResolved
	case PhaseDisarmed, PhaseInterrupted:
		return next == PhaseResolved
	default:
		return false
	}
}

// SabotagePolicy decides what a manual power-off during the alarm means.
type SabotagePolicy string

const (
	// PolicyReassert treats power-off as sabotage: the bulb is switched back on.
	PolicyReassert SabotagePolicy = "reassert"
	// PolicyTerminate treats power-off as acknowledgment: the run ends without escalation.
	PolicyTerminate SabotagePolicy = "terminate"
)

// ParseSabotagePolicy validates a policy name.
func ParseSabotagePolicy(s string) (SabotagePolicy, error) {
	switch p := SabotagePolicy(s); p {
	case PolicyReassert, PolicyTerminate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown sabotage policy %q (want %q or %q)", s, PolicyReassert, PolicyTerminate)
	}
}
