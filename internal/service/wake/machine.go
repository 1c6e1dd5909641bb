package wake

import "github.com/oshokin/wake-bulb/internal/domain/bulb"

// Action is what the controller does with one poll result.
type Action int

const (
	// ActionContinue applies the next ramp or strobe step.
	ActionContinue Action = iota
	// ActionTransient means the poll carried no information; the step still runs.
	ActionTransient
	// ActionReassertPower switches a sabotaged bulb back on, then continues.
	ActionReassertPower
	// ActionInterrupt ends the alarm because the bulb was switched off.
	ActionInterrupt
	// ActionDisarm ends the alarm because the user switched modes in the app.
	ActionDisarm
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionTransient:
		return "transient"
	case ActionReassertPower:
		return "reassert_power"
	case ActionInterrupt:
		return "interrupt"
	case ActionDisarm:
		return "disarm"
	default:
		return "unknown"
	}
}

// Decide maps a poll result to an action for the given phase and policy.
// A nil state is an unusable poll.
func Decide(phase bulb.Phase, state *bulb.State, policy bulb.SabotagePolicy) Action {
	if state == nil {
		return ActionTransient
	}

	switch phase {
	case bulb.PhaseRamping:
		return decideRamping(state, policy)
	case bulb.PhaseEscalating:
		return decideEscalating(state, policy)
	default:
		return ActionContinue
	}
}

// decideRamping checks power first, then the disarm gesture: any switch away
// from white mode in the app. An unknown mode is not a gesture.
func decideRamping(state *bulb.State, policy bulb.SabotagePolicy) Action {
	if !state.Power {
		return powerOffAction(policy)
	}

	switch state.Mode {
	case bulb.ModeColour, bulb.ModeScene, bulb.ModeMusic:
		return ActionDisarm
	case bulb.ModeWhite, bulb.ModeUnknown:
	}

	return ActionContinue
}

// decideEscalating checks the white-mode disarm gesture first, then power.
func decideEscalating(state *bulb.State, policy bulb.SabotagePolicy) Action {
	if state.Mode == bulb.ModeWhite {
		return ActionDisarm
	}

	if !state.Power {
		return powerOffAction(policy)
	}

	return ActionContinue
}

// powerOffAction applies the sabotage policy.
func powerOffAction(policy bulb.SabotagePolicy) Action {
	if policy == bulb.PolicyTerminate {
		return ActionInterrupt
	}

	return ActionReassertPower
}
