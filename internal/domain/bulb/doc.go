// Package bulb contains core domain types for the wake-up alarm.
//
// It defines the device State snapshot read from the bulb, the Mode and RGB
// values sent to it, and the Outcome, Phase and SabotagePolicy values that
// drive the wake and escalation state machine.
package bulb
