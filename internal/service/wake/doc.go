// Package wake runs the sunrise alarm against one bulb.
//
// A Controller owns the device gateway, the clock and the session
// parameters. RunGentleWake ramps brightness from 1% to 100%; a ramp that
// completes without acknowledgment escalates to RunEscalation, a red/blue
// strobe that lasts until the user disarms it from the app or the timeout
// expires. Every poll result is turned into an Action by Decide, so the
// sabotage policy is an explicit input rather than a code path.
package wake
