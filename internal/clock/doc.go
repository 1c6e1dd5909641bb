// Package clock abstracts wall-clock time for the alarm loops.
//
// Real is used by the binary. Fake advances virtual time on every Sleep so
// a ten-minute ramp runs instantly in tests.
package clock
