// Package alarm wires configuration, device secrets and the Tuya session
// into one wake controller run.
package alarm
