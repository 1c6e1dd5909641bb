// Package version reports which wake-bulb build is running.
package version
