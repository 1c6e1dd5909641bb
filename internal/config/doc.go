// Package config loads the wake-bulb settings.
//
// Tunables (durations, temperatures, sabotage policy) live in an optional
// YAML file. Device secrets come from the environment, optionally seeded
// from a .env file, and never touch the YAML file.
package config
