// Package logger wraps zap for the wake-bulb binary:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Controllers take a context and extract the logger from it, so every phase
// logs under its own name.
package logger
