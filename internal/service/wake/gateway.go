package wake

import (
	"context"
	"time"

	"github.com/oshokin/wake-bulb/internal/config"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// Gateway is the device capability set the controller depends on.
type Gateway interface {
	// Status returns a fresh snapshot. It may fail or return an unusable payload.
	Status(ctx context.Context) (*bulb.State, error)
	// SetPower switches the bulb on or off.
	SetPower(ctx context.Context, on bool) error
	// SetMode changes the work mode.
	SetMode(ctx context.Context, mode bulb.Mode) error
	// SetWhite sets brightness (1..100) and temperature (0..100) in white mode.
	SetWhite(ctx context.Context, brightness, temperature int) error
	// SetColour sets an RGB colour in colour mode.
	SetColour(ctx context.Context, colour bulb.RGB) error
}

// Heartbeater is implemented by gateways whose session must be kept alive
// while the controller is idle between steps.
type Heartbeater interface {
	// Heartbeat pings the device without changing its state.
	Heartbeat(ctx context.Context) error
}

const (
	// RampSteps is the number of brightness steps of the gentle wake.
	RampSteps = 100

	// DefaultRetryDelay is the pause before a failed command is retried.
	// It never goes below the minimum interval the bulb accepts between commands.
	DefaultRetryDelay = config.MinStrobeInterval

	// HeartbeatInterval is the longest idle stretch between two messages to the bulb.
	HeartbeatInterval = 10 * time.Second
)

// Params are the immutable session parameters of a run.
type Params struct {
	// WakeDuration is the total ramp length.
	WakeDuration time.Duration
	// EscalationTimeout bounds the strobe phase.
	EscalationTimeout time.Duration
	// SettleDelay is waited after power-on and after entering colour mode.
	SettleDelay time.Duration
	// StrobeInterval is how long each strobe colour is held.
	StrobeInterval time.Duration
	// WarmTemperature is used during the ramp.
	WarmTemperature int
	// ColdTemperature is used by the safe state.
	ColdTemperature int
	// Policy decides what a manual power-off means.
	Policy bulb.SabotagePolicy
	// CommandRetries is how many times a failed command is retried before it is skipped.
	CommandRetries int
	// RetryDelay is the pause between command attempts, raised to DefaultRetryDelay when lower.
	RetryDelay time.Duration
}

// ParamsFromConfig extracts the session parameters from a validated configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		WakeDuration:      cfg.WakeDuration,
		EscalationTimeout: cfg.EscalationTimeout,
		SettleDelay:       cfg.SettleDelay,
		StrobeInterval:    cfg.StrobeInterval,
		WarmTemperature:   cfg.WarmTemperature,
		ColdTemperature:   cfg.ColdTemperature,
		Policy:            cfg.SabotagePolicy,
		CommandRetries:    cfg.CommandRetries,
		RetryDelay:        DefaultRetryDelay,
	}
}
