package wake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/wake-bulb/internal/clock"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
	"github.com/oshokin/wake-bulb/internal/logger"
)

// safeStateTimeout bounds the safe-state commands sent after cancellation.
const safeStateTimeout = 5 * time.Second

// errInvalidTransition is returned when the state machine is asked for an edge it does not have.
var errInvalidTransition = errors.New("invalid phase transition")

// Result summarises one alarm run.
type Result struct {
	// Wake is the outcome of the gentle wake phase.
	Wake bulb.Outcome
	// Escalated reports whether the strobe phase ran.
	Escalated bool
	// Escalation is the outcome of the strobe phase when it ran.
	Escalation bulb.Outcome
}

// Controller runs the alarm against one bulb.
type Controller struct {
	// gateway is the bulb session.
	gateway Gateway
	// clock drives every sleep and deadline.
	clock clock.Clock
	// params are the session parameters.
	params Params
	// phase is the current state machine state.
	phase bulb.Phase
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// New creates a controller for gateway with the given parameters.
func New(gateway Gateway, params Params, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		clock:   clock.Real{},
		params:  params,
		phase:   bulb.PhaseRamping,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Phase returns the current state machine state.
func (c *Controller) Phase() bulb.Phase {
	return c.phase
}

// Run executes the gentle wake and, when it completes unacknowledged, the escalation.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	ctx = logger.WithKV(ctx, "policy", string(c.params.Policy))
	result := new(Result)

	outcome, err := c.RunGentleWake(ctx)
	result.Wake = outcome

	if err != nil {
		return result, err
	}

	if !outcome.Escalates() {
		logger.InfoKV(ctx, "Alarm finished", "outcome", outcome.String())

		return result, nil
	}

	logger.Warn(ctx, "Ramp finished without acknowledgment, escalating")

	result.Escalated = true

	result.Escalation, err = c.RunEscalation(ctx)
	if err != nil {
		return result, err
	}

	logger.InfoKV(ctx, "Alarm finished", "outcome", result.Escalation.String())

	return result, nil
}

// enter starts a phase: a fresh or resolved controller may start anywhere,
// otherwise the move must be a valid transition.
func (c *Controller) enter(ctx context.Context, next bulb.Phase) error {
	if c.phase == next || c.phase == bulb.PhaseResolved {
		c.phase = next
		logger.DebugKV(ctx, "Phase entered", "phase", next.String())

		return nil
	}

	return c.transition(ctx, next)
}

// transition moves the state machine along one of its edges.
func (c *Controller) transition(ctx context.Context, next bulb.Phase) error {
	if !c.phase.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, c.phase, next)
	}

	logger.DebugKV(ctx, "Phase changed", "from", c.phase.String(), "to", next.String())
	c.phase = next

	return nil
}

// finish walks from the current phase through final to resolved.
func (c *Controller) finish(ctx context.Context, final bulb.Phase, safeState bool) error {
	if err := c.transition(ctx, final); err != nil {
		return err
	}

	if safeState {
		if err := c.applySafeState(ctx); err != nil {
			return err
		}
	}

	return c.transition(ctx, bulb.PhaseResolved)
}

// poll reads the bulb state. Failures are logged and reported as nil.
func (c *Controller) poll(ctx context.Context) *bulb.State {
	state, err := c.gateway.Status(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WarnKV(ctx, "State poll failed, skipping checks for this step", "error", err)
		}

		return nil
	}

	if state == nil {
		logger.Warn(ctx, "State poll returned no payload, skipping checks for this step")

		return nil
	}

	logger.Debugf(ctx, "State polled: %s", state)

	return state
}

// command runs fn with the retry policy. A command that still fails is
// logged and skipped; only context errors are returned. Retries wait on the
// controller clock.
func (c *Controller) command(ctx context.Context, what string, fn func(context.Context) error) error {
	retries := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(max(c.params.RetryDelay, DefaultRetryDelay)),
		uint64(max(0, c.params.CommandRetries)),
	)
	retries.Reset()

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		next := retries.NextBackOff()
		if next == backoff.Stop {
			logger.ErrorKV(ctx, "Command failed, skipping", "command", what, "error", err)

			return nil
		}

		logger.DebugKV(ctx, "Command failed, retrying", "command", what, "delay", next.String(), "error", err)

		if err = c.clock.Sleep(ctx, next); err != nil {
			return err
		}
	}
}

// idle waits d, pinging the bulb every HeartbeatInterval when the gateway
// supports it. A failed heartbeat is logged; the next request redials.
func (c *Controller) idle(ctx context.Context, d time.Duration) error {
	pinger, ok := c.gateway.(Heartbeater)
	if !ok {
		return c.clock.Sleep(ctx, d)
	}

	for {
		wait := min(d, HeartbeatInterval)
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return err
		}

		d -= wait
		if d <= 0 {
			return nil
		}

		if err := pinger.Heartbeat(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logger.DebugKV(ctx, "Heartbeat failed", "error", err)
		}
	}
}

// applySafeState leaves the bulb in white mode at full cold brightness.
func (c *Controller) applySafeState(ctx context.Context) error {
	if err := c.command(ctx, "set mode white", func(ctx context.Context) error {
		return c.gateway.SetMode(ctx, bulb.ModeWhite)
	}); err != nil {
		return err
	}

	return c.command(ctx, "set safe white", func(ctx context.Context) error {
		return c.gateway.SetWhite(ctx, 100, c.params.ColdTemperature)
	})
}

// abort handles a canceled run: the safe state is applied with a detached
// context and the cancellation error is returned.
func (c *Controller) abort(ctx context.Context, cause error) error {
	logger.WarnKV(ctx, "Alarm canceled, restoring safe state", "phase", c.phase.String(), "cause", cause)

	safeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), safeStateTimeout)
	defer cancel()

	if err := c.applySafeState(safeCtx); err != nil {
		logger.Errorf(ctx, "Safe state not applied: %v", err)
	}

	c.phase = bulb.PhaseResolved

	return cause
}
