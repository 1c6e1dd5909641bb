package wake

import (
	"context"
	"time"

	"github.com/oshokin/wake-bulb/internal/domain/bulb"
	"github.com/oshokin/wake-bulb/internal/logger"
)

// RunGentleWake ramps the bulb from 1% to 100% warm white over the wake duration.
//
// OutcomeCompleted means nobody reacted and the caller must escalate.
// OutcomeDisarmed means the user switched away from white mode; the safe state was applied.
// OutcomeInterrupted means the bulb was switched off under the terminate policy.
func (c *Controller) RunGentleWake(ctx context.Context) (bulb.Outcome, error) {
	ctx = logger.WithName(ctx, "wake")

	if err := c.enter(ctx, bulb.PhaseRamping); err != nil {
		return bulb.OutcomeCompleted, err
	}

	interval := c.params.WakeDuration / RampSteps

	logger.InfoKV(ctx, "Gentle wake started",
		"duration", c.params.WakeDuration.String(),
		"step_interval", interval.String(),
	)

	fullAt := c.clock.Now().Add(c.params.SettleDelay + c.params.WakeDuration)
	logger.Infof(ctx, "Full brightness expected at %s", fullAt.Format(time.TimeOnly))

	// Floor the brightness before power-on so the bulb does not flash at its last level.
	if err := c.command(ctx, "set brightness floor", c.white(1, c.params.WarmTemperature)); err != nil {
		return bulb.OutcomeCompleted, c.abort(ctx, err)
	}

	if err := c.command(ctx, "power on", c.power(true)); err != nil {
		return bulb.OutcomeCompleted, c.abort(ctx, err)
	}

	if err := c.clock.Sleep(ctx, c.params.SettleDelay); err != nil {
		return bulb.OutcomeCompleted, c.abort(ctx, err)
	}

	for step := 1; step <= RampSteps; step++ {
		state := c.poll(ctx)
		if err := ctx.Err(); err != nil {
			return bulb.OutcomeCompleted, c.abort(ctx, err)
		}

		switch Decide(bulb.PhaseRamping, state, c.params.Policy) {
		case ActionInterrupt:
			logger.InfoKV(ctx, "Bulb switched off manually, good morning", "step", step)

			return bulb.OutcomeInterrupted, c.finish(ctx, bulb.PhaseInterrupted, false)
		case ActionDisarm:
			logger.InfoKV(ctx, "Disarmed from the app, good morning", "step", step)

			if err := c.finish(ctx, bulb.PhaseDisarmed, true); err != nil {
				return bulb.OutcomeDisarmed, c.abortIfCanceled(ctx, err)
			}

			return bulb.OutcomeDisarmed, nil
		case ActionReassertPower:
			logger.WarnKV(ctx, "Bulb switched off during the ramp, switching it back on", "step", step)

			if err := c.command(ctx, "reassert power", c.power(true)); err != nil {
				return bulb.OutcomeCompleted, c.abort(ctx, err)
			}
		case ActionContinue, ActionTransient:
		}

		if err := c.command(ctx, "set ramp brightness", c.white(step, c.params.WarmTemperature)); err != nil {
			return bulb.OutcomeCompleted, c.abort(ctx, err)
		}

		logger.DebugKV(ctx, "Ramp step applied", "brightness", step)

		if err := c.idle(ctx, interval); err != nil {
			return bulb.OutcomeCompleted, c.abort(ctx, err)
		}
	}

	logger.Info(ctx, "Gentle wake completed")

	return bulb.OutcomeCompleted, nil
}

// white returns a command setting the white channel.
func (c *Controller) white(brightness, temperature int) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.gateway.SetWhite(ctx, brightness, temperature)
	}
}

// power returns a command switching the bulb.
func (c *Controller) power(on bool) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.gateway.SetPower(ctx, on)
	}
}

// colour returns a command setting an RGB colour.
func (c *Controller) colour(rgb bulb.RGB) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.gateway.SetColour(ctx, rgb)
	}
}

// abortIfCanceled routes context errors through abort and passes others through.
func (c *Controller) abortIfCanceled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return c.abort(ctx, ctx.Err())
	}

	return err
}
