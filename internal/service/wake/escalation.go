package wake

import (
	"context"

	"github.com/oshokin/wake-bulb/internal/domain/bulb"
	"github.com/oshokin/wake-bulb/internal/logger"
)

// RunEscalation strobes red and blue until the user switches the bulb back to
// white mode in the app, or the escalation timeout passes. The bulb always
// ends in white mode at full cold brightness.
func (c *Controller) RunEscalation(ctx context.Context) (bulb.Outcome, error) {
	ctx = logger.WithName(ctx, "escalation")

	if err := c.enter(ctx, bulb.PhaseEscalating); err != nil {
		return bulb.OutcomeTimedOut, err
	}

	deadline := c.clock.Now().Add(c.params.EscalationTimeout)

	logger.InfoKV(ctx, "Unbearable mode started",
		"timeout", c.params.EscalationTimeout.String(),
		"strobe_interval", c.params.StrobeInterval.String(),
	)

	// RGB commands are ignored by the bulb outside colour mode.
	if err := c.command(ctx, "set mode colour", c.mode(bulb.ModeColour)); err != nil {
		return bulb.OutcomeTimedOut, c.abort(ctx, err)
	}

	if err := c.clock.Sleep(ctx, c.params.SettleDelay); err != nil {
		return bulb.OutcomeTimedOut, c.abort(ctx, err)
	}

	for c.clock.Now().Before(deadline) {
		state := c.poll(ctx)
		if err := ctx.Err(); err != nil {
			return bulb.OutcomeTimedOut, c.abort(ctx, err)
		}

		switch Decide(bulb.PhaseEscalating, state, c.params.Policy) {
		case ActionDisarm:
			logger.Info(ctx, "Disarmed from the app, good morning")

			if err := c.finish(ctx, bulb.PhaseDisarmed, true); err != nil {
				return bulb.OutcomeDisarmed, c.abortIfCanceled(ctx, err)
			}

			return bulb.OutcomeDisarmed, nil
		case ActionInterrupt:
			logger.Info(ctx, "Bulb switched off manually, good morning")

			if err := c.finish(ctx, bulb.PhaseInterrupted, true); err != nil {
				return bulb.OutcomeInterrupted, c.abortIfCanceled(ctx, err)
			}

			return bulb.OutcomeInterrupted, nil
		case ActionReassertPower:
			logger.Warn(ctx, "Bulb switched off during the strobe, switching it back on")

			if err := c.command(ctx, "reassert power", c.power(true)); err != nil {
				return bulb.OutcomeTimedOut, c.abort(ctx, err)
			}
		case ActionContinue, ActionTransient:
		}

		if err := c.strobe(ctx); err != nil {
			return bulb.OutcomeTimedOut, c.abort(ctx, err)
		}
	}

	logger.Info(ctx, "Unbearable mode timed out, leaving the bulb on cold white")

	if err := c.applySafeState(ctx); err != nil {
		return bulb.OutcomeTimedOut, c.abort(ctx, err)
	}

	return bulb.OutcomeTimedOut, c.transition(ctx, bulb.PhaseResolved)
}

// strobe runs one red/blue cycle.
func (c *Controller) strobe(ctx context.Context) error {
	for _, rgb := range []bulb.RGB{bulb.Red, bulb.Blue} {
		if err := c.command(ctx, "set strobe colour "+rgb.String(), c.colour(rgb)); err != nil {
			return err
		}

		if err := c.clock.Sleep(ctx, c.params.StrobeInterval); err != nil {
			return err
		}
	}

	return nil
}

// mode returns a command changing the work mode.
func (c *Controller) mode(mode bulb.Mode) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.gateway.SetMode(ctx, mode)
	}
}
