package wake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// TestRunGentleWake_FullRamp checks the floor, the power-on order and the
// 100 evenly spaced brightness steps for several durations.
func TestRunGentleWake_FullRamp(t *testing.T) {
	t.Parallel()

	for _, duration := range []time.Duration{30 * time.Second, time.Minute, 10 * time.Minute, 90 * time.Minute} {
		params := testParams(bulb.PolicyReassert)
		params.WakeDuration = duration

		ctrl, gateway, _ := newTestController(params)

		outcome, err := ctrl.RunGentleWake(context.Background())
		require.NoError(t, err)
		require.Equal(t, bulb.OutcomeCompleted, outcome)

		// Floor at the warm temperature strictly before power-on.
		require.Equal(t, call{At: testStart, Op: opWhite, Brightness: 1, Temperature: testWarm}, gateway.calls[0])
		require.Equal(t, call{At: testStart, Op: opPower, On: true}, gateway.calls[1])

		ramp := gateway.rampCalls()
		require.Len(t, ramp, RampSteps, duration.String())

		interval := duration / RampSteps
		for i, c := range ramp {
			require.Equal(t, i+1, c.Brightness)
			require.Equal(t, testStart.Add(params.SettleDelay+time.Duration(i)*interval), c.At)
		}

		require.Equal(t, RampSteps, gateway.polls)
		require.Len(t, gateway.calls, 2+RampSteps)
		require.Equal(t, bulb.PhaseRamping, ctrl.Phase())
	}
}

// TestRunGentleWake_SettleBeforeFirstPoll waits the settle delay after power-on.
func TestRunGentleWake_SettleBeforeFirstPoll(t *testing.T) {
	t.Parallel()

	params := testParams(bulb.PolicyReassert)
	params.SettleDelay = 3 * time.Second

	ctrl, gateway, fakeClock := newTestController(params)

	var firstPoll time.Time

	gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
		if n == 1 {
			firstPoll = fakeClock.Now()
		}

		return &current, nil
	}

	_, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, testStart.Add(3*time.Second), firstPoll)
	require.Equal(t, 3*time.Second, fakeClock.Sleeps()[0])
}

// TestRunGentleWake_TerminateOnPowerOff ends the ramp at the step where the bulb is seen off.
func TestRunGentleWake_TerminateOnPowerOff(t *testing.T) {
	t.Parallel()

	for _, k := range []int{1, 37, 100} {
		ctrl, gateway, _ := newTestController(testParams(bulb.PolicyTerminate))

		gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
			if n == k {
				current.Power = false
			}

			return &current, nil
		}

		outcome, err := ctrl.RunGentleWake(context.Background())
		require.NoError(t, err)
		require.Equal(t, bulb.OutcomeInterrupted, outcome)
		require.False(t, outcome.Escalates())

		ramp := gateway.rampCalls()
		require.Len(t, ramp, k-1, "no ramp command at or after step %d", k)
		require.Equal(t, k, gateway.polls)
		require.Len(t, gateway.calls, 2+k-1)
		require.Empty(t, gateway.callsOf(opMode))
		require.Equal(t, bulb.PhaseResolved, ctrl.Phase())
	}
}

// TestRunGentleWake_ReassertOnPowerOff switches the bulb back on and keeps ramping.
func TestRunGentleWake_ReassertOnPowerOff(t *testing.T) {
	t.Parallel()

	ctrl, gateway, _ := newTestController(testParams(bulb.PolicyReassert))

	gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
		if n == 50 {
			current.Power = false
		}

		return &current, nil
	}

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)

	powers := gateway.callsOf(opPower)
	require.Len(t, powers, 2)
	require.True(t, powers[1].On)

	ramp := gateway.rampCalls()
	require.Len(t, ramp, RampSteps)

	// The power-on lands right before the step-50 brightness.
	for i, c := range gateway.calls {
		if c.Op == opWhite && c.Brightness == 50 && c.Temperature == testWarm {
			require.Equal(t, call{At: c.At, Op: opPower, On: true}, gateway.calls[i-1])
		}
	}
}

// TestRunGentleWake_DisarmOnModeSwitch stops the ramp on any switch away from
// white mode and applies the safe state.
func TestRunGentleWake_DisarmOnModeSwitch(t *testing.T) {
	t.Parallel()

	for _, mode := range []bulb.Mode{bulb.ModeColour, bulb.ModeScene, bulb.ModeMusic} {
		for _, policy := range []bulb.SabotagePolicy{bulb.PolicyReassert, bulb.PolicyTerminate} {
			ctrl, gateway, _ := newTestController(testParams(policy))

			gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
				if n == 20 {
					current.Mode = mode
				}

				return &current, nil
			}

			outcome, err := ctrl.RunGentleWake(context.Background())
			require.NoError(t, err)
			require.Equal(t, bulb.OutcomeDisarmed, outcome, string(mode))
			require.False(t, outcome.Escalates())

			require.Len(t, gateway.rampCalls(), 19)

			last := gateway.calls[len(gateway.calls)-2:]
			require.Equal(t, opMode, last[0].Op)
			require.Equal(t, bulb.ModeWhite, last[0].Mode)
			require.Equal(t, opWhite, last[1].Op)
			require.Equal(t, 100, last[1].Brightness)
			require.Equal(t, testCold, last[1].Temperature)
			require.Equal(t, bulb.PhaseResolved, ctrl.Phase())
		}
	}
}

// TestRunGentleWake_TransientPolls keeps every step when polls fail or come back empty.
func TestRunGentleWake_TransientPolls(t *testing.T) {
	t.Parallel()

	ctrl, gateway, _ := newTestController(testParams(bulb.PolicyTerminate))

	gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
		switch {
		case n%3 == 0:
			return nil, errTestPoll
		case n%3 == 1:
			return nil, nil
		default:
			return &current, nil
		}
	}

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)

	ramp := gateway.rampCalls()
	require.Len(t, ramp, RampSteps)

	for i, c := range ramp {
		require.Equal(t, i+1, c.Brightness)
	}
}

// TestRunGentleWake_TransientPollHidesPowerOff skips the check only for the failing step.
func TestRunGentleWake_TransientPollHidesPowerOff(t *testing.T) {
	t.Parallel()

	ctrl, gateway, _ := newTestController(testParams(bulb.PolicyTerminate))

	gateway.status = func(n int, current bulb.State) (*bulb.State, error) {
		switch n {
		case 10:
			return nil, errTestPoll
		case 11:
			current.Power = false

			return &current, nil
		default:
			return &current, nil
		}
	}

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeInterrupted, outcome)
	require.Len(t, gateway.rampCalls(), 10)
}

// TestRunGentleWake_CommandRetry retries a failed command once and skips it after that.
func TestRunGentleWake_CommandRetry(t *testing.T) {
	t.Parallel()

	ctrl, gateway, _ := newTestController(testParams(bulb.PolicyReassert))

	failures := map[int]int{10: 1, 20: 2}

	gateway.fail = func(_ int, c call) error {
		if c.Op != opWhite || c.Temperature != testWarm {
			return nil
		}

		if failures[c.Brightness] > 0 {
			failures[c.Brightness]--

			return errTestCommand
		}

		return nil
	}

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)

	var brightness []int
	for _, c := range gateway.rampCalls() {
		brightness = append(brightness, c.Brightness)
	}

	// Step 10 recovered on retry, step 20 was skipped after two failures.
	require.Len(t, brightness, RampSteps-1)
	require.Contains(t, brightness, 10)
	require.NotContains(t, brightness, 20)
	require.Equal(t, 2+RampSteps+1+1, gateway.attempts)
}

// TestRunGentleWake_Canceled restores the safe state when the run is canceled.
func TestRunGentleWake_Canceled(t *testing.T) {
	t.Parallel()

	ctrl, gateway, fakeClock := newTestController(testParams(bulb.PolicyReassert))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0

	fakeClock.OnSleep(func(time.Time) {
		sleeps++
		if sleeps == 5 {
			cancel()
		}
	})

	outcome, err := ctrl.RunGentleWake(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, bulb.OutcomeCompleted, outcome)

	last := gateway.calls[len(gateway.calls)-2:]
	require.Equal(t, opMode, last[0].Op)
	require.Equal(t, call{At: last[1].At, Op: opWhite, Brightness: 100, Temperature: testCold}, last[1])
	require.Equal(t, bulb.PhaseResolved, ctrl.Phase())
}
