package wake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-bulb/internal/clock"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// heartbeatGateway is a fake bulb whose session needs keepalives.
type heartbeatGateway struct {
	*fakeGateway

	beats []time.Time
	err   error
}

func (g *heartbeatGateway) Heartbeat(context.Context) error {
	g.beats = append(g.beats, g.clock.Now())

	return g.err
}

func newHeartbeatController(params Params) (*Controller, *heartbeatGateway, *clock.Fake) {
	fakeClock := clock.NewFake(testStart)
	gateway := &heartbeatGateway{fakeGateway: newFakeGateway(fakeClock)}

	return New(gateway, params, WithClock(fakeClock)), gateway, fakeClock
}

// TestRunGentleWake_Heartbeat keeps the session alive through long ramp steps
// without changing the step cadence.
func TestRunGentleWake_Heartbeat(t *testing.T) {
	t.Parallel()

	params := testParams(bulb.PolicyReassert)
	params.WakeDuration = 30 * time.Minute

	ctrl, gateway, fakeClock := newHeartbeatController(params)

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)

	// 18 s steps: one heartbeat 10 s into each.
	require.Len(t, gateway.beats, RampSteps)

	ramp := gateway.rampCalls()
	require.Len(t, ramp, RampSteps)

	for i := range ramp {
		require.Equal(t, ramp[i].At.Add(HeartbeatInterval), gateway.beats[i])

		if i > 0 {
			require.Equal(t, 18*time.Second, ramp[i].At.Sub(ramp[i-1].At))
		}
	}

	for _, d := range fakeClock.Sleeps() {
		require.LessOrEqual(t, d, HeartbeatInterval)
	}
}

// TestRunGentleWake_HeartbeatShortSteps sends no heartbeats when steps are short
// and ignores heartbeat failures otherwise.
func TestRunGentleWake_HeartbeatShortSteps(t *testing.T) {
	t.Parallel()

	ctrl, gateway, _ := newHeartbeatController(testParams(bulb.PolicyReassert))

	outcome, err := ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)
	require.Empty(t, gateway.beats)

	params := testParams(bulb.PolicyReassert)
	params.WakeDuration = time.Hour

	ctrl, gateway, _ = newHeartbeatController(params)
	gateway.err = errTestCommand

	outcome, err = ctrl.RunGentleWake(context.Background())
	require.NoError(t, err)
	require.Equal(t, bulb.OutcomeCompleted, outcome)
	require.Len(t, gateway.rampCalls(), RampSteps)
	require.NotEmpty(t, gateway.beats)
}
