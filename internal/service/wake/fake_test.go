package wake

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/wake-bulb/internal/clock"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

var (
	errTestPoll    = errors.New("test poll error")
	errTestCommand = errors.New("test command error")
)

// op names a recorded gateway call.
type op string

const (
	opPower  op = "power"
	opMode   op = "mode"
	opWhite  op = "white"
	opColour op = "colour"
)

// call is one recorded gateway command.
type call struct {
	At          time.Time
	Op          op
	On          bool
	Mode        bulb.Mode
	Brightness  int
	Temperature int
	Colour      bulb.RGB
}

// fakeGateway simulates a bulb whose state follows the commands it receives.
type fakeGateway struct {
	clock *clock.Fake

	// power and mode track the simulated device.
	power bool
	mode  bulb.Mode

	// status, when set, overrides the snapshot for the n-th poll (1-based).
	status func(n int, current bulb.State) (*bulb.State, error)
	// fail, when set, can fail the n-th command (1-based).
	fail func(n int, c call) error

	calls    []call
	attempts int
	polls    int
}

func newFakeGateway(c *clock.Fake) *fakeGateway {
	return &fakeGateway{clock: c, mode: bulb.ModeWhite}
}

func (g *fakeGateway) Status(context.Context) (*bulb.State, error) {
	g.polls++

	current := bulb.State{Power: g.power, Mode: g.mode}
	if g.status != nil {
		return g.status(g.polls, current)
	}

	return &current, nil
}

func (g *fakeGateway) record(c call) error {
	g.attempts++
	c.At = g.clock.Now()

	if g.fail != nil {
		if err := g.fail(g.attempts, c); err != nil {
			return err
		}
	}

	g.calls = append(g.calls, c)

	switch c.Op {
	case opPower:
		g.power = c.On
	case opMode:
		g.mode = c.Mode
	case opWhite:
		g.mode = bulb.ModeWhite
	case opColour:
		g.mode = bulb.ModeColour
	}

	return nil
}

func (g *fakeGateway) SetPower(_ context.Context, on bool) error {
	return g.record(call{Op: opPower, On: on})
}

func (g *fakeGateway) SetMode(_ context.Context, mode bulb.Mode) error {
	return g.record(call{Op: opMode, Mode: mode})
}

func (g *fakeGateway) SetWhite(_ context.Context, brightness, temperature int) error {
	return g.record(call{Op: opWhite, Brightness: brightness, Temperature: temperature})
}

func (g *fakeGateway) SetColour(_ context.Context, colour bulb.RGB) error {
	return g.record(call{Op: opColour, Colour: colour})
}

// callsOf filters the recorded calls by operation.
func (g *fakeGateway) callsOf(kind op) []call {
	var out []call

	for _, c := range g.calls {
		if c.Op == kind {
			out = append(out, c)
		}
	}

	return out
}

// rampCalls returns the white commands issued after the first power-on.
func (g *fakeGateway) rampCalls() []call {
	var (
		out     []call
		started bool
	)

	for _, c := range g.calls {
		if c.Op == opPower && c.On {
			started = true

			continue
		}

		if started && c.Op == opWhite && c.Temperature == testWarm {
			out = append(out, c)
		}
	}

	return out
}

const (
	testWarm = 0
	testCold = 100
)

// testStart is the virtual start time of every run.
var testStart = time.Date(2026, 10, 19, 6, 30, 0, 0, time.UTC)

// testParams returns parameters for a fast virtual-time run.
func testParams(policy bulb.SabotagePolicy) Params {
	return Params{
		WakeDuration:      10 * time.Minute,
		EscalationTimeout: 10 * time.Second,
		SettleDelay:       time.Second,
		StrobeInterval:    time.Second,
		WarmTemperature:   testWarm,
		ColdTemperature:   testCold,
		Policy:            policy,
		CommandRetries:    1,
		RetryDelay:        0,
	}
}

// newTestController wires a controller to a fake gateway and fake clock.
func newTestController(params Params) (*Controller, *fakeGateway, *clock.Fake) {
	fakeClock := clock.NewFake(testStart)
	gateway := newFakeGateway(fakeClock)

	return New(gateway, params, WithClock(fakeClock)), gateway, fakeClock
}
