package tuya

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// Data point identifiers of a v2 ("type B") bulb.
const (
	dpSwitch      = "20"
	dpMode        = "21"
	dpBrightness  = "22"
	dpTemperature = "23"
	dpColour      = "24"
)

const (
	brightnessMin   = 10
	brightnessMax   = 1000
	temperatureMax  = 1000
	colourScaleSatV = 1000
)

var (
	// ErrEmptyPayload is returned when the bulb answers without usable state.
	ErrEmptyPayload = errors.New("device returned no usable state")
	// ErrOutOfRange is returned for brightness or temperature outside their percent range.
	ErrOutOfRange = errors.New("value out of range")
)

// statusReply is the decrypted DP_QUERY answer.
type statusReply struct {
	DevID string         `json:"devId"`
	DPS   map[string]any `json:"dps"`
}

// parseState turns a decrypted status reply into a snapshot.
func parseState(plaintext []byte) (*bulb.State, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPayload
	}

	var reply statusReply
	if err := json.Unmarshal(plaintext, &reply); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrEmptyPayload, truncate(plaintext))
	}

	power, ok := reply.DPS[dpSwitch].(bool)
	if !ok {
		return nil, ErrEmptyPayload
	}

	state := &bulb.State{Power: power}

	if mode, ok := reply.DPS[dpMode].(string); ok {
		state.Mode = bulb.ParseMode(mode)
	}

	if raw, ok := reply.DPS[dpBrightness].(float64); ok {
		state.Brightness = brightnessPercent(int(raw))
	}

	if raw, ok := reply.DPS[dpTemperature].(float64); ok {
		state.Temperature = int(math.Round(raw * 100 / temperatureMax))
	}

	if colour, ok := reply.DPS[dpColour].(string); ok {
		state.Colour = colour
	}

	return state, nil
}

// whiteDPS builds the data points for a white-channel command.
func whiteDPS(brightness, temperature int) (map[string]any, error) {
	if brightness < 1 || brightness > 100 {
		return nil, fmt.Errorf("brightness %d: %w", brightness, ErrOutOfRange)
	}

	if temperature < 0 || temperature > 100 {
		return nil, fmt.Errorf("temperature %d: %w", temperature, ErrOutOfRange)
	}

	return map[string]any{
		dpMode:        string(bulb.ModeWhite),
		dpBrightness:  brightnessValue(brightness),
		dpTemperature: temperatureMax * temperature / 100,
	}, nil
}

// colourDPS builds the data points for an RGB command.
func colourDPS(c bulb.RGB) map[string]any {
	return map[string]any{
		dpMode:   string(bulb.ModeColour),
		dpColour: hsvHex(c),
	}
}

// brightnessValue maps percent 1..100 to the device range 10..1000.
func brightnessValue(percent int) int {
	return brightnessMin + (brightnessMax-brightnessMin)*percent/100
}

// brightnessPercent maps the device range back to percent, clamped to 1..100.
func brightnessPercent(value int) int {
	percent := int(math.Round(float64(value-brightnessMin) * 100 / float64(brightnessMax-brightnessMin)))

	return max(1, min(100, percent))
}

// hsvHex encodes c as the HHHHSSSSVVVV colour data point.
func hsvHex(c bulb.RGB) string {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255

	hi := max(r, g, b)
	lo := min(r, g, b)
	delta := hi - lo

	var hue float64

	switch {
	case delta == 0:
		hue = 0
	case hi == r:
		hue = math.Mod((g-b)/delta, 6)
	case hi == g:
		hue = (b-r)/delta + 2
	default:
		hue = (r-g)/delta + 4
	}

	hue *= 60
	if hue < 0 {
		hue += 360
	}

	var saturation float64
	if hi > 0 {
		saturation = delta / hi
	}

	return fmt.Sprintf("%04x%04x%04x",
		int(math.Round(hue)),
		int(math.Round(saturation*colourScaleSatV)),
		int(math.Round(hi*colourScaleSatV)),
	)
}

// truncate shortens a payload for error messages.
func truncate(b []byte) string {
	const limit = 64
	if len(b) <= limit {
		return string(b)
	}

	return string(b[:limit]) + "…(" + strconv.Itoa(len(b)) + " bytes)"
}
