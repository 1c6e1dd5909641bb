package bulb

import "fmt"

// Mode is the bulb work mode as reported by the device.
type Mode string

const (
	// ModeUnknown is used when the device did not report a mode.
	ModeUnknown Mode = ""
	// ModeWhite drives the white channel (brightness + temperature).
	ModeWhite Mode = "white"
	// ModeColour drives the RGB channel.
	ModeColour Mode = "colour"
	// ModeScene runs a device-side scene.
	ModeScene Mode = "scene"
	// ModeMusic follows the companion app's microphone.
	ModeMusic Mode = "music"
)

// ParseMode maps a device mode string to a Mode.
// Unrecognised values map to ModeUnknown.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeWhite, ModeColour, ModeScene, ModeMusic:
		return Mode(s)
	default:
		return ModeUnknown
	}
}

// State is a snapshot of the bulb read from the device.
type State struct {
	// Power reports whether the bulb is switched on.
	Power bool
	// Mode is the current work mode.
	Mode Mode
	// Brightness is the white-channel brightness in percent (1..100), 0 when unreported.
	Brightness int
	// Temperature is the white-channel colour temperature in percent (0 warm .. 100 cold).
	Temperature int
	// Colour is the raw colour data point, if any.
	Colour string
}

// String renders the snapshot for log lines.
func (s *State) String() string {
	if s == nil {
		return "<no state>"
	}

	power := "off"
	if s.Power {
		power = "on"
	}

	return fmt.Sprintf("power=%s mode=%s brightness=%d%% temperature=%d%%", power, s.Mode, s.Brightness, s.Temperature)
}

// RGB is a colour in 8-bit channels.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

var (
	// Red is the first strobe colour.
	//nolint:gochecknoglobals // Immutable palette value.
	Red = RGB{R: 255}
	// Blue is the second strobe colour.
	//nolint:gochecknoglobals // Immutable palette value.
	Blue = RGB{B: 255}
)

// String renders the colour as a hex triplet.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
