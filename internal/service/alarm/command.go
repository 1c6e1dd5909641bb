package alarm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/wake-bulb/internal/clock"
	"github.com/oshokin/wake-bulb/internal/config"
	"github.com/oshokin/wake-bulb/internal/device/tuya"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
	"github.com/oshokin/wake-bulb/internal/logger"
	"github.com/oshokin/wake-bulb/internal/service/wake"
)

// Session is an open connection to the bulb.
type Session interface {
	wake.Gateway
	io.Closer
}

// Dialer opens a session with the bulb described by device.
type Dialer func(ctx context.Context, device config.Device, cfg *config.Config) (Session, error)

// Options controls one alarm run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// EnvFile is the dotenv file loaded before reading secrets.
	EnvFile string
	// WakeDuration overrides the configured ramp length when positive.
	WakeDuration time.Duration
	// EscalationTimeout overrides the configured strobe timeout when positive.
	EscalationTimeout time.Duration
	// SettleDelay overrides the configured settle delay when set.
	SettleDelay *time.Duration
	// StrobeInterval overrides the configured strobe interval when positive.
	StrobeInterval time.Duration
	// Policy overrides the configured sabotage policy when not empty.
	Policy string
	// LogLevel overrides the configured log level when not empty.
	LogLevel string
	// Lookup reads environment variables; os.LookupEnv when nil.
	Lookup func(string) (string, bool)
	// Dial opens the bulb session; the Tuya client when nil.
	Dial Dialer
	// Clock drives the controller; the wall clock when nil.
	Clock clock.Clock
}

// The Tuya session keeps itself alive between long ramp steps.
var _ wake.Heartbeater = (*tuya.Client)(nil)

var (
	// ErrConfig marks configuration failures: bad settings, flags or secrets.
	ErrConfig = errors.New("configuration error")
	// ErrConnect marks a failure to open the session with the bulb.
	ErrConnect = errors.New("connection error")

	// errInvalidLogLevel is returned for unknown log level names.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Run loads the configuration, connects to the bulb and runs the alarm.
// Secrets are checked before any connection is attempted.
func Run(ctx context.Context, opts *Options) (*wake.Result, error) {
	ctx = logger.WithName(ctx, "wake-bulb")

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrConfig, errInvalidLogLevel, cfg.LogLevel)
	}

	logger.SetLevel(level)
	logger.DebugKV(ctx, "Configuration loaded",
		"log_level", logger.Level().String(),
		"wake", cfg.WakeDuration.String(),
		"escalation", cfg.EscalationTimeout.String(),
		"policy", string(cfg.SabotagePolicy),
	)

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg.Device, err = config.LoadDevice(lookup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	dial := opts.Dial
	if dial == nil {
		dial = dialTuya
	}

	logger.InfoKV(ctx, "Connecting to the bulb", "device_id", cfg.Device.ID, "address", cfg.Device.Address)

	session, err := dial(ctx, cfg.Device, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Close session failed", "error", closeErr)
		}
	}()

	state, err := session.Status(ctx)
	switch {
	case err != nil:
		logger.WarnKV(ctx, "Initial state poll failed", "error", err)
	case state != nil:
		logger.InfoKV(ctx, "Bulb connected", "state", state.String())
	}

	var controllerOptions []wake.Option
	if opts.Clock != nil {
		controllerOptions = append(controllerOptions, wake.WithClock(opts.Clock))
	}

	controller := wake.New(session, wake.ParamsFromConfig(cfg), controllerOptions...)

	return controller.Run(ctx)
}

// loadConfig reads the dotenv and settings files and applies the overrides.
// Precedence is overrides, then settings file, then defaults.
func loadConfig(opts *Options) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.WakeDuration > 0 {
		cfg.WakeDuration = opts.WakeDuration
	}

	if opts.EscalationTimeout > 0 {
		cfg.EscalationTimeout = opts.EscalationTimeout
	}

	if opts.SettleDelay != nil {
		cfg.SettleDelay = *opts.SettleDelay
	}

	if opts.StrobeInterval > 0 {
		cfg.StrobeInterval = opts.StrobeInterval
	}

	if opts.Policy != "" {
		cfg.SabotagePolicy = bulb.SabotagePolicy(opts.Policy)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

// dialTuya opens a Tuya local session using the network settings of cfg.
func dialTuya(ctx context.Context, device config.Device, cfg *config.Config) (Session, error) {
	client, err := tuya.Dial(ctx, device,
		tuya.WithTimeout(cfg.Timeout),
		tuya.WithConnectAttempts(cfg.ConnectAttempts),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}
