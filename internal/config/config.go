package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// Config holds the session parameters of one alarm run.
type Config struct {
	// Device holds the bulb secrets. It is never persisted to YAML.
	Device Device `yaml:"-"`
	// WakeDuration is the length of the gentle wake ramp.
	WakeDuration time.Duration `yaml:"wake_duration"`
	// EscalationTimeout bounds the strobe phase.
	EscalationTimeout time.Duration `yaml:"escalation_timeout"`
	// SettleDelay is the pause after power-on before the first state poll.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// StrobeInterval is how long each strobe colour is held.
	StrobeInterval time.Duration `yaml:"strobe_interval"`
	// WarmTemperature is the ramp colour temperature in percent (0 is warmest).
	WarmTemperature int `yaml:"warm_temperature"`
	// ColdTemperature is the safe-state colour temperature in percent.
	ColdTemperature int `yaml:"cold_temperature"`
	// SabotagePolicy decides what a manual power-off means.
	SabotagePolicy bulb.SabotagePolicy `yaml:"sabotage_policy"`
	// CommandRetries is how many times a failed device command is retried.
	CommandRetries int `yaml:"command_retries"`
	// Timeout is the per-request network timeout towards the bulb.
	Timeout time.Duration `yaml:"timeout"`
	// ConnectAttempts bounds the initial connection attempts.
	ConnectAttempts int `yaml:"connect_attempts"`
	// LogLevel is the minimum level written to the console.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for the settings file.
	DefaultConfigFilename = "wake-bulb-settings.yaml"

	// DefaultWakeDuration is the default gentle wake length.
	DefaultWakeDuration = 10 * time.Minute

	// DefaultEscalationTimeout is the default strobe phase length.
	DefaultEscalationTimeout = 5 * time.Minute

	// DefaultSettleDelay is the default pause after power-on.
	DefaultSettleDelay = time.Second

	// DefaultStrobeInterval is how long each strobe colour is held by default.
	DefaultStrobeInterval = time.Second

	// MinStrobeInterval is the fastest command rate the bulb controller tolerates.
	MinStrobeInterval = 500 * time.Millisecond

	// DefaultWarmTemperature is the warmest white.
	DefaultWarmTemperature = 0

	// DefaultColdTemperature is the coldest white.
	DefaultColdTemperature = 100

	// DefaultCommandRetries is the number of retries for a failed command.
	DefaultCommandRetries = 1

	// DefaultTimeout is the default per-request network timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultConnectAttempts is the default number of connection attempts.
	DefaultConnectAttempts = 3

	// DefaultFilePermissions is the default file permission for the settings file.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNonPositiveDuration is returned when a phase duration is zero or negative.
	errNonPositiveDuration = errors.New("duration must be positive")
	// errStrobeTooFast is returned when the strobe interval is below MinStrobeInterval.
	errStrobeTooFast = errors.New("strobe interval is below the bulb's minimum command interval")
	// errTemperatureRange is returned when a temperature is outside 0..100.
	errTemperatureRange = errors.New("temperature must be within 0..100")
	// errNegativeValue is returned for negative counters and delays.
	errNegativeValue = errors.New("value must not be negative")
)

// Default returns a configuration filled with defaults and no device secrets.
func Default() *Config {
	return &Config{
		WakeDuration:      DefaultWakeDuration,
		EscalationTimeout: DefaultEscalationTimeout,
		SettleDelay:       DefaultSettleDelay,
		StrobeInterval:    DefaultStrobeInterval,
		WarmTemperature:   DefaultWarmTemperature,
		ColdTemperature:   DefaultColdTemperature,
		SabotagePolicy:    bulb.PolicyReassert,
		CommandRetries:    DefaultCommandRetries,
		Timeout:           DefaultTimeout,
		ConnectAttempts:   DefaultConnectAttempts,
		LogLevel:          "info",
	}
}

// Load reads settings from path on top of the defaults and validates them.
// A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the tunables of cfg to path. Device secrets are not written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the tunables. Device secrets are checked by LoadDevice.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.WakeDuration <= 0 {
		return fmt.Errorf("wake duration %s: %w", cfg.WakeDuration, errNonPositiveDuration)
	}

	if cfg.EscalationTimeout <= 0 {
		return fmt.Errorf("escalation timeout %s: %w", cfg.EscalationTimeout, errNonPositiveDuration)
	}

	if cfg.StrobeInterval < MinStrobeInterval {
		return fmt.Errorf("strobe interval %s (minimum %s): %w", cfg.StrobeInterval, MinStrobeInterval, errStrobeTooFast)
	}

	if cfg.SettleDelay < 0 {
		return fmt.Errorf("settle delay %s: %w", cfg.SettleDelay, errNegativeValue)
	}

	if cfg.CommandRetries < 0 {
		return fmt.Errorf("command retries %d: %w", cfg.CommandRetries, errNegativeValue)
	}

	for name, value := range map[string]int{
		"warm temperature": cfg.WarmTemperature,
		"cold temperature": cfg.ColdTemperature,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s %d: %w", name, value, errTemperatureRange)
		}
	}

	if _, err := bulb.ParseSabotagePolicy(string(cfg.SabotagePolicy)); err != nil {
		return err
	}

	// Set defaults for the network knobs if not specified.
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = DefaultConnectAttempts
	}

	return nil
}
