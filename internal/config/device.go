package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Device holds the secrets needed to open a session with the bulb.
type Device struct {
	// ID is the Tuya device identifier.
	ID string
	// Address is the bulb's host:port.
	Address string
	// LocalKey is the 16-byte AES session key.
	LocalKey string
	// Version is the local protocol version.
	Version string
}

const (
	// EnvDeviceID names the environment variable holding the device identifier.
	EnvDeviceID = "BULB_DEVICE_ID"
	// EnvAddress names the environment variable holding the bulb address.
	EnvAddress = "BULB_IP"
	// EnvLocalKey names the environment variable holding the local key.
	EnvLocalKey = "BULB_LOCAL_KEY"
	// EnvVersion names the optional environment variable holding the protocol version.
	EnvVersion = "BULB_VERSION"

	// DefaultEnvFilename is the dotenv file read before the environment.
	DefaultEnvFilename = ".env"

	// DefaultPort is the Tuya local control port.
	DefaultPort = "6668"

	// DefaultProtocolVersion is the only supported protocol version.
	DefaultProtocolVersion = "3.3"

	// localKeyLength is the AES-128 key size.
	localKeyLength = 16
)

var (
	// ErrMissingCredentials is returned when a required secret is not set.
	ErrMissingCredentials = errors.New("device credentials not found")
	// ErrInvalidCredentials is returned when a secret is set but malformed.
	ErrInvalidCredentials = errors.New("invalid device credentials")
)

// LoadEnvFile seeds the process environment from a dotenv file.
// Variables already present in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFilename
	}

	if err := godotenv.Load(filepath.Clean(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("load env file: %w", err)
	}

	return nil
}

// LoadDevice reads the device secrets through lookup (os.LookupEnv in production).
func LoadDevice(lookup func(string) (string, bool)) (Device, error) {
	get := func(key string) string {
		value, _ := lookup(key)

		return strings.TrimSpace(value)
	}

	device := Device{
		ID:       get(EnvDeviceID),
		Address:  get(EnvAddress),
		LocalKey: get(EnvLocalKey),
		Version:  get(EnvVersion),
	}

	var missing []string

	for _, required := range []struct{ key, value string }{
		{EnvDeviceID, device.ID},
		{EnvAddress, device.Address},
		{EnvLocalKey, device.LocalKey},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}

	if len(missing) > 0 {
		return Device{}, fmt.Errorf("%w: %s not set, check your .env file", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if len(device.LocalKey) != localKeyLength {
		return Device{}, fmt.Errorf("%w: %s must be %d characters", ErrInvalidCredentials, EnvLocalKey, localKeyLength)
	}

	if device.Version == "" {
		device.Version = DefaultProtocolVersion
	}

	if device.Version != DefaultProtocolVersion {
		return Device{}, fmt.Errorf("%w: protocol version %q is not supported", ErrInvalidCredentials, device.Version)
	}

	if _, _, err := net.SplitHostPort(device.Address); err != nil {
		device.Address = net.JoinHostPort(device.Address, DefaultPort)
	}

	return device, nil
}
