package tuya

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/wake-bulb/internal/config"
	"github.com/oshokin/wake-bulb/internal/domain/bulb"
)

// Client is a persistent local session with one bulb.
type Client struct {
	// device holds the identity and address of the bulb.
	device config.Device
	// key is the AES key derived from the local key.
	key []byte
	// timeout bounds every request and every connection attempt.
	timeout time.Duration
	// attempts bounds the initial connection attempts.
	attempts int

	// mu serialises requests over the single socket.
	mu sync.Mutex
	// conn is the open socket, nil between a failure and the next redial.
	conn net.Conn
	// seq is the last used frame sequence number.
	seq uint32
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout sets the per-request and per-dial timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithConnectAttempts sets how many times Dial tries to reach the bulb.
func WithConnectAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

var (
	// errNotConnected is returned by requests after Close.
	errNotConnected = errors.New("session is closed")
	// errKeyLength is returned when the local key is not 16 bytes.
	errKeyLength = errors.New("local key must be 16 bytes")
)

// ErrRejected is returned when the bulb answers a command with a non-zero return code.
var ErrRejected = errors.New("device rejected command")

// Dial opens the session, retrying with exponential backoff.
func Dial(ctx context.Context, device config.Device, opts ...Option) (*Client, error) {
	if len(device.LocalKey) != 16 {
		return nil, errKeyLength
	}

	client := &Client{
		device:   device,
		key:      []byte(device.LocalKey),
		timeout:  config.DefaultTimeout,
		attempts: config.DefaultConnectAttempts,
	}

	for _, opt := range opts {
		opt(client)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(client.attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		client.mu.Lock()
		defer client.mu.Unlock()

		return client.dialLocked(ctx)
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", device.Address, err)
	}

	return client, nil
}

// Close releases the socket. Requests after Close fail.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = nil

	return c.closeLocked()
}

// Status reads the current state of the bulb.
func (c *Client) Status(ctx context.Context) (*bulb.State, error) {
	plaintext, err := c.request(ctx, CommandQuery, c.queryPayload())
	if err != nil {
		return nil, fmt.Errorf("query status: %w", err)
	}

	return parseState(plaintext)
}

// SetPower switches the bulb on or off.
func (c *Client) SetPower(ctx context.Context, on bool) error {
	return c.control(ctx, "set power", map[string]any{dpSwitch: on})
}

// SetMode changes the work mode.
func (c *Client) SetMode(ctx context.Context, mode bulb.Mode) error {
	return c.control(ctx, "set mode", map[string]any{dpMode: string(mode)})
}

// SetWhite sets white mode with brightness 1..100 and temperature 0..100 percent.
func (c *Client) SetWhite(ctx context.Context, brightness, temperature int) error {
	dps, err := whiteDPS(brightness, temperature)
	if err != nil {
		return err
	}

	return c.control(ctx, "set white", dps)
}

// SetColour sets colour mode with the given RGB value.
func (c *Client) SetColour(ctx context.Context, colour bulb.RGB) error {
	return c.control(ctx, "set colour", colourDPS(colour))
}

// Heartbeat pings the bulb so it keeps the idle session open.
func (c *Client) Heartbeat(ctx context.Context) error {
	if _, err := c.request(ctx, CommandHeartbeat, c.queryPayload()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}

	return nil
}

// control sends a CONTROL request with dps.
func (c *Client) control(ctx context.Context, what string, dps map[string]any) error {
	if _, err := c.request(ctx, CommandControl, c.controlPayload(dps)); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	return nil
}

// queryPayload is the DP_QUERY body.
func (c *Client) queryPayload() map[string]any {
	return map[string]any{
		"gwId":  c.device.ID,
		"devId": c.device.ID,
		"uid":   c.device.ID,
		"t":     strconv.FormatInt(time.Now().Unix(), 10),
	}
}

// controlPayload is the CONTROL body for dps.
func (c *Client) controlPayload(dps map[string]any) map[string]any {
	return map[string]any{
		"devId": c.device.ID,
		"uid":   c.device.ID,
		"t":     strconv.FormatInt(time.Now().Unix(), 10),
		"dps":   dps,
	}
}

// request sends one command and returns the decrypted reply payload.
// A broken socket is redialed once and the request replayed.
func (c *Client) request(ctx context.Context, cmd Command, body map[string]any) ([]byte, error) {
	plaintext, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil {
		return nil, errNotConnected
	}

	sealed, err := sealPayload(cmd, c.key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt payload: %w", err)
	}

	c.seq++
	frame := encodeFrame(Frame{Seq: c.seq, Command: cmd, Payload: sealed})

	var lastErr error

	for range 2 {
		if c.conn == nil {
			if err = c.dialLocked(ctx); err != nil {
				return nil, fmt.Errorf("reconnect: %w", err)
			}
		}

		reply, err := c.roundTripLocked(ctx, cmd, frame)
		if err == nil {
			if reply.HasReturnCode && reply.ReturnCode != 0 {
				return nil, fmt.Errorf("%w: code %d", ErrRejected, reply.ReturnCode)
			}

			return openPayload(c.key, reply.Payload)
		}

		lastErr = err
		_ = c.closeLocked()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// roundTripLocked writes frame and waits for the reply to cmd, skipping
// unsolicited frames such as status pushes.
func (c *Client) roundTripLocked(ctx context.Context, cmd Command, frame []byte) (Frame, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return Frame{}, err
	}

	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	if _, err := c.conn.Write(frame); err != nil {
		return Frame{}, fmt.Errorf("write frame: %w", err)
	}

	for {
		reply, err := readFrame(c.conn, true)
		if err != nil {
			return Frame{}, fmt.Errorf("read frame: %w", err)
		}

		if reply.Command == cmd {
			return reply, nil
		}
	}
}

// dialLocked opens the socket.
func (c *Client) dialLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return backoff.Permanent(err)
	}

	dialer := net.Dialer{Timeout: c.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.device.Address)
	if err != nil {
		return err
	}

	c.conn = conn

	return nil
}

// closeLocked drops the socket.
func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	return err
}
