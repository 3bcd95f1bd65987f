package dbuswire

import "time"

const (
	// DefaultAddress is the well-known system bus socket path used
	// when no address is given explicitly.
	DefaultAddress = "unix:path=/var/run/dbus/system_bus_socket"
	// DefaultDeadline is the deadline used when the caller doesn't
	// override it: it bounds the whole SASL handshake (all auth lines
	// share it; each line doesn't get its own), and separately each
	// Send and each Recv, including the Hello call's.
	DefaultDeadline = 2 * time.Second
)

// Config gathers the options a Connect call is built from.
type Config struct {
	// address is a D-Bus address string: "unix:path=/run/..." or
	// "unix:abstract=...". Only the unix transport is implemented.
	address string
	// deadline bounds the whole SASL handshake, and separately each
	// single Send/Recv call.
	deadline time.Duration
	// isSerialCheckEnabled, when set, makes Connection.Call verify
	// the reply's REPLY_SERIAL matches the call it was sent for.
	isSerialCheckEnabled bool
}

func defaultConfig() Config {
	return Config{
		address:              DefaultAddress,
		deadline:             DefaultDeadline,
		isSerialCheckEnabled: true,
	}
}

// Option sets up a Config.
type Option func(*Config)

// WithAddress overrides the bus address Connect dials. Only
// "unix:path=..." and "unix:abstract=..." forms are recognized.
func WithAddress(address string) Option {
	return func(c *Config) {
		c.address = address
	}
}

// WithDeadline sets the deadline for the whole SASL handshake (one
// deadline for all its lines, not one per line), and separately for
// each Send and each Recv, including those of the Hello call.
func WithDeadline(d time.Duration) Option {
	return func(c *Config) {
		c.deadline = d
	}
}

// WithSerialCheck controls whether Connection.Call verifies a
// reply's REPLY_SERIAL against the call's serial before returning it.
// Enabled by default; disabling it skips only that comparison, since
// Recv decodes every header field either way.
func WithSerialCheck(enable bool) Option {
	return func(c *Config) {
		c.isSerialCheckEnabled = enable
	}
}
