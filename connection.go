package dbuswire

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"time"
)

// Dial opens a Unix domain socket to the bus at address, which must
// be a "unix:path=..." or "unix:abstract=..." D-Bus address. Only the
// unix transport is implemented; "tcp:" and "launchd:" addresses
// return ErrUnsupportedBus.
func Dial(address string) (*net.UnixConn, error) {
	name, err := parseUnixAddress(address)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: name, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrIO, address, err)
	}
	return conn, nil
}

func parseUnixAddress(address string) (string, error) {
	const pathPrefix = "unix:path="
	const abstractPrefix = "unix:abstract="
	switch {
	case strings.HasPrefix(address, pathPrefix):
		return address[len(pathPrefix):], nil
	case strings.HasPrefix(address, abstractPrefix):
		// Go spells an abstract socket name with a leading NUL,
		// conventionally written "@name" in net.UnixAddr.
		return "@" + address[len(abstractPrefix):], nil
	default:
		return "", fmt.Errorf("%w: unrecognized bus address %q", ErrUnsupportedBus, address)
	}
}

// Connection is a single sequential connection to a D-Bus bus. Like
// the connection it's built on, it isn't safe for concurrent use —
// callers must serialize their own Send/Recv/Call calls.
type Connection struct {
	conf Config
	conn *net.UnixConn
	name string // unique bus name assigned during Hello
}

// Connect dials the configured bus address, performs the EXTERNAL
// SASL handshake, and issues the mandatory Hello call every
// connection must make before sending anything else.
func Connect(opts ...Option) (*Connection, error) {
	conf := defaultConfig()
	for _, opt := range opts {
		opt(&conf)
	}

	conn, err := Dial(conf.address)
	if err != nil {
		return nil, err
	}
	if err := setNonblocking(conn); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Connection{conf: conf, conn: conn}
	if err := authExternal(conn, time.Now().Add(conf.deadline)); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Name returns the unique bus name Hello assigned this connection, or
// an empty string before Connect completes it.
func (c *Connection) Name() string { return c.name }

// hello issues org.freedesktop.DBus.Hello, which every connection
// must call exactly once before anything else, and records the
// unique name the bus assigns in reply.
func (c *Connection) hello() error {
	var msg Message
	msg.PrepareCall("org.freedesktop.DBus", "/org/freedesktop/DBus", "org.freedesktop.DBus", "Hello")

	reply, err := c.Call(&msg)
	if err != nil {
		return fmt.Errorf("Hello: %w", err)
	}
	var name string
	if err := ExtractArgument(reply, &name); err != nil {
		return fmt.Errorf("Hello: decode unique name: %w", err)
	}
	c.name = name
	return nil
}

// Send serializes msg and writes it to the bus.
func (c *Connection) Send(msg *Message) error {
	b, err := msg.Serialize()
	if err != nil {
		return err
	}
	return writeRaw(c.conn, b, time.Now().Add(c.conf.deadline))
}

// Recv reads and decodes the next complete message frame from the
// bus: the fixed header, the header fields, and the body, all within
// one deadline d from now. A zero d falls back to the connection's
// configured deadline.
func (c *Connection) Recv(d time.Duration) (*Message, error) {
	if d == 0 {
		d = c.conf.deadline
	}
	deadline := time.Now().Add(d)

	prologue := make([]byte, messagePrologueSize)
	if err := readFull(c.conn, prologue, deadline); err != nil {
		return nil, err
	}

	var msg Message
	hd := newDecoder(bytes.NewReader(prologue))
	if err := decodeFixedHeader(hd, &msg.header); err != nil {
		return nil, err
	}
	fieldsLen, err := hd.Uint32()
	if err != nil {
		return nil, fmt.Errorf("header fields length: %w", err)
	}

	// The body always starts 8-byte aligned, so the fields array is
	// followed by enough padding to reach that boundary.
	_, padding := nextOffset(messagePrologueSize+fieldsLen, 8)
	rest := make([]byte, fieldsLen+padding)
	if err := readFull(c.conn, rest, deadline); err != nil {
		return nil, err
	}

	fd := newDecoder(bytes.NewReader(rest))
	fd.SetOffset(messagePrologueSize)
	end := messagePrologueSize + fieldsLen
	msg.fields = make(map[FieldCode]Variant)
	for fd.Offset() < end {
		code, v, err := decodeHeaderField(fd)
		if err != nil {
			return nil, err
		}
		msg.setField(code, v)
	}
	if fd.Offset() != end {
		return nil, fmt.Errorf("%w: header fields overran declared length", ErrMalformed)
	}

	body := make([]byte, msg.header.BodyLen)
	if err := readFull(c.conn, body, deadline); err != nil {
		return nil, err
	}
	if err := msg.decodeBody(body); err != nil {
		return nil, err
	}
	if err := msg.checkRequiredFields(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Call sends msg and waits for the reply it provokes. An ERROR reply
// is turned into a Go error carrying the bus's ERROR_NAME; a
// METHOD_RETURN is returned as-is for the caller to extract arguments
// from. When WithSerialCheck is enabled (the default), the reply's
// REPLY_SERIAL is verified against msg's serial before either path is
// taken.
func (c *Connection) Call(msg *Message) (*Message, error) {
	serial := msg.Serial()
	if err := c.Send(msg); err != nil {
		return nil, err
	}

	reply, err := c.Recv(0)
	if err != nil {
		return nil, err
	}

	if c.conf.isSerialCheckEnabled {
		replySerial, err := reply.ReplySerial()
		if err != nil {
			return nil, fmt.Errorf("Call: %w", err)
		}
		if replySerial != serial {
			return nil, fmt.Errorf("%w: reply serial %d doesn't match call serial %d", ErrMalformed, replySerial, serial)
		}
	}

	if reply.IsError() {
		name, _ := reply.ErrorName()
		member, _ := msg.Member()
		return nil, fmt.Errorf("dbuswire: call to %s returned error %s", member, name)
	}
	return reply, nil
}
