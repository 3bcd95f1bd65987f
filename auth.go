package dbuswire

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// authExternal drives the SASL handshake over conn through its six
// states:
//
//	client: \0
//	client: AUTH
//	server: REJECTED EXTERNAL DBUS_COOKIE_SHA1
//	client: AUTH EXTERNAL 31303030
//	server: OK bde8d2222a9e966420ee8c1a63e972b4
//	client: NEGOTIATE_UNIX_FD
//	server: AGREE_UNIX_FD
//	client: BEGIN
//
// where 31303030 is the client's effective uid (1000 in the example)
// ASCII-decimal-then-hex encoded, as the protocol requires. The bare
// AUTH probe's REJECTED reply carries the server's supported
// mechanisms, which this client doesn't inspect since it only ever
// offers EXTERNAL; a non-REJECTED reply to that probe (a server that
// authenticates the bare request) is itself a terminal failure here,
// since this client has committed to proceeding straight to EXTERNAL.
//
// UNIX_FD negotiation is attempted but its outcome doesn't affect the
// handshake: a server that doesn't recognize NEGOTIATE_UNIX_FD answers
// ERROR, which is treated the same as an AGREE_UNIX_FD and simply
// skipped.
func authExternal(conn *net.UnixConn, deadline time.Time) error {
	if err := writeRaw(conn, []byte{0}, deadline); err != nil {
		return fmt.Errorf("auth: send initial null byte: %w", err)
	}

	if err := writeRaw(conn, []byte("AUTH\r\n"), deadline); err != nil {
		return fmt.Errorf("auth: send AUTH: %w", err)
	}
	mechanisms, err := readLine(conn, deadline)
	if err != nil {
		return fmt.Errorf("auth: read mechanisms: %w", err)
	}
	if !strings.HasPrefix(mechanisms, "REJECTED") {
		return fmt.Errorf("%w: expected REJECTED with supported mechanisms, got: %s", ErrAuthRejected, mechanisms)
	}

	uid := strconv.Itoa(os.Geteuid())
	cmd := "AUTH EXTERNAL " + hex.EncodeToString([]byte(uid)) + "\r\n"
	if err := writeRaw(conn, []byte(cmd), deadline); err != nil {
		return fmt.Errorf("auth: send AUTH EXTERNAL: %w", err)
	}

	reply, err := readLine(conn, deadline)
	if err != nil {
		return fmt.Errorf("auth: read AUTH EXTERNAL reply: %w", err)
	}
	if strings.HasPrefix(reply, "REJECTED") {
		return fmt.Errorf("%w: server rejected EXTERNAL", ErrAuthRejected)
	}
	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("%w: unexpected reply: %s", ErrAuthRejected, reply)
	}

	if err := writeRaw(conn, []byte("NEGOTIATE_UNIX_FD\r\n"), deadline); err != nil {
		return fmt.Errorf("auth: send NEGOTIATE_UNIX_FD: %w", err)
	}
	if _, err := readLine(conn, deadline); err != nil {
		return fmt.Errorf("auth: read NEGOTIATE_UNIX_FD reply: %w", err)
	}
	// The AGREE_UNIX_FD/ERROR distinction isn't acted on; see the
	// doc comment above.

	if err := writeRaw(conn, []byte("BEGIN\r\n"), deadline); err != nil {
		return fmt.Errorf("auth: send BEGIN: %w", err)
	}
	return nil
}
