package dbuswire

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is how long a raw read/write sleeps after an EAGAIN
// before retrying, mirroring the 1ms usleep in the original
// connection's non-blocking read/write loops.
const pollInterval = time.Millisecond

// setNonblocking puts conn's underlying file descriptor in
// non-blocking mode, so readRaw/writeRaw can poll it with a deadline
// instead of blocking the calling goroutine in the kernel.
func setNonblocking(conn *net.UnixConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	var sockErr error
	if err := rc.Control(func(fd uintptr) {
		sockErr = unix.SetNonblock(int(fd), true)
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if sockErr != nil {
		return fmt.Errorf("%w: %v", ErrIO, sockErr)
	}
	return nil
}

// readRaw reads at least one byte into buf, retrying on EAGAIN until
// deadline passes. It returns ErrTimeout if the deadline elapses
// before any data arrives.
func readRaw(conn *net.UnixConn, buf []byte, deadline time.Time) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	for {
		var n int
		var opErr error
		if err := rc.Read(func(fd uintptr) bool {
			n, opErr = unix.Read(int(fd), buf)
			// Always return to the loop below, which handles EAGAIN
			// with its own sleep and deadline check.
			return true
		}); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIO, err)
		}

		switch {
		case opErr == unix.EAGAIN:
			if time.Now().After(deadline) {
				return 0, ErrTimeout
			}
			time.Sleep(pollInterval)
		case opErr != nil:
			return 0, fmt.Errorf("%w: %v", ErrIO, opErr)
		case n == 0:
			return 0, fmt.Errorf("%w: connection closed", ErrIO)
		default:
			return n, nil
		}

		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
	}
}

// writeRaw writes all of buf, retrying on EAGAIN until deadline
// passes.
func writeRaw(conn *net.UnixConn, buf []byte, deadline time.Time) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	written := 0
	for written < len(buf) {
		var n int
		var opErr error
		if err := rc.Write(func(fd uintptr) bool {
			n, opErr = unix.Write(int(fd), buf[written:])
			// Always return to the loop below, which handles EAGAIN
			// with its own sleep and deadline check.
			return true
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}

		switch {
		case opErr == unix.EAGAIN:
			if time.Now().After(deadline) {
				return ErrTimeout
			}
			time.Sleep(pollInterval)
		case opErr != nil:
			return fmt.Errorf("%w: %v", ErrIO, opErr)
		default:
			written += n
		}

		if time.Now().After(deadline) {
			return ErrTimeout
		}
	}
	return nil
}

// readFull reads exactly len(buf) bytes, looping readRaw calls until
// the buffer is full or the deadline passes.
func readFull(conn *net.UnixConn, buf []byte, deadline time.Time) error {
	got := 0
	for got < len(buf) {
		n, err := readRaw(conn, buf[got:], deadline)
		if err != nil {
			return err
		}
		got += n
	}
	return nil
}

// readLine reads bytes one at a time until it sees the "\r\n" the
// SASL line protocol terminates every command and reply with,
// returning the line without the terminator.
func readLine(conn *net.UnixConn, deadline time.Time) (string, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := readRaw(conn, b, deadline)
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		line = append(line, b[0])
		if len(line) >= 2 && line[len(line)-2] == '\r' && line[len(line)-1] == '\n' {
			return string(line[:len(line)-2]), nil
		}
	}
}
