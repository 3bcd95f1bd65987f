// Package dbuswire implements the D-Bus wire protocol: the SASL
// authentication handshake, the binary marshalling of messages with
// D-Bus alignment rules, and the framed send/receive loop over a
// non-blocking Unix domain socket.
//
// The package only speaks the wire format. Higher-level concerns —
// object proxies, introspection, signal dispatching, bus address
// discovery beyond the system bus — are left to callers.
//
// Connect dials the bus, runs the EXTERNAL SASL handshake, and issues
// the mandatory Hello call, so a session can go straight to its own
// calls:
//
//	c, err := dbuswire.Connect()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	var msg dbuswire.Message
//	msg.PrepareCall("org.freedesktop.DBus", "/org/freedesktop/DBus", "org.freedesktop.DBus", "GetId")
//	reply, err := c.Call(&msg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	var id string
//	if err := dbuswire.ExtractArgument(reply, &id); err != nil {
//		log.Fatal(err)
//	}
package dbuswire
