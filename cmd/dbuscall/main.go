// Program dbuscall connects to a D-Bus bus, performs the Hello
// handshake, and issues a single method call, to show how the package
// can be configured and used end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-dbuswire/dbuswire"
)

func main() {
	exitCode := 1
	defer func() { os.Exit(exitCode) }()

	addr := flag.String("addr", "", "bus address, e.g. unix:path=/run/user/1000/bus")
	destination := flag.String("dest", "org.freedesktop.DBus", "call destination")
	path := flag.String("path", "/org/freedesktop/DBus", "object path")
	iface := flag.String("iface", "org.freedesktop.DBus", "interface")
	member := flag.String("member", "GetId", "method name")
	checkSerial := flag.Bool("serial", true, "verify reply serial matches the call")
	deadline := flag.Duration("deadline", 2*time.Second, "per-operation deadline")
	flag.Parse()

	opts := []dbuswire.Option{
		dbuswire.WithDeadline(*deadline),
		dbuswire.WithSerialCheck(*checkSerial),
	}
	if *addr != "" {
		opts = append(opts, dbuswire.WithAddress(*addr))
	}

	c, err := dbuswire.Connect(opts...)
	if err != nil {
		log.Print(err)
		return
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Print(err)
		}
	}()

	fmt.Printf("connected as %s\n", c.Name())

	var msg dbuswire.Message
	msg.PrepareCall(*destination, *path, *iface, *member)

	reply, err := c.Call(&msg)
	if err != nil {
		log.Print(err)
		return
	}
	fmt.Println(dbuswire.DumpMessage(reply))

	exitCode = 0
}
