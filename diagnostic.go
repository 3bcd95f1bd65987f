package dbuswire

import "fmt"

// DumpHeader renders h and its message kind in a one-line form useful
// for logging a connection's traffic, e.g.:
//
//	METHOD_CALL serial=3 flags=0x00 body=24 bytes
func DumpHeader(h *Header) string {
	return fmt.Sprintf("%s serial=%d flags=0x%02x body=%d bytes", h.Type, h.Serial, h.Flags, h.BodyLen)
}

// DumpMessage renders m's header plus its signature and header
// fields, in caller-stable field order, useful for logging a decoded
// message before its arguments are extracted.
func DumpMessage(m *Message) string {
	s := DumpHeader(&m.header)
	if m.signature != "" {
		s += fmt.Sprintf(" sig=%q", m.signature)
	}
	for _, code := range m.fieldOrder {
		s += fmt.Sprintf(" %s=%v", code, m.fields[code].payload)
	}
	return s
}
