package transport

// HDLC-like escape framing for the serial transport leg, per spec.md
// §6 ("serial (HDLC-like escape framing with MTU 256)") and the
// byte-stuffing convention named in SPEC_FULL.md's DOMAIN STACK
// section. Grounded on the framing concept in
// original_source/src/c/profile/transport/uart_transport_linux.c's
// read_serial_msg/write_serial_msg (reimplemented here, not copied).
const (
	hdlcFlag byte = 0x7E
	hdlcEsc  byte = 0x7D
	hdlcXor  byte = 0x20
)

// hdlcEncode wraps payload in flag bytes, escaping any flag/esc byte
// that appears in the payload itself.
func hdlcEncode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, hdlcFlag)
	for _, b := range payload {
		if b == hdlcFlag || b == hdlcEsc {
			out = append(out, hdlcEsc, b^hdlcXor)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, hdlcFlag)
	return out
}

// hdlcDecode reverses hdlcEncode. framed must start and end with
// hdlcFlag; ok is false on a malformed frame.
func hdlcDecode(framed []byte) (payload []byte, ok bool) {
	if len(framed) < 2 || framed[0] != hdlcFlag || framed[len(framed)-1] != hdlcFlag {
		return nil, false
	}
	body := framed[1 : len(framed)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		b := body[i]
		if b == hdlcEsc {
			i++
			if i >= len(body) {
				return nil, false
			}
			out = append(out, body[i]^hdlcXor)
			continue
		}
		out = append(out, b)
	}
	return out, true
}
