package transport

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// serialMTU is spec.md §6's "serial (... MTU 256)".
const serialMTU = 256

// Serial is the HDLC-framed serial-line Transport, opened via
// go.bug.st/serial (out-of-pack — kcptun has no serial leg — chosen
// as the natural ecosystem library for the transport spec.md §6
// explicitly lists).
type Serial struct {
	port    serial.Port
	lastErr error
}

// DialSerial opens device at baud and wraps it with HDLC framing.
func DialSerial(device string, baud int) (*Serial, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, errors.Wrap(err, "transport: open serial port")
	}
	return &Serial{port: port}, nil
}

func (t *Serial) SendMsg(data []byte) bool {
	if len(data) > serialMTU {
		t.lastErr = errors.New("transport: message exceeds serial mtu")
		return false
	}
	framed := hdlcEncode(data)
	if _, err := t.port.Write(framed); err != nil {
		t.lastErr = err
		return false
	}
	return true
}

// RecvMsg reads byte-at-a-time until a complete hdlcFlag...hdlcFlag
// frame has arrived or timeout elapses, mirroring read_serial_msg's
// poll-then-read loop in the grounding source.
func (t *Serial) RecvMsg(timeout time.Duration) ([]byte, bool) {
	if err := t.port.SetReadTimeout(timeout); err != nil {
		t.lastErr = err
		return nil, false
	}
	deadline := time.Now().Add(timeout)
	var frame []byte
	started := false
	one := make([]byte, 1)
	for time.Now().Before(deadline) {
		n, err := t.port.Read(one)
		if err != nil {
			t.lastErr = err
			return nil, false
		}
		if n == 0 {
			continue // read timeout with no byte, keep polling until deadline
		}
		b := one[0]
		if b == hdlcFlag {
			if !started {
				started = true
				frame = append(frame, b)
				continue
			}
			frame = append(frame, b)
			payload, ok := hdlcDecode(frame)
			if !ok {
				frame = frame[:0]
				started = false
				continue
			}
			return payload, true
		}
		if started {
			frame = append(frame, b)
		}
	}
	return nil, false
}

func (t *Serial) MTU() int { return serialMTU }

func (t *Serial) LastError() error { return t.lastErr }

// Close releases the underlying serial port.
func (t *Serial) Close() error { return t.port.Close() }
