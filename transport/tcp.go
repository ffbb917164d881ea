package transport

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// tcpMTU bounds a single length-prefixed message on the TCP leg
// (spec.md §6: "TCP (length-prefixed stream)").
const tcpMTU = 65535

// TCP frames messages with a 2-byte big-endian length prefix over a
// plain net.Conn, grounded on kcptun's client/main.go TCP listener
// setup (net.ResolveTCPAddr/ListenTCP), adapted from "accept and
// multiplex with smux" to "frame one message at a time."
type TCP struct {
	conn    net.Conn
	lastErr error
}

// DialTCP connects to raddr over TCP.
func DialTCP(raddr string) (*TCP, error) {
	conn, err := net.Dial("tcp", raddr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial tcp")
	}
	return &TCP{conn: conn}, nil
}

func (t *TCP) SendMsg(data []byte) bool {
	if len(data) > tcpMTU {
		t.lastErr = errors.New("transport: message exceeds tcp mtu")
		return false
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(data)))
	if _, err := t.conn.Write(hdr[:]); err != nil {
		t.lastErr = err
		return false
	}
	if _, err := t.conn.Write(data); err != nil {
		t.lastErr = err
		return false
	}
	return true
}

func (t *TCP) RecvMsg(timeout time.Duration) ([]byte, bool) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.lastErr = err
		return nil, false
	}
	var hdr [2]byte
	if _, err := io.ReadFull(t.conn, hdr[:]); err != nil {
		t.lastErr = err
		return nil, false
	}
	n := binary.BigEndian.Uint16(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		t.lastErr = err
		return nil, false
	}
	return buf, true
}

func (t *TCP) MTU() int { return tcpMTU }

func (t *TCP) LastError() error { return t.lastErr }

// Close releases the underlying connection.
func (t *TCP) Close() error { return t.conn.Close() }
