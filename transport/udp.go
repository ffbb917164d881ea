package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// udpMTU is spec.md §6's "UDP (datagram MTU 512)".
const udpMTU = 512

// UDP is a bare connected-UDP Transport, grounded on kcptun's
// client/dial.go net.Dial* usage for its local/remote addressing
// shape, simplified to one datagram socket per session.
type UDP struct {
	conn    *net.UDPConn
	lastErr error
}

// DialUDP connects to raddr over UDP.
func DialUDP(raddr string) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", raddr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: resolve udp addr")
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial udp")
	}
	return &UDP{conn: conn}, nil
}

func (t *UDP) SendMsg(data []byte) bool {
	if _, err := t.conn.Write(data); err != nil {
		t.lastErr = err
		return false
	}
	return true
}

func (t *UDP) RecvMsg(timeout time.Duration) ([]byte, bool) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.lastErr = err
		return nil, false
	}
	buf := make([]byte, udpMTU)
	n, err := t.conn.Read(buf)
	if err != nil {
		t.lastErr = err
		return nil, false
	}
	return buf[:n], true
}

func (t *UDP) MTU() int { return udpMTU }

func (t *UDP) LastError() error { return t.lastErr }

// Close releases the underlying socket.
func (t *UDP) Close() error { return t.conn.Close() }
