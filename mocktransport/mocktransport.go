// Package mocktransport is a test-only Transport that lets a test
// script drive both sides of a session: queue bytes to be "received"
// and record what was "sent". Grounded on the way kcptun's own tests
// and generic.Mux/Stream interfaces treat *smux.Session and its
// streams as substitutable io.ReadWriteCloser fakes rather than real
// sockets (see SPEC_FULL.md's AMBIENT STACK test-tooling section).
package mocktransport

import (
	"sync"
	"time"
)

// Mock is a Transport double. Sent records every SendMsg call in
// order; Inbound is a queue RecvMsg drains from, FIFO, returning
// false once empty until more is queued via Push.
type Mock struct {
	mu      sync.Mutex
	sent    [][]byte
	inbound [][]byte
	mtu     int
	sendOK  func([]byte) bool // optional hook to simulate drops
	lastErr error
}

// New returns a Mock with the given mtu. A nil sendOK always succeeds.
func New(mtu int) *Mock {
	return &Mock{mtu: mtu}
}

// Push enqueues data to be returned by a future RecvMsg call.
func (m *Mock) Push(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.inbound = append(m.inbound, cp)
}

// Sent returns every message handed to SendMsg so far, in order.
func (m *Mock) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// DropAll makes every future SendMsg report success without recording
// the bytes as deliverable to the peer — used for Scenario F (silent
// transport drop under heartbeat exhaustion).
func (m *Mock) DropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendOK = func([]byte) bool { return true }
}

func (m *Mock) SendMsg(data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	if m.sendOK != nil {
		return m.sendOK(cp)
	}
	m.sent = append(m.sent, cp)
	return true
}

func (m *Mock) RecvMsg(timeout time.Duration) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return nil, false
	}
	data := m.inbound[0]
	m.inbound = m.inbound[1:]
	return data, true
}

func (m *Mock) MTU() int { return m.mtu }

func (m *Mock) LastError() error { return m.lastErr }
