// Package transport supplies the byte-transport capability the session
// layer consumes, per spec.md §6: "send_msg(bytes) -> bool,
// recv_msg(timeout_ms) -> Option<bytes>, a mtu constant, and an opaque
// last_error." The session package never reaches below this interface.
package transport

import "time"

// Transport is the pluggable capability a Session sends/receives
// framed messages through. Implementations never block past the
// caller-supplied deadline in RecvMsg (spec.md §5 "suspension points").
type Transport interface {
	// SendMsg hands one framed message to the wire. A false return
	// means the transport could not enqueue it; the session surfaces
	// this through its debug hook and recovers on the next
	// heartbeat/flush cycle (spec.md §7).
	SendMsg(data []byte) bool

	// RecvMsg blocks for at most timeout for one message. ok is false
	// on timeout or transport error, never a panic.
	RecvMsg(timeout time.Duration) (data []byte, ok bool)

	// MTU is the largest message this transport can carry whole.
	MTU() int

	// LastError returns the most recent I/O error observed, or nil.
	LastError() error
}
