package stream

import (
	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/wire"
)

// OutputBestEffort is an at-most-once, monotone output stream: one
// buffer, fire-and-forget (spec.md §3 "OutputBestEffortStream",
// §4.3-§4.4).
type OutputBestEffort struct {
	buf          []byte
	headerOffset int
	cursor       int // current write position
	lastSend     seqnum.SeqNum
	pending      bool // buffer holds unflushed content
}

// NewOutputBestEffort reserves buf's first headerOffset bytes for the
// session header stamped at flush time (spec.md §4.2).
func NewOutputBestEffort(buf []byte, headerOffset int) *OutputBestEffort {
	return &OutputBestEffort{buf: buf, headerOffset: headerOffset, cursor: headerOffset}
}

// Reserve implements spec.md §4.3 step 2 for best-effort streams: if
// the buffer already holds a message, the caller is expected to have
// flushed already (this method does not implicitly flush — the
// session drives that, since only it can reach the transport).
func (s *OutputBestEffort) Reserve(payloadSize int, id, flags byte) (*wire.Cursor, bool) {
	need := wire.SubheaderSize + payloadSize
	if s.cursor+need > len(s.buf) {
		return nil, false
	}
	cur := wire.NewCursorAt(s.buf, s.cursor)
	if err := wire.WriteSubmessageHeader(cur, id, flags, uint16(payloadSize)); err != nil {
		return nil, false
	}
	s.cursor = cur.Pos() + payloadSize
	s.pending = true
	return cur, true
}

// HasPending reports whether a buffer is waiting to be flushed.
func (s *OutputBestEffort) HasPending() bool { return s.pending }

// Flush returns the buffered byte range (header prefix included) and
// last_send as its seq, then increments last_send. The caller stamps
// the session header into the prefix before sending. The cursor
// resets to the post-header offset (spec.md §3 invariant).
func (s *OutputBestEffort) Flush() (payload []byte, seq seqnum.SeqNum, ok bool) {
	if !s.pending {
		return nil, 0, false
	}
	seq = s.lastSend
	payload = s.buf[:s.cursor]
	s.lastSend = seqnum.Add(s.lastSend, 1)
	s.cursor = s.headerOffset
	s.pending = false
	return payload, seq, true
}

// HeaderOffset reports how many leading bytes of the buffer are
// reserved for the session header, [0:headerOffset).
func (s *OutputBestEffort) HeaderOffset() int { return s.headerOffset }
