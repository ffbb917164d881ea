package stream

import (
	"time"

	"github.com/pkg/errors"
	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/wire"
)

// ErrBadHistory is returned when history is not a power of two < 256.
var ErrBadHistory = errors.New("stream: history must be a power of two less than 256")

// ErrBufferTooSmall is returned when buf cannot hold at least one slot.
var ErrBufferTooSmall = errors.New("stream: buffer too small for one slot")

// slot is one fixed-size framed-message buffer within the history.
type slot struct {
	length    int  // bytes used, including the reserved header prefix
	fragment  bool // this slot carries a FRAGMENT/LAST_FRAGMENT flagged message
	lastFrag  bool
}

// OutputReliable is a sliding-window reliable output stream: a history
// of N slots, each holding one wire message, heartbeat-driven
// retransmission, and optional fragmentation (spec.md §3
// "OutputReliableStream", §4.3-§4.5).
type OutputReliable struct {
	buf          []byte
	headerOffset int
	slotSize     int
	history      uint16
	slots        []slot

	lastWritten seqnum.SeqNum
	lastSent    seqnum.SeqNum
	lastAcknown seqnum.SeqNum

	nextHeartbeat time.Time
	tries         int
	sendLost      bool

	maxFragment int // 0 disables fragmentation

	// OnNewFragment is invoked at each slot boundary during a
	// fragmented reservation, after that fragment's submessage header
	// has been written, with a cursor positioned at the fragment's
	// payload for the caller to fill (spec.md §4.3, §9 "Fragmentation
	// callback" — modeled as a plain field, not an extensibility
	// point, per spec.md §9's explicit guidance).
	OnNewFragment func(slotIndex int, cur *wire.Cursor)
}

func isPow2LT256(n int) bool {
	return n > 0 && n < 256 && n&(n-1) == 0
}

// NewOutputReliable partitions buf into history equal slots. initSeq
// is the seq number immediately preceding the first message this
// stream will ever write (typically the all-ones sentinel so the
// first write lands on seq 0).
func NewOutputReliable(buf []byte, history int, headerOffset, maxFragment int, initSeq seqnum.SeqNum) (*OutputReliable, error) {
	if !isPow2LT256(history) {
		return nil, ErrBadHistory
	}
	slotSize := len(buf) / history
	if slotSize <= headerOffset {
		return nil, ErrBufferTooSmall
	}
	return &OutputReliable{
		buf:          buf,
		headerOffset: headerOffset,
		slotSize:     slotSize,
		history:      uint16(history),
		slots:        make([]slot, history),
		lastWritten:  initSeq,
		lastSent:     initSeq,
		lastAcknown:  initSeq,
		maxFragment:  maxFragment,
	}, nil
}

func (s *OutputReliable) slotBuf(seq seqnum.SeqNum) []byte {
	idx := int(uint16(seq)) % len(s.slots)
	return s.buf[idx*s.slotSize : (idx+1)*s.slotSize]
}

func (s *OutputReliable) slotAt(seq seqnum.SeqNum) *slot {
	idx := int(uint16(seq)) % len(s.slots)
	return &s.slots[idx]
}

// windowFull reports whether opening one more slot would exceed history.
func (s *OutputReliable) windowFull() bool {
	used := uint16(s.lastWritten) - uint16(s.lastAcknown)
	return used >= s.history
}

// Reserve implements spec.md §4.3 for reliable streams. newMessage
// requests a fresh slot (one application-level write maps to one
// slot/seq, matching spec.md §8 Scenario C/D where four independent
// writes produce four distinct sequence numbers) rather than packing
// into whatever slot is still open; packing (newMessage=false) is
// offered for callers that want to batch multiple submessages under
// one seq, per spec.md §4.3's literal "fits within current slot"
// wording.
func (s *OutputReliable) Reserve(payloadSize int, id, flags byte, newMessage bool) (*wire.Cursor, bool) {
	need := wire.SubheaderSize + payloadSize

	if !newMessage {
		cur := s.slotBuf(s.lastWritten)
		sl := s.slotAt(s.lastWritten)
		if sl.length > 0 && sl.length+need <= len(cur) {
			c := wire.NewCursorAt(cur, sl.length)
			if err := wire.WriteSubmessageHeader(c, id, flags, uint16(payloadSize)); err == nil {
				sl.length = c.Pos() + payloadSize
				return c, true
			}
		}
	}

	capacity := s.slotSize - s.headerOffset
	if need <= capacity {
		if s.windowFull() {
			return nil, false
		}
		next := seqnum.Add(s.lastWritten, 1)
		sl := s.slotAt(next)
		*sl = slot{length: s.headerOffset}
		cur := wire.NewCursorAt(s.slotBuf(next), s.headerOffset)
		if err := wire.WriteSubmessageHeader(cur, id, flags, uint16(payloadSize)); err != nil {
			return nil, false
		}
		sl.length = cur.Pos() + payloadSize
		s.lastWritten = next
		s.resetHeartbeatTimer(time.Time{})
		return cur, true
	}

	if s.maxFragment <= 0 {
		return nil, false
	}
	return s.reserveFragmented(payloadSize, id, flags)
}

// reserveFragmented splits a submessage whose payload exceeds one
// slot's capacity across consecutive slots, flagging FRAGMENT on all
// but the last (LAST_FRAGMENT), per spec.md §4.3 step 3 / §4.6.
//
// Every fragment's submessage header is written here. The cursor
// returned covers only the first fragment's slot; OnNewFragment is
// invoked, before this method returns, at each subsequent slot
// boundary with a cursor positioned at that fragment's payload, so
// the caller fills the remaining payload bytes fragment by fragment.
func (s *OutputReliable) reserveFragmented(payloadSize int, id, flags byte) (*wire.Cursor, bool) {
	capacity := s.slotSize - s.headerOffset - wire.SubheaderSize
	if capacity <= 0 {
		return nil, false
	}
	needSlots := (payloadSize + capacity - 1) / capacity
	used := int(uint16(s.lastWritten) - uint16(s.lastAcknown))
	if used+needSlots > int(s.history) {
		return nil, false
	}

	remaining := payloadSize
	var firstCur *wire.Cursor
	seq := s.lastWritten
	for i := 0; i < needSlots; i++ {
		seq = seqnum.Add(seq, 1)
		sl := s.slotAt(seq)
		*sl = slot{length: s.headerOffset, fragment: true}
		chunk := remaining
		if chunk > capacity {
			chunk = capacity
		}
		flg := flags | wire.FlagFragment
		if i == needSlots-1 {
			flg = flags | wire.FlagLastFragment
			sl.lastFrag = true
		}
		cur := wire.NewCursorAt(s.slotBuf(seq), s.headerOffset)
		if err := wire.WriteSubmessageHeader(cur, id, flg, uint16(chunk)); err != nil {
			return nil, false
		}
		sl.length = cur.Pos() + chunk
		if i == 0 {
			firstCur = cur
		} else if s.OnNewFragment != nil {
			s.OnNewFragment(int(uint16(seq))%len(s.slots), cur)
		}
		remaining -= chunk
	}
	s.lastWritten = seq
	s.resetHeartbeatTimer(time.Time{})
	return firstCur, true
}

// Flush sends every slot in (last_sent, last_written] via send, then
// sets last_sent = last_written. Slots in (last_acknown, last_sent]
// are retained for possible NACK retransmission (spec.md §4.4).
func (s *OutputReliable) Flush(now time.Time, send func(seq seqnum.SeqNum, data []byte) bool) {
	if s.lastSent == s.lastWritten {
		return
	}
	seq := s.lastSent
	for seq != s.lastWritten {
		seq = seqnum.Add(seq, 1)
		sl := s.slotAt(seq)
		send(seq, s.slotBuf(seq)[:sl.length])
	}
	s.lastSent = s.lastWritten
	s.resetHeartbeatTimer(now)
}

func (s *OutputReliable) resetHeartbeatTimer(now time.Time) {
	// Scheduling happens in Tick relative to the period the session
	// configures; here we just mark "activity happened now" so Tick
	// can compute the next deadline from it.
	s.nextHeartbeat = now
}

// Idle reports last_acknown == last_written (spec.md §4.5 "Idle" state).
func (s *OutputReliable) Idle() bool { return s.lastAcknown == s.lastWritten }

// NextHeartbeatDeadline returns when the next heartbeat should fire,
// given period, or the zero Value if the stream is idle.
func (s *OutputReliable) NextHeartbeatDeadline(period time.Duration) time.Time {
	if s.Idle() {
		return time.Time{}
	}
	if s.nextHeartbeat.IsZero() {
		return time.Time{}
	}
	return s.nextHeartbeat.Add(period)
}

// Tick fires a heartbeat if due and the window is non-empty
// (spec.md §4.5). maxTries caps retries before entering send_lost.
func (s *OutputReliable) Tick(now time.Time, period time.Duration, maxTries int, send func(hb wire.Heartbeat)) {
	if s.Idle() {
		return
	}
	deadline := s.nextHeartbeat.Add(period)
	if s.nextHeartbeat.IsZero() || !now.Before(deadline) {
		send(wire.Heartbeat{
			FirstUnacked: uint16(seqnum.Add(s.lastAcknown, 1)),
			LastUnacked:  uint16(s.lastSent),
		})
		s.tries++
		if s.tries >= maxTries {
			s.sendLost = true
		}
		s.nextHeartbeat = now
	}
}

// SendLost reports whether MAX_HEARTBEAT_TRIES has been exhausted
// without progress (spec.md §4.5).
func (s *OutputReliable) SendLost() bool { return s.sendLost }

// HandleAcknack implements spec.md §4.5's ACKNACK handling.
func (s *OutputReliable) HandleAcknack(ack wire.Acknack, now time.Time, send func(seq seqnum.SeqNum, data []byte) bool) {
	first := seqnum.SeqNum(ack.FirstUnacked)
	oldAcknown := s.lastAcknown
	newAcknown := seqnum.Sub(first, 1)
	if seqnum.Cmp(s.lastAcknown, newAcknown) <= 0 {
		s.lastAcknown = newAcknown
	}
	advanced := s.lastAcknown != oldAcknown

	for k := uint16(0); k < 16; k++ {
		if ack.Bitmap&(1<<k) == 0 {
			continue
		}
		seq := seqnum.Add(first, k)
		if seqnum.Cmp(s.lastAcknown, seq) >= 0 {
			continue // already acked
		}
		if seqnum.Cmp(seq, s.lastWritten) > 0 {
			continue // not yet written
		}
		sl := s.slotAt(seq)
		send(seq, s.slotBuf(seq)[:sl.length])
	}

	if advanced {
		s.tries = 0
		s.sendLost = false
	}
	s.nextHeartbeat = now
}

// LastAcknown, LastSent, LastWritten expose the three cursors for
// invariant checking and for run_until_confirm_delivery.
func (s *OutputReliable) LastAcknown() seqnum.SeqNum { return s.lastAcknown }
func (s *OutputReliable) LastSent() seqnum.SeqNum    { return s.lastSent }
func (s *OutputReliable) LastWritten() seqnum.SeqNum { return s.lastWritten }

// HasUnackedData reports whether any written-but-unacked data remains
// (sent or not yet flushed),
// used by run_until_confirm_delivery (spec.md §4.8).
func (s *OutputReliable) HasUnackedData() bool { return s.lastAcknown != s.lastWritten }
