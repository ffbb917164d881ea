package stream

import "github.com/uxrce/client/seqnum"

// InputReliable reorders incoming reliable messages into a history of
// N slots, tracks what the last heartbeat promised, and reassembles
// fragments across consecutive slots (spec.md §3 "InputReliableStream",
// §4.6).
type InputReliable struct {
	buf      []byte
	slotSize int
	history  uint16
	present  []bool
	length   []int
	fragment []bool
	lastFrag []bool

	lastHandled   seqnum.SeqNum
	lastAnnounced seqnum.SeqNum

	// fragment reassembly in progress, accumulated across consecutive
	// per-seq delivery steps (spec.md §4.6).
	reassembling bool
	reassembly   []byte
	reassemStart seqnum.SeqNum
}

func NewInputReliable(buf []byte, history int, initSeq seqnum.SeqNum) (*InputReliable, error) {
	if !isPow2LT256(history) {
		return nil, ErrBadHistory
	}
	slotSize := len(buf) / history
	if slotSize <= 0 {
		return nil, ErrBufferTooSmall
	}
	return &InputReliable{
		buf:           buf,
		slotSize:      slotSize,
		history:       uint16(history),
		present:       make([]bool, history),
		length:        make([]int, history),
		fragment:      make([]bool, history),
		lastFrag:      make([]bool, history),
		lastHandled:   initSeq,
		lastAnnounced: initSeq,
	}, nil
}

func (s *InputReliable) idx(seq seqnum.SeqNum) int { return int(uint16(seq)) % len(s.present) }

func (s *InputReliable) store(seq seqnum.SeqNum, data []byte, fragment, lastFragment bool) {
	i := s.idx(seq)
	copy(s.buf[i*s.slotSize:], data)
	s.present[i] = true
	s.length[i] = len(data)
	s.fragment[i] = fragment
	s.lastFrag[i] = lastFragment
}

func (s *InputReliable) bytesAt(seq seqnum.SeqNum) []byte {
	i := s.idx(seq)
	return s.buf[i*s.slotSize : i*s.slotSize+s.length[i]]
}

// Receive implements spec.md §4.6: duplicates and out-of-window seqs
// are dropped; an in-order arrival is delivered immediately and drains
// any subsequent contiguous buffered slots; everything else is stored
// for later draining.
func (s *InputReliable) Receive(seq seqnum.SeqNum, data []byte, fragment, lastFragment bool, deliver func(seq seqnum.SeqNum, payload []byte)) {
	if seqnum.Cmp(s.lastHandled, seq) >= 0 {
		return // duplicate
	}
	if !seqnum.InWindow(s.lastHandled, seq, s.history) {
		return // out of window
	}

	if seq == seqnum.Add(s.lastHandled, 1) {
		s.deliverOne(seq, data, fragment, lastFragment, deliver)
		s.lastHandled = seq
		for {
			next := seqnum.Add(s.lastHandled, 1)
			i := s.idx(next)
			if !s.present[i] {
				break
			}
			s.deliverOne(next, s.bytesAt(next), s.fragment[i], s.lastFrag[i], deliver)
			s.present[i] = false
			s.lastHandled = next
		}
		return
	}

	s.store(seq, data, fragment, lastFragment)
}

// deliverOne feeds a single in-order seq's bytes into the fragment
// reassembler, invoking deliver exactly once per logical message: on
// every non-fragmented seq, and once a LAST_FRAGMENT seq completes a
// chain (spec.md §4.6 "the reassembled view is exposed as a single
// continuous cursor to the payload parser").
func (s *InputReliable) deliverOne(seq seqnum.SeqNum, data []byte, fragment, lastFragment bool, deliver func(seq seqnum.SeqNum, payload []byte)) {
	if !fragment {
		deliver(seq, data)
		return
	}
	if !s.reassembling {
		s.reassembling = true
		s.reassembly = nil
		s.reassemStart = seq
	}
	s.reassembly = append(s.reassembly, data...)
	if lastFragment {
		deliver(s.reassemStart, s.reassembly)
		s.reassembling = false
		s.reassembly = nil
	}
}

// HandleHeartbeat implements spec.md §4.6's heartbeat handling: raise
// last_announced, and report whether an ACKNACK is now owed because a
// slot in (last_handled, last_announced] is missing.
func (s *InputReliable) HandleHeartbeat(firstUnacked, lastUnacked uint16) (needAcknack bool) {
	s.lastAnnounced = seqnum.SeqNum(lastUnacked)
	return s.HasGap()
}

// HasGap reports whether any slot in (last_handled, last_announced]
// is missing.
func (s *InputReliable) HasGap() bool {
	seq := s.lastHandled
	for seqnum.Cmp(seq, s.lastAnnounced) < 0 {
		seq = seqnum.Add(seq, 1)
		if !s.present[s.idx(seq)] {
			return true
		}
	}
	return false
}

// BuildAcknackBitmap returns the 16-bit bitmap spec.md §4.6 describes:
// bit k set iff slot (last_handled + 1 + k) mod history is not present.
func (s *InputReliable) BuildAcknackBitmap() uint16 {
	var bitmap uint16
	for k := uint16(0); k < 16; k++ {
		seq := seqnum.Add(s.lastHandled, k+1)
		if !s.present[s.idx(seq)] {
			bitmap |= 1 << k
		}
	}
	return bitmap
}

func (s *InputReliable) LastHandled() seqnum.SeqNum   { return s.lastHandled }
func (s *InputReliable) LastAnnounced() seqnum.SeqNum { return s.lastAnnounced }
