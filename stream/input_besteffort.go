package stream

import "github.com/uxrce/client/seqnum"

// InputBestEffort accepts a message only if its seq is newer than the
// last one handled (spec.md §3 "InputBestEffortStream").
type InputBestEffort struct {
	lastHandled seqnum.SeqNum
	hasHandled  bool
}

func NewInputBestEffort() *InputBestEffort {
	return &InputBestEffort{}
}

// Accept reports whether seq should be delivered, and if so records it
// as the new last_handled.
func (s *InputBestEffort) Accept(seq seqnum.SeqNum) bool {
	if !s.hasHandled {
		s.hasHandled = true
		s.lastHandled = seq
		return true
	}
	if seqnum.Cmp(s.lastHandled, seq) < 0 {
		s.lastHandled = seq
		return true
	}
	return false
}
