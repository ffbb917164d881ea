package session

import (
	"time"

	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

// PrepareStreamToWriteSubmessage is the single entry point for
// encoders, per spec.md §4.3. A nil cursor with ok=false means "no
// room" (flow control); the caller retries after a run_until_* or
// after FlushOutputStreams.
func (s *Session) PrepareStreamToWriteSubmessage(id stream.Id, payloadSize int, submessageID, flags byte) (*wire.Cursor, bool) {
	switch id.Type() {
	case stream.TypeBestEffort:
		ob, ok := s.Storage.OutputBestEffort(id)
		if !ok {
			return nil, false
		}
		if ob.HasPending() {
			s.flushBestEffort(id, ob)
		}
		return ob.Reserve(payloadSize, submessageID, flags)
	case stream.TypeReliable:
		or, ok := s.Storage.OutputReliable(id)
		if !ok {
			return nil, false
		}
		return or.Reserve(payloadSize, submessageID, flags, true)
	default:
		return nil, false
	}
}

// FlushOutputStreams implements spec.md §4.4: stamp every pending
// output with its session header and hand it to the transport.
func (s *Session) FlushOutputStreams() {
	s.Storage.ForEachOutputBestEffort(func(id stream.Id, ob *stream.OutputBestEffort) {
		if ob.HasPending() {
			s.flushBestEffort(id, ob)
		}
	})
	s.Storage.ForEachOutputReliable(func(id stream.Id, or *stream.OutputReliable) {
		or.Flush(time.Now(), func(seq seqnum.SeqNum, data []byte) bool {
			return s.stampAndSend(byte(id), uint16(seq), data)
		})
	})
}

func (s *Session) flushBestEffort(id stream.Id, ob *stream.OutputBestEffort) {
	payload, seq, ok := ob.Flush()
	if !ok {
		return
	}
	s.stampAndSend(byte(id), uint16(seq), payload)
}

// stampAndSend writes the session header into data's reserved leading
// HeaderOffset() bytes, then hands the whole slice to the transport.
func (s *Session) stampAndSend(streamID byte, seq uint16, data []byte) bool {
	hdr := s.sessionHeader(streamID, seq)
	cur := wire.NewCursorAt(data, 0)
	if err := wire.WriteSessionHeader(cur, hdr); err != nil {
		s.debugf("stamp session header: %v", err)
		return false
	}
	ok := s.Transport.SendMsg(data)
	if ok {
		s.Counters.OnSend(len(data))
	} else {
		s.debugf("send_msg failed: %v", s.Transport.LastError())
	}
	return ok
}
