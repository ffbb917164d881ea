package session

import (
	"time"

	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

// fragHeader remembers a fragment chain's original submessage id/flags
// (flags with the fragment bits cleared) keyed by the delivery seq the
// reassembled payload surfaces under, so the chain can be dispatched
// once as the submessage it really was, per spec.md §4.6.
type fragHeader struct {
	ID    byte
	Flags byte
}

// handleMessage parses one received datagram's session header, then
// routes the remaining bytes to the named stream for seq admission
// before walking whatever becomes deliverable as submessages, per
// spec.md §4.6/§4.7.
func (s *Session) handleMessage(data []byte) {
	cur := wire.NewCursor(data)
	hdr, err := wire.ReadSessionHeader(cur, s.headerLong)
	if err != nil {
		s.debugf("handleMessage: truncated session header: %v", err)
		return
	}
	body := data[cur.Pos():]
	id := stream.Id(hdr.StreamID)

	switch id.Type() {
	case stream.TypeNone:
		s.dispatchSubmessages(id, body)
	case stream.TypeBestEffort:
		ib, ok := s.Storage.InputBestEffort(id)
		if !ok {
			return
		}
		if ib.Accept(seqnum.SeqNum(hdr.SeqNum)) {
			s.dispatchSubmessages(id, body)
		}
	case stream.TypeReliable:
		ir, ok := s.Storage.InputReliable(id)
		if !ok {
			return
		}
		s.handleReliableInput(id, ir, hdr.SeqNum, body)
	}
}

func (s *Session) handleReliableInput(id stream.Id, ir *stream.InputReliable, seqVal uint16, body []byte) {
	peek := wire.NewCursor(body)
	shdr, err := wire.ReadSubmessageHeader(peek)
	fragment := err == nil && shdr.Flags&(wire.FlagFragment|wire.FlagLastFragment) != 0
	lastFragment := err == nil && shdr.Flags&wire.FlagLastFragment != 0

	var data []byte
	if fragment {
		payload, perr := peek.ReadBytes(int(shdr.Length))
		if perr != nil {
			s.debugf("handleReliableInput: truncated fragment: %v", perr)
			return
		}
		data = payload
		if len(s.fragmentFirst[id]) == 0 {
			if s.fragmentFirst[id] == nil {
				s.fragmentFirst[id] = make(map[seqnum.SeqNum]fragHeader, 1)
			}
			s.fragmentFirst[id][seqnum.SeqNum(seqVal)] = fragHeader{
				ID:    shdr.ID,
				Flags: shdr.Flags &^ (wire.FlagFragment | wire.FlagLastFragment),
			}
		}
	} else {
		data = body
	}

	ir.Receive(seqnum.SeqNum(seqVal), data, fragment, lastFragment, func(deliverSeq seqnum.SeqNum, payload []byte) {
		if m := s.fragmentFirst[id]; m != nil {
			if fh, ok := m[deliverSeq]; ok {
				delete(m, deliverSeq)
				s.dispatchOne(id, fh.ID, fh.Flags, payload)
				return
			}
		}
		s.dispatchSubmessages(id, payload)
	})

	if ir.HasGap() {
		s.sendAcknackFor(id, ir)
	}
}

// dispatchSubmessages walks body as a sequence of (SubmessageHeader,
// payload) pairs, 4-byte aligned, per spec.md §4.7.
func (s *Session) dispatchSubmessages(streamID stream.Id, body []byte) {
	cur := wire.NewCursor(body)
	for cur.Remaining() > 0 {
		cur.Align4()
		if cur.Remaining() < wire.SubheaderSize {
			break
		}
		hdr, err := wire.ReadSubmessageHeader(cur)
		if err != nil {
			s.debugf("dispatchSubmessages: %v", err)
			return
		}
		payload, err := cur.ReadBytes(int(hdr.Length))
		if err != nil {
			s.debugf("dispatchSubmessages: truncated payload for id %d: %v", hdr.ID, err)
			return
		}
		s.dispatchOne(streamID, hdr.ID, hdr.Flags, payload)
	}
}

func (s *Session) dispatchOne(streamID stream.Id, submessageID, flags byte, payload []byte) {
	switch submessageID {
	case wire.SubmsgIDStatusAgent:
		if streamID != stream.None {
			return
		}
		sa, err := wire.ReadStatusAgent(wire.NewCursor(payload))
		if err != nil {
			s.debugf("dispatchOne: bad STATUS_AGENT: %v", err)
			return
		}
		s.Info.LastRequestedStatus = sa.LastRequestedStatus
		s.handshakeDone = true

	case wire.SubmsgIDStatus:
		r, err := wire.ReadBaseObjectReply(wire.NewCursor(payload))
		if err != nil {
			s.debugf("dispatchOne: bad STATUS: %v", err)
			return
		}
		if s.Callbacks.OnStatus != nil {
			s.Callbacks.OnStatus(s, r)
		}
		s.fulfillPending(r.RequestID, r.Status)

	case wire.SubmsgIDData:
		s.dispatchData(streamID, flags, payload)

	case wire.SubmsgIDHeartbeat:
		hb, err := wire.ReadHeartbeat(wire.NewCursor(payload))
		if err != nil {
			s.debugf("dispatchOne: bad HEARTBEAT: %v", err)
			return
		}
		target := stream.Id(hb.StreamID)
		ir, ok := s.Storage.InputReliable(target)
		if !ok {
			return
		}
		if ir.HandleHeartbeat(hb.FirstUnacked, hb.LastUnacked) {
			s.sendAcknackFor(target, ir)
		}

	case wire.SubmsgIDAcknack:
		ack, err := wire.ReadAcknack(wire.NewCursor(payload))
		if err != nil {
			s.debugf("dispatchOne: bad ACKNACK: %v", err)
			return
		}
		target := stream.Id(ack.StreamID)
		or, ok := s.Storage.OutputReliable(target)
		if !ok {
			return
		}
		or.HandleAcknack(ack, time.Now(), func(seq seqnum.SeqNum, data []byte) bool {
			s.Counters.OnRetransmit()
			return s.stampAndSend(byte(target), uint16(seq), data)
		})

	case wire.SubmsgIDTimestampReply:
		tr, err := wire.ReadTimestampReply(wire.NewCursor(payload))
		if err != nil {
			s.debugf("dispatchOne: bad TIMESTAMP_REPLY: %v", err)
			return
		}
		s.handleTimestampReply(tr)

	case wire.SubmsgIDPerformance:
		s.Counters.OnPerformance(payload)
		if s.Callbacks.OnPerformance != nil {
			s.Callbacks.OnPerformance(s, payload)
		}

	default:
		// Unknown id, or a submessage this client only echoes
		// (CREATE/INFO/READ_DATA/WRITE_DATA/TIMESTAMP on the
		// receiving side): skip, the length field already
		// positioned the cursor past it.
	}
}

// dispatchData implements spec.md §4.7's DATA format table. Only
// FORMAT_DATA is decoded; the reserved formats are stubbed per spec.md
// §9's explicit Open Question ("honor the length field and skip").
func (s *Session) dispatchData(streamID stream.Id, flags byte, payload []byte) {
	cur := wire.NewCursor(payload)
	req, err := wire.ReadBaseObjectRequest(cur)
	if err != nil {
		s.debugf("dispatchData: bad BaseObjectRequest: %v", err)
		return
	}
	format := flags & 0x03
	switch format {
	case wire.FormatData:
		if _, err := cur.ReadU32(); err != nil { // 4-byte offset, unused
			s.debugf("dispatchData: truncated FORMAT_DATA offset: %v", err)
			return
		}
		topicPayload, err := cur.ReadBytes(cur.Remaining())
		if err != nil {
			return
		}
		if s.Callbacks.OnTopic != nil {
			s.Callbacks.OnTopic(s, req.ObjectID, req.RequestID, streamID, topicPayload)
		}
	case wire.FormatSample, wire.FormatDataSeq, wire.FormatSampleSeq, wire.FormatPackedSamples:
		// Reserved: no-op, already consumed by the caller's length-bounded read.
	}
}
