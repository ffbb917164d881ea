// Package entity is the thin DDS-entity creation API spec.md §1 calls
// out as an external collaborator: CreateParticipant/CreateTopic/...
// and a single Delete for any of them, plus WriteData/ReadData, built
// directly on top of a *session.Session the way
// original_source/include/micrortps/client/client.h's create_* family
// sits on top of ClientState — a thin wrapper around the mux, per
// client/dial.go's "thin wrapper" idiom.
package entity

import (
	"github.com/uxrce/client/session"
	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

// Session adds entity-id bookkeeping on top of a protocol Session: a
// monotonic Prefix allocator for ObjectId, matching the original's
// resource_id return values from create_participant/create_topic/etc.
type Session struct {
	*session.Session

	streamID stream.Id
	nextID   byte
}

// New wraps s, sending CREATE/DELETE/WRITE_DATA/READ_DATA submessages
// on the reliable stream id (the caller creates and registers
// beforehand, per spec.md §4.2 — entity never allocates streams
// itself).
func New(s *session.Session, controlStream stream.Id) *Session {
	return &Session{Session: s, streamID: controlStream}
}

func (s *Session) allocID(kind byte) wire.ObjectId {
	s.nextID++
	return wire.ObjectId{Prefix: s.nextID, Kind: kind}
}

func (s *Session) createResource(kind byte, parent wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	id := s.allocID(kind)
	req := s.nextRequestOf(id, parent, representation)
	payloadSize := requestIDSize + objectIDSize + objectIDSize + 4 + len(representation)
	cur, ok := s.PrepareStreamToWriteSubmessage(s.streamID, payloadSize, wire.SubmsgIDCreate, wire.FlagEndianLittle)
	if !ok {
		return id, 0, false
	}
	if err := wire.WriteCreateResourcePayload(cur, req); err != nil {
		return id, 0, false
	}
	s.FlushOutputStreams()
	return id, req.RequestID, true
}

func (s *Session) nextRequestOf(id, parent wire.ObjectId, representation []byte) wire.CreateResourcePayload {
	return wire.CreateResourcePayload{
		RequestID:      s.NextRequestID(),
		ObjectID:       id,
		ParentID:       parent,
		Representation: representation,
	}
}

const (
	requestIDSize = 2
	objectIDSize  = 2
)

// CreateParticipant creates a DDS participant; it has no parent object
// (the session itself is its owner).
func (s *Session) CreateParticipant(representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindParticipant, wire.ObjectId{}, representation)
}

// CreateTopic creates a topic under participant.
func (s *Session) CreateTopic(participant wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindTopic, participant, representation)
}

// CreatePublisher creates a publisher under participant.
func (s *Session) CreatePublisher(participant wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindPublisher, participant, representation)
}

// CreateSubscriber creates a subscriber under participant.
func (s *Session) CreateSubscriber(participant wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindSubscriber, participant, representation)
}

// CreateDataWriter creates a data writer under publisher.
func (s *Session) CreateDataWriter(publisher wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindDataWriter, publisher, representation)
}

// CreateDataReader creates a data reader under subscriber.
func (s *Session) CreateDataReader(subscriber wire.ObjectId, representation []byte) (wire.ObjectId, wire.RequestId, bool) {
	return s.createResource(wire.ObjectKindDataReader, subscriber, representation)
}

// Delete tears down any resource id this session created.
func (s *Session) Delete(id wire.ObjectId) (wire.RequestId, bool) {
	req := wire.BaseObjectRequest{RequestID: s.NextRequestID(), ObjectID: id}
	cur, ok := s.PrepareStreamToWriteSubmessage(s.streamID, requestIDSize+objectIDSize, wire.SubmsgIDDelete, wire.FlagEndianLittle)
	if !ok {
		return 0, false
	}
	if err := wire.WriteBaseObjectRequest(cur, req); err != nil {
		return 0, false
	}
	s.FlushOutputStreams()
	return req.RequestID, true
}

// WriteData publishes payload through dataWriter in FORMAT_DATA form,
// per spec.md §4.7's DATA format table.
func (s *Session) WriteData(dataWriter wire.ObjectId, payload []byte) (wire.RequestId, bool) {
	req := wire.BaseObjectRequest{RequestID: s.NextRequestID(), ObjectID: dataWriter}
	payloadSize := requestIDSize + objectIDSize + 4 + len(payload)
	cur, ok := s.PrepareStreamToWriteSubmessage(s.streamID, payloadSize, wire.SubmsgIDData, wire.FormatData)
	if !ok {
		return 0, false
	}
	if err := wire.WriteBaseObjectRequest(cur, req); err != nil {
		return 0, false
	}
	if err := cur.WriteU32(0); err != nil { // reserved offset, unused on write
		return 0, false
	}
	if err := cur.WriteBytes(payload); err != nil {
		return 0, false
	}
	s.FlushOutputStreams()
	return req.RequestID, true
}

// ReadData requests a read from dataReader; the payload itself
// arrives later as a DATA submessage dispatched to Callbacks.OnTopic.
func (s *Session) ReadData(dataReader wire.ObjectId) (wire.RequestId, bool) {
	req := wire.BaseObjectRequest{RequestID: s.NextRequestID(), ObjectID: dataReader}
	cur, ok := s.PrepareStreamToWriteSubmessage(s.streamID, requestIDSize+objectIDSize, wire.SubmsgIDReadData, wire.FlagEndianLittle)
	if !ok {
		return 0, false
	}
	if err := wire.WriteBaseObjectRequest(cur, req); err != nil {
		return 0, false
	}
	s.FlushOutputStreams()
	return req.RequestID, true
}
