package wire

// ObjectId kind bytes, per spec.md §6.
const (
	ObjectKindParticipant byte = iota
	ObjectKindTopic
	ObjectKindPublisher
	ObjectKindSubscriber
	ObjectKindDataWriter
	ObjectKindDataReader
	ObjectKindType
	ObjectKindQoSProfile
	ObjectKindApplication
	ObjectKindDomain
	ObjectKindAgent
	ObjectKindClient
)

// ObjectId is the 2-byte (prefix, kind) pair spec.md §6 defines.
type ObjectId struct {
	Prefix byte
	Kind   byte
}

func ReadObjectId(cur *Cursor) (ObjectId, error) {
	var o ObjectId
	p, err := cur.ReadU8()
	if err != nil {
		return o, err
	}
	k, err := cur.ReadU8()
	if err != nil {
		return o, err
	}
	return ObjectId{Prefix: p, Kind: k}, nil
}

func WriteObjectId(cur *Cursor, o ObjectId) error {
	if err := cur.WriteU8(o.Prefix); err != nil {
		return err
	}
	return cur.WriteU8(o.Kind)
}

// RequestId is the 2-byte monotonic-per-session token spec.md §6
// defines; 0 is reserved as InvalidRequestID.
type RequestId uint16

const InvalidRequestID RequestId = 0

func ReadRequestId(cur *Cursor) (RequestId, error) {
	v, err := cur.ReadU16()
	return RequestId(v), err
}

func WriteRequestId(cur *Cursor, r RequestId) error {
	return cur.WriteU16(uint16(r))
}

// Status codes carried in STATUS/STATUS_AGENT replies, per spec.md §4.1/§4.7.
const (
	StatusNone byte = iota
	StatusOK
	StatusOKMatched
	StatusErrInvalidData
	StatusErrNoSuchEntity
	StatusErrInconsistent
	StatusErrMismatch
	StatusErrResourceConstrained
	StatusErrBusy
	StatusErrSessionUnknown
	StatusErrTimeout
	StatusErrUnknown
)

// CreateClient is the handshake submessage the client sends to open a
// session (spec.md §4.1).
type CreateClient struct {
	ClientKey       uint32
	SessionID       byte
	Cookie          uint32
	ProtocolVersion uint16
	VendorID        uint16
	WallClockNanos  int64
	StreamOffset    byte // negotiated MTU-derived buffer offset hint
}

func WriteCreateClient(cur *Cursor, c CreateClient) error {
	if err := cur.WriteU32(c.ClientKey); err != nil {
		return err
	}
	if err := cur.WriteU8(c.SessionID); err != nil {
		return err
	}
	if err := cur.WriteU32(c.Cookie); err != nil {
		return err
	}
	if err := cur.WriteU16(c.ProtocolVersion); err != nil {
		return err
	}
	if err := cur.WriteU16(c.VendorID); err != nil {
		return err
	}
	if err := cur.WriteI64(c.WallClockNanos); err != nil {
		return err
	}
	return cur.WriteU8(c.StreamOffset)
}

func ReadCreateClient(cur *Cursor) (CreateClient, error) {
	var c CreateClient
	var err error
	if c.ClientKey, err = cur.ReadU32(); err != nil {
		return c, err
	}
	if c.SessionID, err = cur.ReadU8(); err != nil {
		return c, err
	}
	if c.Cookie, err = cur.ReadU32(); err != nil {
		return c, err
	}
	if c.ProtocolVersion, err = cur.ReadU16(); err != nil {
		return c, err
	}
	if c.VendorID, err = cur.ReadU16(); err != nil {
		return c, err
	}
	if c.WallClockNanos, err = cur.ReadI64(); err != nil {
		return c, err
	}
	if c.StreamOffset, err = cur.ReadU8(); err != nil {
		return c, err
	}
	return c, nil
}

// StatusAgent is the agent's reply to CREATE_CLIENT/DELETE_CLIENT
// (spec.md §4.1/§4.7's STATUS_AGENT row).
type StatusAgent struct {
	RequestID          RequestId
	LastRequestedStatus byte
	StreamOffset        byte // echoed back; confirms the negotiated offset
}

func WriteStatusAgent(cur *Cursor, s StatusAgent) error {
	if err := WriteRequestId(cur, s.RequestID); err != nil {
		return err
	}
	if err := cur.WriteU8(s.LastRequestedStatus); err != nil {
		return err
	}
	return cur.WriteU8(s.StreamOffset)
}

func ReadStatusAgent(cur *Cursor) (StatusAgent, error) {
	var s StatusAgent
	var err error
	if s.RequestID, err = ReadRequestId(cur); err != nil {
		return s, err
	}
	if s.LastRequestedStatus, err = cur.ReadU8(); err != nil {
		return s, err
	}
	if s.StreamOffset, err = cur.ReadU8(); err != nil {
		return s, err
	}
	return s, nil
}

// BaseObjectRequest accompanies CREATE/DELETE/READ_DATA/WRITE_DATA
// submessages, per spec.md §4.7.
type BaseObjectRequest struct {
	RequestID RequestId
	ObjectID  ObjectId
}

func WriteBaseObjectRequest(cur *Cursor, r BaseObjectRequest) error {
	if err := WriteRequestId(cur, r.RequestID); err != nil {
		return err
	}
	return WriteObjectId(cur, r.ObjectID)
}

func ReadBaseObjectRequest(cur *Cursor) (BaseObjectRequest, error) {
	var r BaseObjectRequest
	var err error
	if r.RequestID, err = ReadRequestId(cur); err != nil {
		return r, err
	}
	if r.ObjectID, err = ReadObjectId(cur); err != nil {
		return r, err
	}
	return r, nil
}

// BaseObjectReply accompanies STATUS submessages, per spec.md §4.7.
type BaseObjectReply struct {
	RequestID RequestId
	ObjectID  ObjectId
	Status    byte
}

func WriteBaseObjectReply(cur *Cursor, r BaseObjectReply) error {
	if err := WriteRequestId(cur, r.RequestID); err != nil {
		return err
	}
	if err := WriteObjectId(cur, r.ObjectID); err != nil {
		return err
	}
	return cur.WriteU8(r.Status)
}

func ReadBaseObjectReply(cur *Cursor) (BaseObjectReply, error) {
	var r BaseObjectReply
	var err error
	if r.RequestID, err = ReadRequestId(cur); err != nil {
		return r, err
	}
	if r.ObjectID, err = ReadObjectId(cur); err != nil {
		return r, err
	}
	if r.Status, err = cur.ReadU8(); err != nil {
		return r, err
	}
	return r, nil
}

// CreateResourcePayload accompanies a CREATE submessage: the resource
// being created, the parent it hangs off (ignored for PARTICIPANT,
// whose parent is the session itself), and an opaque representation
// blob. spec.md §9's Non-goals exclude an XML object representation,
// so Representation is carried as caller-supplied bytes rather than
// parsed/validated here.
type CreateResourcePayload struct {
	RequestID      RequestId
	ObjectID       ObjectId
	ParentID       ObjectId
	Representation []byte
}

func WriteCreateResourcePayload(cur *Cursor, c CreateResourcePayload) error {
	if err := WriteRequestId(cur, c.RequestID); err != nil {
		return err
	}
	if err := WriteObjectId(cur, c.ObjectID); err != nil {
		return err
	}
	if err := WriteObjectId(cur, c.ParentID); err != nil {
		return err
	}
	if err := cur.WriteU32(uint32(len(c.Representation))); err != nil {
		return err
	}
	return cur.WriteBytes(c.Representation)
}

func ReadCreateResourcePayload(cur *Cursor) (CreateResourcePayload, error) {
	var c CreateResourcePayload
	var err error
	if c.RequestID, err = ReadRequestId(cur); err != nil {
		return c, err
	}
	if c.ObjectID, err = ReadObjectId(cur); err != nil {
		return c, err
	}
	if c.ParentID, err = ReadObjectId(cur); err != nil {
		return c, err
	}
	n, err := cur.ReadU32()
	if err != nil {
		return c, err
	}
	if c.Representation, err = cur.ReadBytes(int(n)); err != nil {
		return c, err
	}
	return c, nil
}

// Heartbeat is the reliable-output keepalive/window-advertisement
// submessage, per spec.md §4.5.
type Heartbeat struct {
	FirstUnacked uint16
	LastUnacked  uint16
	StreamID     byte
}

func WriteHeartbeat(cur *Cursor, h Heartbeat) error {
	if err := cur.WriteU16(h.FirstUnacked); err != nil {
		return err
	}
	if err := cur.WriteU16(h.LastUnacked); err != nil {
		return err
	}
	return cur.WriteU8(h.StreamID)
}

func ReadHeartbeat(cur *Cursor) (Heartbeat, error) {
	var h Heartbeat
	var err error
	if h.FirstUnacked, err = cur.ReadU16(); err != nil {
		return h, err
	}
	if h.LastUnacked, err = cur.ReadU16(); err != nil {
		return h, err
	}
	if h.StreamID, err = cur.ReadU8(); err != nil {
		return h, err
	}
	return h, nil
}

// Acknack is the reliable-input NACK submessage carrying a 16-slot
// missing-bitmap, per spec.md §4.5/§4.6.
type Acknack struct {
	FirstUnacked uint16
	Bitmap       uint16
	StreamID     byte
}

func WriteAcknack(cur *Cursor, a Acknack) error {
	if err := cur.WriteU16(a.FirstUnacked); err != nil {
		return err
	}
	if err := cur.WriteU16(a.Bitmap); err != nil {
		return err
	}
	return cur.WriteU8(a.StreamID)
}

func ReadAcknack(cur *Cursor) (Acknack, error) {
	var a Acknack
	var err error
	if a.FirstUnacked, err = cur.ReadU16(); err != nil {
		return a, err
	}
	if a.Bitmap, err = cur.ReadU16(); err != nil {
		return a, err
	}
	if a.StreamID, err = cur.ReadU8(); err != nil {
		return a, err
	}
	return a, nil
}

// Timestamp/TimestampReply carry the time-sync exchange (spec.md §4.8).
type Timestamp struct {
	TransmitTimestamp int64
}

func WriteTimestamp(cur *Cursor, t Timestamp) error {
	return cur.WriteI64(t.TransmitTimestamp)
}

func ReadTimestamp(cur *Cursor) (Timestamp, error) {
	v, err := cur.ReadI64()
	return Timestamp{TransmitTimestamp: v}, err
}

type TimestampReply struct {
	OriginateTimestamp int64 // t0: client's original send time
	ReceiveTimestamp   int64 // t1: agent's receive time
	TransmitTimestamp  int64 // t2: agent's reply-send time
}

func WriteTimestampReply(cur *Cursor, t TimestampReply) error {
	if err := cur.WriteI64(t.OriginateTimestamp); err != nil {
		return err
	}
	if err := cur.WriteI64(t.ReceiveTimestamp); err != nil {
		return err
	}
	return cur.WriteI64(t.TransmitTimestamp)
}

func ReadTimestampReply(cur *Cursor) (TimestampReply, error) {
	var t TimestampReply
	var err error
	if t.OriginateTimestamp, err = cur.ReadI64(); err != nil {
		return t, err
	}
	if t.ReceiveTimestamp, err = cur.ReadI64(); err != nil {
		return t, err
	}
	if t.TransmitTimestamp, err = cur.ReadI64(); err != nil {
		return t, err
	}
	return t, nil
}
