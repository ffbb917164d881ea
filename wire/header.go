package wire

// Session header sizes, per spec.md §6.
const (
	ShortHeaderSize = 4 // session_id(1) | stream_id(1) | seq_num(2)
	LongHeaderSize  = 8 // + client_key(4)
	SubheaderSize   = 4 // id(1) | flags(1) | length(2)
)

// WithClientKeyThreshold marks a session id as carrying the client key
// inline (the long header form). spec.md §4.1: "a long header (8
// bytes) when [the key] is carried inline." By convention session ids
// < 0x80 use the long form (matching spec.md §6's "Used when
// session_id < 0x80").
const WithClientKeyThreshold = 0x80

// SessionHeader is the decoded form of either header layout.
type SessionHeader struct {
	SessionID byte
	StreamID  byte
	SeqNum    uint16
	ClientKey uint32 // only meaningful when Long is true
	Long      bool
}

// HeaderSize reports the on-wire size of h's form.
func (h SessionHeader) HeaderSize() int {
	if h.Long {
		return LongHeaderSize
	}
	return ShortHeaderSize
}

// WriteSessionHeader stamps h at the start of cur's buffer (the
// caller is responsible for positioning cur at offset 0 first).
func WriteSessionHeader(cur *Cursor, h SessionHeader) error {
	if err := cur.WriteU8(h.SessionID); err != nil {
		return err
	}
	if err := cur.WriteU8(h.StreamID); err != nil {
		return err
	}
	if err := cur.WriteU16(h.SeqNum); err != nil {
		return err
	}
	if h.Long {
		if err := cur.WriteU32(h.ClientKey); err != nil {
			return err
		}
	}
	return nil
}

// ReadSessionHeader decodes a session header. long selects which
// layout the wire message used (callers determine this from the
// transport/session-id convention; see spec.md §4.1).
func ReadSessionHeader(cur *Cursor, long bool) (SessionHeader, error) {
	var h SessionHeader
	h.Long = long
	sid, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.SessionID = sid
	stid, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.StreamID = stid
	seq, err := cur.ReadU16()
	if err != nil {
		return h, err
	}
	h.SeqNum = seq
	if long {
		key, err := cur.ReadU32()
		if err != nil {
			return h, err
		}
		h.ClientKey = key
	}
	return h, nil
}

// Submessage ids, per spec.md §4.7's dispatch table.
const (
	SubmsgIDCreateClient   byte = 0x01
	SubmsgIDCreate         byte = 0x02
	SubmsgIDDelete         byte = 0x03
	SubmsgIDStatusAgent    byte = 0x04
	SubmsgIDStatus         byte = 0x05
	SubmsgIDInfo           byte = 0x06
	SubmsgIDData           byte = 0x07
	SubmsgIDReadData       byte = 0x08
	SubmsgIDWriteData      byte = 0x09
	SubmsgIDHeartbeat      byte = 0x0A
	SubmsgIDAcknack        byte = 0x0B
	SubmsgIDTimestamp      byte = 0x0C
	SubmsgIDTimestampReply byte = 0x0D
	SubmsgIDPerformance    byte = 0x0E
)

// Flags bits, per spec.md §6: "Bit 0 of flags carries endianness; bit
// 1+ carry fragment/echo/custom markers per submessage id."
const (
	FlagEndianLittle byte = 1 << 0
	FlagFragment     byte = 1 << 1
	FlagLastFragment byte = 1 << 2
	FlagEcho         byte = 1 << 3
)

// DATA submessage format ids (spec.md §9 "Polymorphism over DATA
// formats"). The session reads the format from the 2 low bits of the
// DATA flags, so only ids 0-3 can be selected that way;
// FormatPackedSamples (4) lies outside those bits.
const (
	FormatData byte = iota
	FormatSample
	FormatDataSeq
	FormatSampleSeq
	FormatPackedSamples
)

// SubmessageHeader is the 4-byte, 4-byte-aligned header preceding
// every submessage payload.
type SubmessageHeader struct {
	ID     byte
	Flags  byte
	Length uint16
}

// WriteSubmessageHeader writes id/flags/length at cur's current
// position. This is the "submessage-header writer" spec.md §2 names
// as part of the codec facade's exposed surface.
func WriteSubmessageHeader(cur *Cursor, id, flags byte, length uint16) error {
	if err := cur.WriteU8(id); err != nil {
		return err
	}
	if err := cur.WriteU8(flags); err != nil {
		return err
	}
	return cur.WriteU16(length)
}

func ReadSubmessageHeader(cur *Cursor) (SubmessageHeader, error) {
	var h SubmessageHeader
	id, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.ID = id
	flags, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.Flags = flags
	length, err := cur.ReadU16()
	if err != nil {
		return h, err
	}
	h.Length = length
	return h, nil
}
