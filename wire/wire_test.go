package wire

import "testing"

func TestSubmessageHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, SubheaderSize)
	cur := NewCursor(buf)
	want := SubmessageHeader{ID: SubmsgIDHeartbeat, Flags: FlagEndianLittle, Length: 5}
	if err := WriteSubmessageHeader(cur, want.ID, want.Flags, want.Length); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSubmessageHeader(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSessionHeaderRoundTripShort(t *testing.T) {
	buf := make([]byte, ShortHeaderSize)
	want := SessionHeader{SessionID: 0x81, StreamID: 0x01, SeqNum: 1234}
	if err := WriteSessionHeader(NewCursor(buf), want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSessionHeader(NewCursor(buf), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSessionHeaderRoundTripLong(t *testing.T) {
	buf := make([]byte, LongHeaderSize)
	want := SessionHeader{SessionID: 0x01, StreamID: 0x80, SeqNum: 7, ClientKey: 0xdeadbeef, Long: true}
	if err := WriteSessionHeader(NewCursor(buf), want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSessionHeader(NewCursor(buf), true)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCreateClientRoundTrip(t *testing.T) {
	want := CreateClient{
		ClientKey: 42, SessionID: 0x81, Cookie: 0x5a5a5a5a,
		ProtocolVersion: 0x0103, VendorID: 0x01bf, WallClockNanos: 1234567890, StreamOffset: 4,
	}
	buf := make([]byte, 64)
	cur := NewCursor(buf)
	if err := WriteCreateClient(cur, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCreateClient(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStatusAgentRoundTrip(t *testing.T) {
	want := StatusAgent{RequestID: 7, LastRequestedStatus: StatusOK, StreamOffset: 4}
	buf := make([]byte, 16)
	cur := NewCursor(buf)
	if err := WriteStatusAgent(cur, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadStatusAgent(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	want := Heartbeat{FirstUnacked: 1, LastUnacked: 9, StreamID: 0x80}
	buf := make([]byte, 16)
	cur := NewCursor(buf)
	if err := WriteHeartbeat(cur, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadHeartbeat(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCreateResourcePayloadRoundTrip(t *testing.T) {
	want := CreateResourcePayload{
		RequestID:      3,
		ObjectID:       ObjectId{Prefix: 2, Kind: ObjectKindTopic},
		ParentID:       ObjectId{Prefix: 1, Kind: ObjectKindParticipant},
		Representation: []byte("ShapeType"),
	}
	buf := make([]byte, 64)
	cur := NewCursor(buf)
	if err := WriteCreateResourcePayload(cur, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCreateResourcePayload(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got.RequestID != want.RequestID || got.ObjectID != want.ObjectID || got.ParentID != want.ParentID || string(got.Representation) != string(want.Representation) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAcknackRoundTrip(t *testing.T) {
	want := Acknack{FirstUnacked: 1, Bitmap: 0b0000_0100_0000_0000, StreamID: 0x80}
	buf := make([]byte, 16)
	cur := NewCursor(buf)
	if err := WriteAcknack(cur, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAcknack(NewCursor(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTruncatedReadsFail(t *testing.T) {
	buf := make([]byte, 2)
	cur := NewCursor(buf)
	if _, err := ReadHeartbeat(cur); err == nil {
		t.Error("expected truncation error")
	}
}

func TestAlign4(t *testing.T) {
	buf := make([]byte, 16)
	cur := NewCursor(buf)
	cur.Skip(3)
	cur.Align4()
	if cur.Pos() != 4 {
		t.Errorf("Align4 from 3 = %d, want 4", cur.Pos())
	}
	cur2 := NewCursor(buf)
	cur2.Skip(4)
	cur2.Align4()
	if cur2.Pos() != 4 {
		t.Errorf("Align4 from 4 = %d, want 4 (already aligned)", cur2.Pos())
	}
}
