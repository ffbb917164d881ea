package entity_test

import (
	"testing"

	"github.com/uxrce/client/config"
	"github.com/uxrce/client/entity"
	"github.com/uxrce/client/mocktransport"
	"github.com/uxrce/client/session"
	"github.com/uxrce/client/wire"
)

func newTestEntitySession(t *testing.T) (*entity.Session, *mocktransport.Mock) {
	t.Helper()
	tr := mocktransport.New(512)
	sess := session.New(tr, 0x81, 0, config.Default())
	buf := make([]byte, 1024)
	id, ok := sess.CreateOutputReliableStream(buf, 8, 512)
	if !ok {
		t.Fatal("CreateOutputReliableStream failed")
	}
	return entity.New(sess, id), tr
}

func TestCreateParticipantSendsCreateSubmessage(t *testing.T) {
	e, tr := newTestEntitySession(t)

	id, reqID, ok := e.CreateParticipant([]byte("participant"))
	if !ok {
		t.Fatal("CreateParticipant failed")
	}
	if id.Kind != wire.ObjectKindParticipant {
		t.Errorf("kind = %d, want ObjectKindParticipant", id.Kind)
	}
	if reqID == wire.InvalidRequestID {
		t.Error("reqID should not be InvalidRequestID")
	}

	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("want 1 message sent, got %d", len(sent))
	}
	hdr, err := wire.ReadSessionHeader(wire.NewCursor(sent[0]), false)
	if err != nil {
		t.Fatal(err)
	}
	body := sent[0][hdr.HeaderSize():]
	shdr, err := wire.ReadSubmessageHeader(wire.NewCursor(body))
	if err != nil {
		t.Fatal(err)
	}
	if shdr.ID != wire.SubmsgIDCreate {
		t.Errorf("submessage id = %d, want SubmsgIDCreate", shdr.ID)
	}
	payload, err := wire.ReadCreateResourcePayload(wire.NewCursor(body[wire.SubheaderSize:]))
	if err != nil {
		t.Fatal(err)
	}
	if payload.ObjectID != id || string(payload.Representation) != "participant" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestCreateTopicUnderParticipant(t *testing.T) {
	e, _ := newTestEntitySession(t)

	participant, _, ok := e.CreateParticipant([]byte("p"))
	if !ok {
		t.Fatal("CreateParticipant failed")
	}
	topic, _, ok := e.CreateTopic(participant, []byte("ShapeType"))
	if !ok {
		t.Fatal("CreateTopic failed")
	}
	if topic.Kind != wire.ObjectKindTopic {
		t.Errorf("kind = %d, want ObjectKindTopic", topic.Kind)
	}
	if topic.Prefix == participant.Prefix {
		t.Error("topic and participant should get distinct ids")
	}
}

func TestWriteDataEncodesFormatData(t *testing.T) {
	e, tr := newTestEntitySession(t)

	writerID := wire.ObjectId{Prefix: 5, Kind: wire.ObjectKindDataWriter}
	payload := []byte{1, 2, 3, 4}
	if _, ok := e.WriteData(writerID, payload); !ok {
		t.Fatal("WriteData failed")
	}

	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("want 1 message sent, got %d", len(sent))
	}
	hdr, err := wire.ReadSessionHeader(wire.NewCursor(sent[0]), false)
	if err != nil {
		t.Fatal(err)
	}
	body := sent[0][hdr.HeaderSize():]
	shdr, err := wire.ReadSubmessageHeader(wire.NewCursor(body))
	if err != nil {
		t.Fatal(err)
	}
	if shdr.ID != wire.SubmsgIDData || shdr.Flags != wire.FormatData {
		t.Errorf("header = %+v", shdr)
	}
	cur := wire.NewCursor(body[wire.SubheaderSize:])
	req, err := wire.ReadBaseObjectRequest(cur)
	if err != nil {
		t.Fatal(err)
	}
	if req.ObjectID != writerID {
		t.Errorf("object id = %+v, want %+v", req.ObjectID, writerID)
	}
	if _, err := cur.ReadU32(); err != nil {
		t.Fatal(err)
	}
	got, err := cur.ReadBytes(cur.Remaining())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %v, want %v", got, payload)
	}
}

func TestDeleteEncodesBaseObjectRequest(t *testing.T) {
	e, tr := newTestEntitySession(t)

	participant, _, ok := e.CreateParticipant(nil)
	if !ok {
		t.Fatal("CreateParticipant failed")
	}
	if _, ok := e.Delete(participant); !ok {
		t.Fatal("Delete failed")
	}

	sent := tr.Sent()
	if len(sent) != 2 {
		t.Fatalf("want 2 messages sent, got %d", len(sent))
	}
	hdr, err := wire.ReadSessionHeader(wire.NewCursor(sent[1]), false)
	if err != nil {
		t.Fatal(err)
	}
	body := sent[1][hdr.HeaderSize():]
	shdr, err := wire.ReadSubmessageHeader(wire.NewCursor(body))
	if err != nil {
		t.Fatal(err)
	}
	if shdr.ID != wire.SubmsgIDDelete {
		t.Errorf("submessage id = %d, want SubmsgIDDelete", shdr.ID)
	}
	req, err := wire.ReadBaseObjectRequest(wire.NewCursor(body[wire.SubheaderSize:]))
	if err != nil {
		t.Fatal(err)
	}
	if req.ObjectID != participant {
		t.Errorf("object id = %+v, want %+v", req.ObjectID, participant)
	}
}
