package session_test

import (
	"testing"
	"time"

	"github.com/uxrce/client/config"
	"github.com/uxrce/client/mocktransport"
	"github.com/uxrce/client/session"
	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.MinSessionConnectionIntervalMS = 5
	cfg.HeartbeatPeriodMS = 5
	cfg.MaxSessionConnectionAttempts = 3
	cfg.MaxHeartbeatTries = 3
	return cfg
}

func statusAgentReply(t *testing.T, long bool, sessionID byte) []byte {
	t.Helper()
	hdrSize := wire.ShortHeaderSize
	if long {
		hdrSize = wire.LongHeaderSize
	}
	buf := make([]byte, hdrSize+wire.SubheaderSize+4)
	cur := wire.NewCursor(buf)
	if err := wire.WriteSessionHeader(cur, wire.SessionHeader{SessionID: sessionID, StreamID: byte(stream.None), SeqNum: 0, Long: long}); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteSubmessageHeader(cur, wire.SubmsgIDStatusAgent, wire.FlagEndianLittle, 4); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteStatusAgent(cur, wire.StatusAgent{RequestID: 1, LastRequestedStatus: wire.StatusOK, StreamOffset: byte(hdrSize)}); err != nil {
		t.Fatal(err)
	}
	return buf
}

// TestCreateSessionHandshake covers spec.md §8 Scenario A: a
// CREATE_CLIENT that gets a prompt STATUS_AGENT(OK) reply succeeds on
// the first attempt.
func TestCreateSessionHandshake(t *testing.T) {
	tr := mocktransport.New(512)
	s := session.New(tr, 0x01, 0xCAFEBABE, fastConfig())

	tr.Push(statusAgentReply(t, true, 0x01))

	if !s.CreateSession() {
		t.Fatal("CreateSession: want success")
	}
	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("want 1 CREATE_CLIENT sent, got %d", len(sent))
	}
}

// TestCreateSessionRetriesOnTimeout covers the exponential-backoff
// retry path: the reply is pushed after the first two attempts' 5ms and
// 10ms windows have expired, so it arrives during the third attempt.
func TestCreateSessionRetriesOnTimeout(t *testing.T) {
	tr := mocktransport.New(512)
	s := session.New(tr, 0x01, 1, fastConfig())

	go func() {
		time.Sleep(20 * time.Millisecond)
		tr.Push(statusAgentReply(t, true, 0x01))
	}()

	if !s.CreateSession() {
		t.Fatal("CreateSession: want eventual success")
	}
}

// TestBestEffortOutputFlushSendsOnTransport exercises
// PrepareStreamToWriteSubmessage + FlushOutputStreams end to end
// through a real Session, per spec.md §4.3/§4.4.
func TestBestEffortOutputFlushSendsOnTransport(t *testing.T) {
	tr := mocktransport.New(512)
	s := session.New(tr, 0x81, 0, fastConfig())

	buf := make([]byte, 256)
	id, ok := s.CreateOutputBestEffortStream(buf)
	if !ok {
		t.Fatal("CreateOutputBestEffortStream failed")
	}

	cur, ok := s.PrepareStreamToWriteSubmessage(id, 4, wire.SubmsgIDData, wire.FormatData)
	if !ok {
		t.Fatal("PrepareStreamToWriteSubmessage failed")
	}
	if err := cur.WriteU32(0xAABBCCDD); err != nil {
		t.Fatal(err)
	}
	s.FlushOutputStreams()

	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("want 1 message sent, got %d", len(sent))
	}
	hdr, err := wire.ReadSessionHeader(wire.NewCursor(sent[0]), false)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.StreamID != byte(id) {
		t.Errorf("stream id = %d, want %d", hdr.StreamID, id)
	}
}

// TestHandleMessageDispatchesStatus covers spec.md §4.7's STATUS
// dispatch path firing Callbacks.OnStatus.
func TestHandleMessageDispatchesStatus(t *testing.T) {
	tr := mocktransport.New(512)
	s := session.New(tr, 0x81, 0, fastConfig())

	var got wire.BaseObjectReply
	s.Callbacks.OnStatus = func(_ *session.Session, reply wire.BaseObjectReply) {
		got = reply
	}

	buf := make([]byte, wire.ShortHeaderSize+wire.SubheaderSize+5)
	cur := wire.NewCursor(buf)
	if err := wire.WriteSessionHeader(cur, wire.SessionHeader{SessionID: 0x81, StreamID: byte(stream.None), SeqNum: 0}); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteSubmessageHeader(cur, wire.SubmsgIDStatus, wire.FlagEndianLittle, 5); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteBaseObjectReply(cur, wire.BaseObjectReply{
		RequestID: 9,
		ObjectID:  wire.ObjectId{Prefix: 1, Kind: wire.ObjectKindTopic},
		Status:    wire.StatusOK,
	}); err != nil {
		t.Fatal(err)
	}

	tr.Push(buf)
	s.RunUntilTimeout(20)

	if got.RequestID != 9 || got.Status != wire.StatusOK {
		t.Errorf("OnStatus got %+v", got)
	}
}
