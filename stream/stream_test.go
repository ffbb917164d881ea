package stream

import (
	"testing"
	"time"

	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/wire"
)

func TestStreamIdPacking(t *testing.T) {
	id := NewId(TypeReliable, 5)
	if id.Type() != TypeReliable || id.Index() != 5 {
		t.Fatalf("got type=%v index=%d", id.Type(), id.Index())
	}
	if id < NewId(TypeBestEffort, 0) {
		t.Error("reliable streams should occupy the upper half of the id space")
	}
}

func TestOutputBestEffortFlushAdvancesSeq(t *testing.T) {
	buf := make([]byte, 128)
	s := NewOutputBestEffort(buf, 4)
	cur, ok := s.Reserve(22, 0x09, 0)
	if !ok {
		t.Fatal("reserve failed")
	}
	cur.WriteBytes(make([]byte, 22))
	payload, seq, ok := s.Flush()
	if !ok || seq != 0 {
		t.Fatalf("flush: ok=%v seq=%d", ok, seq)
	}
	if len(payload) != 4+wire.SubheaderSize+22 {
		t.Errorf("payload len = %d", len(payload))
	}

	cur, ok = s.Reserve(22, 0x09, 0)
	if !ok {
		t.Fatal("second reserve failed")
	}
	cur.WriteBytes(make([]byte, 22))
	_, seq, ok = s.Flush()
	if !ok || seq != 1 {
		t.Fatalf("second flush seq = %d, want 1", seq)
	}
}

// scenario C: four reliable writes, then selective ACKNACK retransmit.
func TestOutputReliableRetransmitOnAcknack(t *testing.T) {
	buf := make([]byte, 4*64)
	out, err := NewOutputReliable(buf, 4, 4, 0, InitialSeqNum)
	if err != nil {
		t.Fatal(err)
	}

	var payloads [4][]byte
	for i := 0; i < 4; i++ {
		cur, ok := out.Reserve(8, wire.SubmsgIDWriteData, 0, true)
		if !ok {
			t.Fatalf("reserve %d failed", i)
		}
		cur.WriteBytes([]byte{byte(i), 1, 2, 3, 4, 5, 6, 7})
	}

	var sent []seqnum.SeqNum
	sentBytes := map[seqnum.SeqNum][]byte{}
	out.Flush(time.Now(), func(seq seqnum.SeqNum, data []byte) bool {
		sent = append(sent, seq)
		cp := append([]byte(nil), data...)
		sentBytes[seq] = cp
		payloads[int(seq)] = cp
		return true
	})
	if len(sent) != 4 {
		t.Fatalf("expected 4 datagrams, got %d", len(sent))
	}
	for i, s := range sent {
		if s != seqnum.SeqNum(i) {
			t.Errorf("sent[%d] = %d, want %d", i, s, i)
		}
	}

	var retransmitted []seqnum.SeqNum
	out.HandleAcknack(wire.Acknack{FirstUnacked: 1, Bitmap: 1 << 1}, time.Now(),
		func(seq seqnum.SeqNum, data []byte) bool {
			retransmitted = append(retransmitted, seq)
			if string(data) != string(payloads[2]) {
				t.Errorf("retransmitted seq 2 bytes differ")
			}
			return true
		})
	if len(retransmitted) != 1 || retransmitted[0] != 2 {
		t.Fatalf("retransmitted = %v, want [2]", retransmitted)
	}
	if out.LastAcknown() != 0 {
		t.Errorf("last_acknown = %d, want 0", out.LastAcknown())
	}
}

func TestOutputReliableHeartbeatExhaustion(t *testing.T) {
	buf := make([]byte, 4*64)
	out, err := NewOutputReliable(buf, 4, 4, 0, InitialSeqNum)
	if err != nil {
		t.Fatal(err)
	}
	cur, ok := out.Reserve(4, wire.SubmsgIDWriteData, 0, true)
	if !ok {
		t.Fatal("reserve failed")
	}
	cur.WriteBytes([]byte{1, 2, 3, 4})
	out.Flush(time.Now(), func(seqnum.SeqNum, []byte) bool { return true })

	now := time.Now()
	period := 10 * time.Millisecond
	const maxTries = 3
	for i := 0; i < maxTries; i++ {
		now = now.Add(period + time.Millisecond)
		out.Tick(now, period, maxTries, func(wire.Heartbeat) {})
	}
	if !out.SendLost() {
		t.Error("expected send_lost after MAX_HEARTBEAT_TRIES")
	}
	if !out.HasUnackedData() {
		t.Error("stream should still report unacked data")
	}
}

func TestInputReliableReordersToInOrderDelivery(t *testing.T) {
	buf := make([]byte, 8*64)
	in, err := NewInputReliable(buf, 8, InitialSeqNum)
	if err != nil {
		t.Fatal(err)
	}
	var delivered []seqnum.SeqNum
	deliver := func(seq seqnum.SeqNum, payload []byte) { delivered = append(delivered, seq) }

	in.Receive(1, []byte{1}, false, false, deliver)
	in.Receive(3, []byte{3}, false, false, deliver)
	in.Receive(2, []byte{2}, false, false, deliver)
	in.Receive(4, []byte{4}, false, false, deliver)

	want := []seqnum.SeqNum{1, 2, 3, 4}
	if len(delivered) != len(want) {
		t.Fatalf("delivered = %v, want %v", delivered, want)
	}
	for i := range want {
		if delivered[i] != want[i] {
			t.Fatalf("delivered = %v, want %v", delivered, want)
		}
	}
}

func TestInputReliableDuplicateDeliveredOnce(t *testing.T) {
	buf := make([]byte, 8*64)
	in, _ := NewInputReliable(buf, 8, InitialSeqNum)
	var count int
	deliver := func(seqnum.SeqNum, []byte) { count++ }
	in.Receive(1, []byte{1}, false, false, deliver)
	in.Receive(1, []byte{1}, false, false, deliver)
	if count != 1 {
		t.Errorf("delivered %d times, want 1", count)
	}
}

// scenario D
func TestInputReliableHeartbeatTriggersGapAcknack(t *testing.T) {
	buf := make([]byte, 8*64)
	in, _ := NewInputReliable(buf, 8, InitialSeqNum)
	var delivered []seqnum.SeqNum
	deliver := func(seq seqnum.SeqNum, _ []byte) { delivered = append(delivered, seq) }

	in.Receive(1, []byte{1}, false, false, deliver)
	in.Receive(2, []byte{2}, false, false, deliver)
	in.Receive(4, []byte{4}, false, false, deliver)
	in.Receive(5, []byte{5}, false, false, deliver)

	if len(delivered) != 2 || delivered[0] != 1 || delivered[1] != 2 {
		t.Fatalf("delivered = %v, want [1 2]", delivered)
	}

	needAck := in.HandleHeartbeat(1, 5)
	if !needAck {
		t.Fatal("expected gap to require acknack")
	}
	bitmap := in.BuildAcknackBitmap()
	if bitmap&1 == 0 {
		t.Error("bit 0 (seq 3) should be set (missing)")
	}
	if bitmap&2 != 0 {
		t.Error("bit 1 (seq 4) should be clear (present)")
	}

	in.Receive(3, []byte{3}, false, false, deliver)
	want := []seqnum.SeqNum{1, 2, 3, 4, 5}
	if len(delivered) != len(want) {
		t.Fatalf("delivered = %v, want %v", delivered, want)
	}
	for i := range want {
		if delivered[i] != want[i] {
			t.Fatalf("delivered = %v, want %v", delivered, want)
		}
	}
	if in.LastHandled() != in.LastAnnounced() {
		t.Errorf("last_handled=%d last_announced=%d, want equal", in.LastHandled(), in.LastAnnounced())
	}
}

func TestOutputReliableFragmentation(t *testing.T) {
	// slot capacity is small enough that a 40-byte payload needs 3 slots.
	buf := make([]byte, 4*24)
	out, err := NewOutputReliable(buf, 4, 4, 16, InitialSeqNum)
	if err != nil {
		t.Fatal(err)
	}
	var boundaries int
	out.OnNewFragment = func(slotIndex int, cur *wire.Cursor) {
		boundaries++
		cur.WriteBytes(make([]byte, cur.Remaining()))
	}
	cur, ok := out.Reserve(40, wire.SubmsgIDWriteData, 0, true)
	if !ok {
		t.Fatal("fragmented reserve failed")
	}
	cur.WriteBytes(make([]byte, cur.Remaining()))
	if boundaries == 0 {
		t.Error("expected on_new_fragment to fire at least once")
	}
	if out.LastWritten() == InitialSeqNum {
		t.Error("last_written should have advanced across fragments")
	}
}
