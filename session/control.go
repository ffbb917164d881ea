package session

import (
	"time"

	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

// Control submessages (CREATE_CLIENT, DELETE_CLIENT, HEARTBEAT,
// ACKNACK, TIMESTAMP) ride the built-in "none" stream, per spec.md §3
// ("index 0 is the built-in none control stream carrying
// session-level submessages"). The none stream carries no ARQ of its
// own — these submessages are themselves the ARQ/control primitives —
// so they're framed with a fixed seq of 0 rather than through an
// OutputBestEffort/OutputReliable stream object.
func (s *Session) sendControl(submessageID, flags byte, payloadSize int, write func(cur *wire.Cursor) error) bool {
	buf := make([]byte, s.HeaderOffset()+wire.SubheaderSize+payloadSize)
	cur := wire.NewCursorAt(buf, s.HeaderOffset())
	if err := wire.WriteSubmessageHeader(cur, submessageID, flags, uint16(payloadSize)); err != nil {
		s.debugf("sendControl: write header: %v", err)
		return false
	}
	if err := write(cur); err != nil {
		s.debugf("sendControl: write payload: %v", err)
		return false
	}
	return s.stampAndSend(byte(stream.None), 0, buf)
}

func (s *Session) sendCreateClient() bool {
	cc := wire.CreateClient{
		ClientKey:       s.Info.ClientKey,
		SessionID:       s.Info.SessionID,
		Cookie:          0,
		ProtocolVersion: protocolVersion,
		VendorID:        vendorID,
		WallClockNanos:  time.Now().UnixNano(),
		StreamOffset:    byte(s.HeaderOffset()),
	}
	return s.sendControl(wire.SubmsgIDCreateClient, wire.FlagEndianLittle, createClientSize, func(cur *wire.Cursor) error {
		return wire.WriteCreateClient(cur, cc)
	})
}

func (s *Session) sendDeleteClient() bool {
	req := wire.BaseObjectRequest{
		RequestID: s.nextRequestID(),
		ObjectID:  wire.ObjectId{Prefix: 0, Kind: wire.ObjectKindClient},
	}
	return s.sendControl(wire.SubmsgIDDelete, wire.FlagEndianLittle, baseObjectRequestSize, func(cur *wire.Cursor) error {
		return wire.WriteBaseObjectRequest(cur, req)
	})
}

func (s *Session) sendTimestamp(t0 int64) bool {
	return s.sendControl(wire.SubmsgIDTimestamp, wire.FlagEndianLittle, 8, func(cur *wire.Cursor) error {
		return wire.WriteTimestamp(cur, wire.Timestamp{TransmitTimestamp: t0})
	})
}

func (s *Session) sendAcknackFor(id stream.Id, ir *stream.InputReliable) bool {
	ack := wire.Acknack{
		FirstUnacked: uint16(ir.LastHandled()) + 1,
		Bitmap:       ir.BuildAcknackBitmap(),
		StreamID:     byte(id),
	}
	return s.sendControl(wire.SubmsgIDAcknack, wire.FlagEndianLittle, acknackSize, func(cur *wire.Cursor) error {
		return wire.WriteAcknack(cur, ack)
	})
}

func (s *Session) sendHeartbeat(id stream.Id, hb wire.Heartbeat) bool {
	hb.StreamID = byte(id)
	return s.sendControl(wire.SubmsgIDHeartbeat, wire.FlagEndianLittle, heartbeatSize, func(cur *wire.Cursor) error {
		return wire.WriteHeartbeat(cur, hb)
	})
}

// Fixed encoded sizes of the small control payload structs, used to
// size the scratch buffer sendControl allocates.
const (
	createClientSize      = 4 + 1 + 4 + 2 + 2 + 8 + 1
	baseObjectRequestSize = 2 + 2
	heartbeatSize         = 2 + 2 + 1
	acknackSize           = 2 + 2 + 1

	// protocolVersion/vendorID are this implementation's chosen
	// identifiers; spec.md §6 defers the exact values to "the
	// XRCE-DDS specification" without naming them, so these are
	// implementation constants, not protocol-mandated ones.
	protocolVersion uint16 = 0x0103
	vendorID        uint16 = 0x01FF
)
