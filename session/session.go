// Package session implements the scheduling loop that drives transport
// I/O, submessage dispatch, and the four blocking run_until_* entry
// points described in spec.md §4.1-§4.8 — the session loop kcptun's
// smux.Session (recvLoop's cmd-switch, waitConn's retry-with-backoff)
// inspired the shape of, reimplemented end to end for XRCE-DDS
// session/stream semantics rather than byte-stream multiplexing.
package session

import (
	"time"

	"github.com/uxrce/client/config"
	"github.com/uxrce/client/perf"
	"github.com/uxrce/client/seqnum"
	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/transport"
	"github.com/uxrce/client/wire"
)

// Info is the handshake/session-identity bookkeeping spec.md §3
// "SessionInfo" describes.
type Info struct {
	SessionID           byte
	ClientKey           uint32
	LastRequestID       wire.RequestId
	LastRequestedStatus byte
}

// Callbacks is the capability set a Session invokes on delivered
// submessages, per spec.md §9's "Callback indirection" note: modeled
// here as a record-of-fn-pointers, the closest typed analogue to the
// source's function-pointer-plus-void*-context style.
type Callbacks struct {
	OnStatus      func(s *Session, reply wire.BaseObjectReply)
	OnTopic       func(s *Session, objectID wire.ObjectId, requestID wire.RequestId, streamID stream.Id, payload []byte)
	OnTime        func(s *Session, offset time.Duration)
	OnPerformance func(s *Session, payload []byte)
}

type pendingRequest struct {
	id     wire.RequestId
	status *byte
	filled bool
}

// Session is the single-threaded, cooperatively scheduled runtime
// spec.md §5 describes: no internal goroutines, no mutex, all
// suspension happens inside the blocking-with-timeout transport
// receive every run_until_* performs.
type Session struct {
	Info      Info
	Storage   *stream.Storage
	Transport transport.Transport
	Callbacks Callbacks
	Config    *config.Config
	Counters  *perf.Counters

	// DebugLog receives transport-send failures and parse failures
	// (spec.md §7); defaults to a no-op, per spec.md §9 "no
	// process-wide mutable state is permitted."
	DebugLog func(format string, args ...any)

	headerLong bool // session_id < 0x80 => long header carries client_key inline

	pending []pendingRequest

	handshakeDone bool

	timeOffset       time.Duration
	synchronized     bool
	timestampPending bool
	timestampSentAt  int64

	fragmentFirst map[stream.Id]map[seqnum.SeqNum]fragHeader
}

// New constructs an idle session (spec.md §4.1 init_session): it
// touches no bookkeeping on the wire. sessionID's top bit decides the
// header form every message on this session uses (spec.md §6: "Used
// when session_id < 0x80").
func New(t transport.Transport, sessionID byte, clientKey uint32, cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Session{
		Info: Info{
			SessionID: sessionID,
			ClientKey: clientKey,
		},
		Storage:    stream.NewStorage(),
		Transport:  t,
		Config:     cfg,
		Counters:   &perf.Counters{},
		DebugLog:      func(string, ...any) {},
		headerLong:    sessionID < wire.WithClientKeyThreshold,
		fragmentFirst: make(map[stream.Id]map[seqnum.SeqNum]fragHeader),
	}
}

// HeaderOffset is the number of leading bytes every stream buffer this
// session owns must reserve for the session header (spec.md §4.2).
func (s *Session) HeaderOffset() int {
	if s.headerLong {
		return wire.LongHeaderSize
	}
	return wire.ShortHeaderSize
}

func (s *Session) sessionHeader(streamID byte, seq uint16) wire.SessionHeader {
	return wire.SessionHeader{
		SessionID: s.Info.SessionID,
		StreamID:  streamID,
		SeqNum:    seq,
		ClientKey: s.Info.ClientKey,
		Long:      s.headerLong,
	}
}

func (s *Session) debugf(format string, args ...any) {
	if s.DebugLog != nil {
		s.DebugLog(format, args...)
	}
}

// nextRequestID hands out a monotonic, never-zero RequestId (spec.md §6).
func (s *Session) nextRequestID() wire.RequestId {
	s.Info.LastRequestID++
	if s.Info.LastRequestID == wire.InvalidRequestID {
		s.Info.LastRequestID++
	}
	return s.Info.LastRequestID
}

// NextRequestID exposes nextRequestID to collaborators above this
// package, such as entity's CREATE/DELETE/DATA request builders.
func (s *Session) NextRequestID() wire.RequestId {
	return s.nextRequestID()
}

// --- stream creation, spec.md §4.2 ---

// CreateOutputBestEffortStream reserves the session's header offset in
// buf and registers a new OutputBestEffortStream.
func (s *Session) CreateOutputBestEffortStream(buf []byte) (stream.Id, bool) {
	ob := stream.NewOutputBestEffort(buf, s.HeaderOffset())
	id := s.Storage.AddOutputBestEffort(ob)
	return id, id != stream.Invalid
}

// CreateOutputReliableStream partitions buf into history slots, per
// spec.md §4.2.
func (s *Session) CreateOutputReliableStream(buf []byte, history, maxFragment int) (stream.Id, bool) {
	or, err := stream.NewOutputReliable(buf, history, s.HeaderOffset(), maxFragment, stream.InitialSeqNum)
	if err != nil {
		s.debugf("create_output_reliable_stream: %v", err)
		return stream.Invalid, false
	}
	id := s.Storage.AddOutputReliable(or)
	return id, id != stream.Invalid
}

// CreateInputBestEffortStream registers a new accept-if-newer stream.
func (s *Session) CreateInputBestEffortStream() (stream.Id, bool) {
	ib := stream.NewInputBestEffort()
	id := s.Storage.AddInputBestEffort(ib)
	return id, id != stream.Invalid
}

// CreateInputReliableStream partitions buf into history reorder slots.
func (s *Session) CreateInputReliableStream(buf []byte, history int) (stream.Id, bool) {
	ir, err := stream.NewInputReliable(buf, history, stream.InitialSeqNum)
	if err != nil {
		s.debugf("create_input_reliable_stream: %v", err)
		return stream.Invalid, false
	}
	id := s.Storage.AddInputReliable(ir)
	return id, id != stream.Invalid
}
