package session

import (
	"time"

	"github.com/uxrce/client/stream"
	"github.com/uxrce/client/wire"
)

// fulfillPending records a STATUS reply against any pending request
// tracker waiting on that RequestId, per spec.md §4.8's
// run_until_all/one_status bookkeeping.
func (s *Session) fulfillPending(id wire.RequestId, status byte) {
	for i := range s.pending {
		if s.pending[i].id == id && !s.pending[i].filled {
			*s.pending[i].status = status
			s.pending[i].filled = true
		}
	}
}

func (s *Session) clearPending() {
	s.pending = s.pending[:0]
}

// tickAll drives the heartbeat timer of every reliable output stream,
// per spec.md §4.5.
func (s *Session) tickAll(now time.Time) {
	period := time.Duration(s.Config.HeartbeatPeriodMS) * time.Millisecond
	s.Storage.ForEachOutputReliable(func(id stream.Id, or *stream.OutputReliable) {
		or.Tick(now, period, s.Config.MaxHeartbeatTries, func(hb wire.Heartbeat) {
			s.sendHeartbeat(id, hb)
		})
	})
}

// nextHeartbeatDeadline is the soonest non-zero heartbeat deadline
// across all reliable output streams, or zero if none are active.
func (s *Session) nextHeartbeatDeadline(now time.Time) time.Time {
	period := time.Duration(s.Config.HeartbeatPeriodMS) * time.Millisecond
	var next time.Time
	s.Storage.ForEachOutputReliable(func(_ stream.Id, or *stream.OutputReliable) {
		d := or.NextHeartbeatDeadline(period)
		if d.IsZero() {
			return
		}
		if next.IsZero() || d.Before(next) {
			next = d
		}
	})
	return next
}

// runOnce blocks on the transport for at most maxWait, processing at
// most one received datagram and ticking every reliable output
// stream's heartbeat timer, per spec.md §5's cooperative-scheduling
// model: all suspension happens inside this one blocking receive.
func (s *Session) runOnce(maxWait time.Duration) bool {
	if maxWait <= 0 {
		maxWait = 0
	}
	now := time.Now()
	if deadline := s.nextHeartbeatDeadline(now); !deadline.IsZero() && deadline.Before(now.Add(maxWait)) {
		if wait := deadline.Sub(now); wait < maxWait {
			maxWait = wait
		}
	}

	data, ok := s.Transport.RecvMsg(maxWait)
	s.tickAll(time.Now())
	if !ok {
		return false
	}
	s.Counters.OnReceive(len(data))
	s.handleMessage(data)
	return true
}

// RunUntilTimeout pumps the session for ms milliseconds, always
// returning false: it never looks for a specific condition, per
// spec.md §4.8.
func (s *Session) RunUntilTimeout(ms int) bool {
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for time.Now().Before(deadline) {
		s.runOnce(time.Until(deadline))
	}
	return false
}

func (s *Session) hasUnackedReliableData() bool {
	unacked := false
	s.Storage.ForEachOutputReliable(func(_ stream.Id, or *stream.OutputReliable) {
		if or.HasUnackedData() {
			unacked = true
		}
	})
	return unacked
}

// RunUntilConfirmDelivery blocks until every reliable output stream
// has drained its unacked window, or ms milliseconds elapse, per
// spec.md §4.8.
func (s *Session) RunUntilConfirmDelivery(ms int) bool {
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for time.Now().Before(deadline) {
		if !s.hasUnackedReliableData() {
			return true
		}
		s.runOnce(time.Until(deadline))
	}
	return !s.hasUnackedReliableData()
}

func (s *Session) waitStatuses(ms int, ids []wire.RequestId, all bool) ([]byte, bool) {
	statuses := make([]byte, len(ids))
	s.clearPending()
	for i := range ids {
		s.pending = append(s.pending, pendingRequest{id: ids[i], status: &statuses[i]})
	}

	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for time.Now().Before(deadline) {
		done := true
		any := false
		for i := range s.pending {
			if s.pending[i].filled {
				any = true
			} else {
				done = false
			}
		}
		if all && done {
			return statuses, true
		}
		if !all && any {
			return statuses, true
		}
		s.runOnce(time.Until(deadline))
	}
	return statuses, false
}

// RunUntilAllStatus blocks until every id in ids has a recorded
// STATUS reply, or ms milliseconds elapse (spec.md §4.8).
func (s *Session) RunUntilAllStatus(ms int, ids []wire.RequestId) ([]byte, bool) {
	return s.waitStatuses(ms, ids, true)
}

// RunUntilOneStatus blocks until any id in ids has a recorded STATUS
// reply, or ms milliseconds elapse (spec.md §4.8).
func (s *Session) RunUntilOneStatus(ms int, ids []wire.RequestId) ([]byte, bool) {
	return s.waitStatuses(ms, ids, false)
}

// SyncSession exchanges a TIMESTAMP/TIMESTAMP_REPLY pair to establish
// the client-to-agent clock offset, per spec.md §4.8.
func (s *Session) SyncSession(ms int) bool {
	s.synchronized = false
	s.timestampPending = true
	s.timestampSentAt = time.Now().UnixNano()
	if !s.sendTimestamp(s.timestampSentAt) {
		s.timestampPending = false
		return false
	}

	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for time.Now().Before(deadline) {
		if s.synchronized {
			return true
		}
		s.runOnce(time.Until(deadline))
	}
	return s.synchronized
}

// EpochNanos is wall-clock time adjusted by the offset SyncSession
// established, or the raw local clock if no sync has completed.
func (s *Session) EpochNanos() int64 {
	return time.Now().Add(s.timeOffset).UnixNano()
}

// handleTimestampReply implements the NTP-style offset estimate
// spec.md §4.8 describes: offset = ((t1-t0) + (t2-t3)) / 2, with t3
// the local receive time.
func (s *Session) handleTimestampReply(tr wire.TimestampReply) {
	if !s.timestampPending || tr.OriginateTimestamp != s.timestampSentAt {
		return
	}
	t3 := time.Now().UnixNano()
	offset := ((tr.ReceiveTimestamp - tr.OriginateTimestamp) + (tr.TransmitTimestamp - t3)) / 2
	s.timeOffset = time.Duration(offset)
	s.timestampPending = false
	s.synchronized = true
	if s.Callbacks.OnTime != nil {
		s.Callbacks.OnTime(s, s.timeOffset)
	}
}
