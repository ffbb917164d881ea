package session

import (
	"time"

	"github.com/uxrce/client/wire"
)

// CreateSession implements spec.md §4.1: send CREATE_CLIENT, retry up
// to MaxSessionConnectionAttempts with exponential backoff (doubled on
// timeout, reset on any received reply), grounded on kcptun's
// waitConn/createConn retry-with-backoff shape in client/main.go.
func (s *Session) CreateSession() bool {
	s.handshakeDone = false
	return s.handshake(s.sendCreateClient)
}

// DeleteSession is symmetric to CreateSession, per spec.md §4.1.
func (s *Session) DeleteSession() bool {
	s.handshakeDone = false
	return s.handshake(s.sendDeleteClient)
}

func (s *Session) handshake(send func() bool) bool {
	interval := time.Duration(s.Config.MinSessionConnectionIntervalMS) * time.Millisecond
	minInterval := interval

	for attempt := 0; attempt < s.Config.MaxSessionConnectionAttempts; attempt++ {
		if !send() {
			s.debugf("handshake: send failed on attempt %d", attempt)
		}

		deadline := time.Now().Add(interval)
		gotReply := false
		for time.Now().Before(deadline) {
			if s.runOnce(time.Until(deadline)) {
				gotReply = true
				if s.handshakeDone {
					ok := s.Info.LastRequestedStatus == wire.StatusOK ||
						s.Info.LastRequestedStatus == wire.StatusOKMatched
					return ok
				}
			}
		}

		if gotReply {
			interval = minInterval
		} else {
			interval *= 2
		}
	}
	return false
}
