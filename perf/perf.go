// Package perf supplies a per-session performance counter set, fed by
// the session loop's PERFORMANCE submessage dispatch (spec.md §4.7:
// "PERFORMANCE (opt.) | hand raw bytes to on_performance callback").
// Grounded on std/snmp.go's kcp.DefaultSnmp-driven CSV logger, reshaped
// into a per-session (not process-global) counter set per spec.md §9's
// "no process-wide mutable state is permitted."
package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Counters tracks per-session traffic counts. All fields are updated
// with sync/atomic so a session's counters may be read from a
// reporting goroutine the application spins up independently of the
// single-threaded session loop (spec.md §5: callbacks run on the
// session's logical task, but nothing forbids a reader elsewhere).
type Counters struct {
	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	Retransmits      int64
	PerformanceMsgs  int64
}

// OnSend records an outbound message of n bytes.
func (c *Counters) OnSend(n int) {
	atomic.AddInt64(&c.MessagesSent, 1)
	atomic.AddInt64(&c.BytesSent, int64(n))
}

// OnReceive records an inbound message of n bytes.
func (c *Counters) OnReceive(n int) {
	atomic.AddInt64(&c.MessagesReceived, 1)
	atomic.AddInt64(&c.BytesReceived, int64(n))
}

// OnRetransmit records one ACKNACK-driven slot retransmission.
func (c *Counters) OnRetransmit() {
	atomic.AddInt64(&c.Retransmits, 1)
}

// OnPerformance records one PERFORMANCE submessage delivered by the
// agent, the wired target of spec.md §4.7's on_performance callback.
func (c *Counters) OnPerformance(payload []byte) {
	atomic.AddInt64(&c.PerformanceMsgs, 1)
}

// Header returns the CSV column names, matching kcp.Snmp.Header()'s
// shape (a fixed ordered field list).
func (c *Counters) Header() []string {
	return []string{
		"MessagesSent", "MessagesReceived", "BytesSent", "BytesReceived",
		"Retransmits", "PerformanceMsgs",
	}
}

// ToSlice returns the current counter values as strings, matching
// kcp.Snmp.ToSlice()'s shape for direct csv.Writer consumption.
func (c *Counters) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadInt64(&c.MessagesSent)),
		fmt.Sprint(atomic.LoadInt64(&c.MessagesReceived)),
		fmt.Sprint(atomic.LoadInt64(&c.BytesSent)),
		fmt.Sprint(atomic.LoadInt64(&c.BytesReceived)),
		fmt.Sprint(atomic.LoadInt64(&c.Retransmits)),
		fmt.Sprint(atomic.LoadInt64(&c.PerformanceMsgs)),
	}
}

// LogOnce appends one CSV row (timestamp + counters) to path, writing
// a header line first if the file is new — the same shape as
// std/snmp.go's SnmpLogger, split out as a single-shot call so the
// caller supplies its own ticker instead of this package owning one.
func LogOnce(path string, c *Counters) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"Unix"}, c.Header()...)); err != nil {
			return err
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, c.ToSlice()...)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
