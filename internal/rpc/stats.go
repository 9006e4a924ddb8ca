package rpc

import "sync/atomic"

// Stats tracks accepted/rejected share counters, the supplemented feature
// named in spec.md §7 ("Submission results are surfaced as accepted /
// rejected counters plus a human-readable reject reason").
type Stats struct {
	accepted uint64
	rejected uint64

	lastReject atomic.Value // string
}

// RecordAccepted increments the accepted-share counter. Exported so both
// the Work I/O submit path and the Stratum session's submit-result
// callback can share one Stats instance.
func (s *Stats) RecordAccepted() {
	atomic.AddUint64(&s.accepted, 1)
}

// RecordRejected increments the rejected-share counter and records reason
// as the most recent reject explanation, when non-empty.
func (s *Stats) RecordRejected(reason string) {
	atomic.AddUint64(&s.rejected, 1)
	if reason != "" {
		s.lastReject.Store(reason)
	}
}

// Accepted returns the running count of accepted shares.
func (s *Stats) Accepted() uint64 { return atomic.LoadUint64(&s.accepted) }

// Rejected returns the running count of rejected shares.
func (s *Stats) Rejected() uint64 { return atomic.LoadUint64(&s.rejected) }

// LastRejectReason returns the most recent reject reason, or "" if none.
func (s *Stats) LastRejectReason() string {
	v, _ := s.lastReject.Load().(string)
	return v
}
