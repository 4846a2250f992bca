package server

import "sync/atomic"

// Stats tracks server-wide counters. Safe for concurrent use.
type Stats struct {
	sessionsTotal  atomic.Int64
	sessionsActive atomic.Int64
	chunks         atomic.Int64
	bytes          atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SessionsTotal  int64 `json:"sessionsTotal"`
	SessionsActive int64 `json:"sessionsActive"`
	Chunks         int64 `json:"chunks"`
	Bytes          int64 `json:"bytes"`
}

func (st *Stats) sessionStarted() {
	st.sessionsTotal.Add(1)
	st.sessionsActive.Add(1)
}

func (st *Stats) sessionEnded() {
	st.sessionsActive.Add(-1)
}

func (st *Stats) echoed(n int) {
	st.chunks.Add(1)
	st.bytes.Add(int64(n))
}

// Snapshot returns the current counter values.
func (st *Stats) Snapshot() Snapshot {
	return Snapshot{
		SessionsTotal:  st.sessionsTotal.Load(),
		SessionsActive: st.sessionsActive.Load(),
		Chunks:         st.chunks.Load(),
		Bytes:          st.bytes.Load(),
	}
}
