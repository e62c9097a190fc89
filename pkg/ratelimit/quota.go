package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Header names used by the GitHub REST API for quota accounting.
const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// Quota is the last known rate-limit snapshot for an API token.
// It is written after every response and read before every request,
// so access is guarded by one mutex.
type Quota struct {
	mu        sync.Mutex
	limit     int
	remaining int
	reset     time.Time
	known     bool

	// now is swapped in tests
	now func() time.Time
}

// NewQuota creates an empty quota snapshot.
func NewQuota() *Quota {
	return &Quota{now: time.Now}
}

// Update refreshes the snapshot from response quota headers. Responses
// without quota headers (secondary stat hosts, plain proxies) leave the
// snapshot untouched.
func (q *Quota) Update(h http.Header) {
	remaining, err := strconv.Atoi(h.Get(headerRemaining))
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(h.Get(headerLimit))
	resetEpoch, _ := strconv.ParseInt(h.Get(headerReset), 10, 64)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.limit = limit
	q.remaining = remaining
	q.reset = time.Unix(resetEpoch, 0)
	q.known = true
}

// IsExhausted reports whether the last snapshot shows zero remaining calls.
func (q *Quota) IsExhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.known && q.remaining == 0
}

// UntilReset returns the time left until the quota window resets,
// never negative.
func (q *Quota) UntilReset() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := q.reset.Sub(q.now())
	if d < 0 {
		return 0
	}
	return d
}

// Remaining returns the remaining call count from the last snapshot.
func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining
}

// Limit returns the quota ceiling from the last snapshot.
func (q *Quota) Limit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit
}
