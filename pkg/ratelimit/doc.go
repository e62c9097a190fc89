// Package ratelimit provides client-side pacing and server quota tracking
// for the GitHub API.
//
// Two concerns live here:
//
// Token Bucket:
//   - Local request pacer built on golang.org/x/time/rate
//   - Smooths request bursts below the configured requests-per-second
//   - Wait blocks until a slot is available or the context is cancelled
//
// Quota:
//   - Snapshot of the server-side rate limit parsed from the
//     X-RateLimit-Limit, X-RateLimit-Remaining, and X-RateLimit-Reset
//     response headers
//   - Updated from every response, error paths included
//   - IsExhausted and UntilReset drive the client's pre-emptive wait
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(2.0, 10)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
//
//	quota := ratelimit.NewQuota()
//	quota.Update(resp.Header)
//	if quota.IsExhausted() {
//		time.Sleep(quota.UntilReset())
//	}
package ratelimit
