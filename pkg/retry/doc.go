// Package retry provides backoff and retry logic for handling transient
// failures in network operations, particularly GitHub API calls.
//
// Features:
//   - Multiple backoff strategies (exponential, constant)
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the client error taxonomy
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return client.Follow(ctx, login)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Operations that return a value
//	profile, err := retry.DoWithResult(func() (*github.Profile, error) {
//		return client.GetProfile(ctx, login)
//	}, cfg)
//
// Retryability follows the error taxonomy: timeout, transport, and server
// errors are retried; auth, not-found, and other client errors are not.
// Rate-limit waits are handled by the client itself, not by this package.
package retry
