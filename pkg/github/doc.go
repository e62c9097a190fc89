// Package github provides a rate-limit-aware client for the GitHub REST API.
//
// This package includes:
//   - An HTTP client that paces requests locally and tracks the server-side
//     quota from response headers, waiting out exhaustion before sending
//   - Retry with exponential backoff for transient failures and a single
//     cooled-down re-issue after an unexpected secondary rate limit
//   - Link-header pagination for the follower and following collections
//   - Type-safe models and typed errors for every failure class
//
// Example usage:
//
//	client := github.NewClient(github.Options{
//	    Token:             token,
//	    RequestsPerSecond: 2.0,
//	    Burst:             10,
//	}, log)
//
//	followers, err := client.ListFollowers(ctx, "octocat", 0)
//	if err != nil {
//	    var apiErr *errors.Error
//	    if stderrors.As(err, &apiErr) {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeAuth:
//	            // token rejected
//	        case errors.ErrorTypeRateLimit:
//	            // quota exhausted beyond the client's own waiting
//	        }
//	    }
//	}
//
//	if err := client.Follow(ctx, "octocat"); err != nil {
//	    // handle failure
//	}
package github
