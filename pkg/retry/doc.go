// Package retry provides exponential backoff and retry logic for handling
// transient failures in network operations against the photo site.
//
// Features:
//   - Exponential and constant backoff strategies
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Error-type specific backoff strategies (rate limits wait longer than
//     challenge failures, which are retried quickly after re-establishment)
//   - Configurable retry predicates
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return session.Warm(ctx)
//	}, nil)
//
//	retrier := retry.NewHTTPRetrier(3, logger.GetLogger())
//	err := retrier.DoWithErrorType(func() error {
//		return fetchPage(url)
//	})
package retry
