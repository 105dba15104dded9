// Package ratelimit provides request pacing for the photo site.
//
// The token bucket limiter caps how many gallery requests are issued per
// refill period; concurrency caps (how many are in flight at once) are a
// separate concern handled by weighted semaphores in the session pool.
package ratelimit
