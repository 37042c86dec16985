// Package ratelimit spaces outbound requests.
//
// Two mechanisms live here:
//
//   - WaitPolicy: an unconditional delay consulted before Flickr calls. Searches
//     wait the configured interval and per-candidate detail fetches wait twice
//     that. There is no burst allowance and no token accounting; the policy
//     only guarantees a minimum gap.
//   - Limiter: pacing for the download stage, backed by golang.org/x/time/rate
//     with a burst of one.
//
// CountingWait is a WaitPolicy for tests. It records how often each gate was
// consulted and never sleeps.
//
// Usage:
//
//	wait := ratelimit.NewFixedWait(1200 * time.Millisecond)
//	if err := wait.SearchWait(ctx); err != nil {
//		return err
//	}
package ratelimit
