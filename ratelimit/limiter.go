// Package ratelimit provides the capacity limiters that apply backpressure to
// store requests.
//
// Acquisition blocks the calling goroutine and is not cancellable: bounding
// the total time spent on an operation is the job of the retry policy that
// wraps it.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter grants request capacity.
type Limiter interface {
	// Acquire blocks until tokens units of capacity are available and
	// returns the time spent waiting.
	Acquire(tokens int) time.Duration
}

// TokenBucket is a Limiter backed by a token bucket.
type TokenBucket struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing perSecond tokens per second with the given
// burst. A non-positive rate yields an unlimited limiter; a non-positive
// burst defaults to one second of capacity.
//
//nolint:ireturn // callers only need the Limiter contract
func New(perSecond float64, burst int) Limiter {
	if perSecond <= 0 {
		return Unlimited()
	}
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Acquire blocks until tokens are granted. Requests larger than the burst
// are granted in burst-sized chunks.
func (b *TokenBucket) Acquire(tokens int) time.Duration {
	if tokens <= 0 {
		return 0
	}

	start := time.Now()
	burst := b.limiter.Burst()
	for tokens > 0 {
		chunk := min(tokens, burst)
		r := b.limiter.ReserveN(time.Now(), chunk)
		if !r.OK() {
			// only possible if the burst shrank underneath us
			break
		}
		time.Sleep(r.Delay())
		tokens -= chunk
	}
	return time.Since(start)
}

// Burst returns the bucket size.
func (b *TokenBucket) Burst() int {
	return b.limiter.Burst()
}

type unlimited struct{}

func (unlimited) Acquire(int) time.Duration { return 0 }

// Unlimited returns a Limiter that never blocks.
//
//nolint:ireturn // callers only need the Limiter contract
func Unlimited() Limiter {
	return unlimited{}
}
