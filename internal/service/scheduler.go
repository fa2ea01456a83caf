package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// batchScheduler drives unit processing in fixed-size concurrency groups:
// each group runs its units concurrently and the next group starts only when
// the whole group has finished. This caps simultaneous store transactions
// while still overlapping I/O.
type batchScheduler struct {
	limit int
	log   zerolog.Logger
}

// newBatchScheduler creates a scheduler with the given concurrency limit
func newBatchScheduler(limit int, log zerolog.Logger) *batchScheduler {
	if limit < 1 {
		limit = 1
	}
	return &batchScheduler{
		limit: limit,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Run invokes fn once per index. Failure of one unit never cancels its
// siblings; fn is responsible for recording its own outcome.
func (s *batchScheduler) Run(ctx context.Context, count int, fn func(ctx context.Context, i int)) {
	for start := 0; start < count; start += s.limit {
		end := start + s.limit
		if end > count {
			end = count
		}

		s.log.Debug().
			Int("group_start", start).
			Int("group_size", end-start).
			Msg("Starting concurrency group")

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fn(ctx, i)
			}(i)
		}
		wg.Wait()
	}
}
