package tasks

import (
	"context"
	"math/rand"
	"time"
)

// Delay is a random pause between consecutive publications.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

func (d Delay) next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)))
}

// Wait sleeps for a random duration in [Min, Max) or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	wait := d.next()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
