package cache

import (
	"context"
	"time"
)

// Noop always misses and drops writes. It stands in when caching is
// disabled; correctness must not change, only latency.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string) (string, error) {
	return "", ErrMiss
}

func (Noop) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (Noop) Delete(context.Context, ...string) error {
	return nil
}
