package service

import (
	"math/rand/v2"
	"time"
)

type options struct {
	now func() time.Time
	rng *rand.Rand
}

// Option customizes MatchService and ViewService
type Option func(*options)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRand sets the source used for public code generation
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now: time.Now,
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
