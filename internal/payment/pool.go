package payment

import (
	"context"
)

// Pool bounds the number of flows running at once. Flows share nothing, so
// the pool only limits outstanding gateway connections.
type Pool struct {
	sem chan struct{}
}

func NewPool(parallelism int) *Pool {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pool{sem: make(chan struct{}, parallelism)}
}

// Do runs fn once a slot is free. A caller that gives up while waiting gets
// the context error and fn is not run.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	return fn(ctx)
}

func (p *Pool) InFlight() int {
	return len(p.sem)
}
