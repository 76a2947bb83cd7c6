package fetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Producer supplies the value tracked by a Controller
type Producer[T any] func(ctx context.Context) (T, error)

// Controller runs a Producer and tracks its result. It is safe for
// concurrent use.
type Controller[T any] struct {
	producer Producer[T]
	opts     options

	mu         sync.Mutex
	state      State[T]
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	stopped    bool

	autoRun  sync.Once
	inflight sync.WaitGroup
}

// New creates an idle controller for producer
func New[T any](producer Producer[T], opts ...Option) *Controller[T] {
	o := options{
		autoStart: true,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Controller[T]{
		producer: producer,
		opts:     o,
	}
}

// Start binds the controller to ctx. With auto start enabled the producer
// runs once in the background; Start itself never blocks. Calling Start
// again, or after Stop, has no effect.
func (c *Controller[T]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.stopped || c.cancel != nil {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if c.opts.autoStart {
		c.autoRun.Do(c.Refetch)
	}
}

// Stop cancels the lifecycle context. Runs still in flight finish but their
// results are discarded.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.generation++
	c.state.Loading = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.opts.logger.Debug().Msg("Fetch controller stopped")
	c.notify()
}

// Execute runs the producer and waits for it. The returned error, if any, is
// an *Error. The result is applied to the controller state only if no later
// Execute, Reset or Stop happened in the meantime.
func (c *Controller[T]) Execute(ctx context.Context) (T, error) {
	gen := c.begin()
	defer c.inflight.Done()
	return c.run(ctx, gen)
}

// Refetch runs the producer in the background using the lifecycle context.
// It does nothing once the controller is stopped.
func (c *Controller[T]) Refetch() {
	c.mu.Lock()
	stopped := c.stopped
	ctx := c.ctx
	c.mu.Unlock()

	if stopped {
		c.opts.logger.Debug().Msg("Ignoring refetch on stopped controller")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	gen := c.begin()
	go func() {
		defer c.inflight.Done()
		c.run(ctx, gen)
	}()
}

// Reset clears data and error and marks the controller idle. Runs in flight
// when Reset is called no longer affect the state.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	c.generation++
	c.state = State[T]{}
	c.mu.Unlock()

	c.notify()
}

// State returns a snapshot of the current state
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.withStatus()
}

// Wait blocks until every started run has returned
func (c *Controller[T]) Wait() {
	c.inflight.Wait()
}

// begin starts a new generation and marks the state loading. The caller must
// call inflight.Done when the run returns.
func (c *Controller[T]) begin() uint64 {
	c.mu.Lock()
	c.inflight.Add(1)
	if c.stopped {
		gen := c.generation
		c.mu.Unlock()
		return gen
	}
	c.generation++
	gen := c.generation
	c.state.Loading = true
	c.state.Err = nil
	c.mu.Unlock()

	c.opts.logger.Debug().Uint64("generation", gen).Msg("Fetch started")
	c.notify()
	return gen
}

func (c *Controller[T]) run(ctx context.Context, gen uint64) (data T, err error) {
	defer func() {
		if p := recover(); p != nil {
			c.opts.logger.Error().Interface("panic", p).Uint64("generation", gen).Msg("Producer panicked")
			var zero T
			data, err = zero, panicError(p)
		} else if err != nil {
			err = normalizeError(err)
		}
		c.finish(gen, data, err)
	}()

	return c.producer(ctx)
}

func (c *Controller[T]) finish(gen uint64, data T, err error) {
	c.mu.Lock()
	if c.stopped || gen != c.generation {
		c.mu.Unlock()
		c.opts.logger.Debug().Uint64("generation", gen).Msg("Discarding stale fetch result")
		return
	}

	if err != nil {
		// Keep whatever data the last success produced.
		c.state.Err = err
	} else {
		c.state.Data = data
		c.state.HasData = true
		c.state.Err = nil
	}
	c.state.Loading = false
	c.mu.Unlock()

	if err != nil {
		c.opts.logger.Debug().Err(err).Uint64("generation", gen).Msg("Fetch failed")
	} else {
		c.opts.logger.Debug().Uint64("generation", gen).Msg("Fetch succeeded")
	}
	c.notify()
}

func (c *Controller[T]) notify() {
	if c.opts.onChange != nil {
		c.opts.onChange()
	}
}
